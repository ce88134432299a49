package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// snapshot saves a screenshot and the rendered HTML under dir. It only runs
// at debug level.
func snapshot(ctx context.Context, dir, label string) {
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.DebugContext(ctx, "snapshot: mkdir failed", "error", err)
		return
	}

	prefix := filepath.Join(dir, fmt.Sprintf("%s_%d", label, time.Now().UnixMilli()))

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		slog.DebugContext(ctx, "snapshot: screenshot failed", "label", label, "error", err)
	} else if err := os.WriteFile(prefix+".png", buf, 0o644); err != nil {
		slog.DebugContext(ctx, "snapshot: write png failed", "error", err)
	}

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		slog.DebugContext(ctx, "snapshot: html failed", "label", label, "error", err)
	} else if err := os.WriteFile(prefix+".html", []byte(html), 0o644); err != nil {
		slog.DebugContext(ctx, "snapshot: write html failed", "error", err)
	}

	slog.DebugContext(ctx, "snapshot: saved", "label", label, "path", prefix)
}

// snapshotDir turns a page URL into a directory under .debug.
func snapshotDir(rawURL string) string {
	name := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		name = strings.NewReplacer("/", "_", ":", "_").Replace(u.Host + u.Path)
		if len(name) > 80 {
			name = name[:80]
		}
	}
	return filepath.Join(".debug", name)
}
