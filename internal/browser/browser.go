// Package browser drives a headless mobile Chrome to discover the direct
// media URL of a video page.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/stupside/reelmeta/internal/app"
	"github.com/stupside/reelmeta/internal/extract"
	"github.com/stupside/reelmeta/internal/media"
	"github.com/stupside/reelmeta/internal/metrics"
)

var (
	// ErrNoMedia is returned when every attempt finished without a media URL.
	ErrNoMedia = errors.New("no media url found")
	// ErrNavigationTimeout is returned by Page.Navigate when the page did not
	// go idle in time. The page is still usable.
	ErrNavigationTimeout = errors.New("navigation timed out")
	// ErrFatal marks a launch failure or a panic inside the session.
	ErrFatal = errors.New("browser session failed")
)

// Options is the per-platform browser policy.
type Options struct {
	Attempts          int
	Backoff           time.Duration
	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration
	BlockResources    bool
	Selectors         []string
	Headers           map[string]string
}

// OptionsFrom converts a configured policy.
func OptionsFrom(p app.BrowserPolicy) Options {
	return Options{
		Attempts:          max(p.Attempts, 1),
		Backoff:           p.Backoff,
		NavigationTimeout: p.NavigationTimeout,
		SelectorTimeout:   p.SelectorTimeout,
		BlockResources:    p.BlockResources,
		Selectors:         p.Selectors,
		Headers:           p.Headers,
	}
}

// Attempt records one try of a capture.
type Attempt struct {
	Number   int
	MediaURL string
	Started  time.Time
}

// Page is one browser instance with a single tab.
type Page interface {
	// Navigate loads url and waits for network idle. A timeout returns
	// ErrNavigationTimeout and leaves the page usable.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// Intercepted returns the first media request seen since the last Reset.
	Intercepted() (string, bool)
	// Probe waits for selector and reads a media URL from the element.
	Probe(ctx context.Context, selector string, timeout time.Duration) (string, error)
	// HTML returns the rendered document.
	HTML(ctx context.Context) (string, error)
	// Reset clears cookies, cache and the intercepted candidate.
	Reset(ctx context.Context) error
	Close() error
}

// Launcher starts browser pages.
type Launcher interface {
	Launch(ctx context.Context, opts Options) (Page, error)
}

// Session captures media URLs with retries. It holds no per-capture state
// and is safe for concurrent use.
type Session struct {
	launcher Launcher
	opts     Options
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewSession returns a Session that launches pages with l.
func NewSession(l Launcher, opts Options) *Session {
	return &Session{
		launcher: l,
		opts:     opts,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Capture launches one browser and retries until a media URL is found or
// the attempts run out. The browser is closed exactly once on every path.
func (s *Session) Capture(ctx context.Context, targetURL string) (mediaURL string, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.BrowserAttempts.WithLabelValues("fatal").Inc()
			slog.ErrorContext(ctx, "browser: session panicked", "url", targetURL, "panic", r)
			mediaURL, err = "", fmt.Errorf("%w: panic: %v", ErrFatal, r)
		}
	}()

	page, err := s.launcher.Launch(ctx, s.opts)
	if err != nil {
		metrics.BrowserAttempts.WithLabelValues("fatal").Inc()
		return "", fmt.Errorf("%w: launching browser: %v", ErrFatal, err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			slog.DebugContext(ctx, "browser: close failed", "error", cerr)
		}
	}()

	var errs []error
	for n := 1; n <= max(s.opts.Attempts, 1); n++ {
		if n > 1 {
			wait := s.opts.Backoff * time.Duration(n-1)
			slog.InfoContext(ctx, "browser: retrying", "url", targetURL, "attempt", n, "backoff", wait)

			if err := s.sleep(ctx, wait); err != nil {
				errs = append(errs, err)
				break
			}
			if err := page.Reset(ctx); err != nil {
				slog.DebugContext(ctx, "browser: reset failed", "error", err)
			}
		}

		attempt := Attempt{Number: n, Started: time.Now()}
		attempt.MediaURL, err = s.attempt(ctx, page, targetURL)

		slog.DebugContext(ctx, "browser: attempt finished",
			"url", targetURL,
			"attempt", attempt.Number,
			"media_url", attempt.MediaURL,
			"elapsed", time.Since(attempt.Started),
			"error", err,
		)

		if err == nil {
			metrics.BrowserAttempts.WithLabelValues("found").Inc()
			return attempt.MediaURL, nil
		}
		metrics.BrowserAttempts.WithLabelValues("empty").Inc()
		errs = append(errs, fmt.Errorf("attempt %d: %w", n, err))
	}

	return "", errors.Join(append([]error{ErrNoMedia}, errs...)...)
}

// attempt runs one navigation. The intercepted request wins over selector
// probing, which wins over a scan of the rendered HTML.
func (s *Session) attempt(ctx context.Context, page Page, targetURL string) (string, error) {
	if err := page.Navigate(ctx, targetURL, s.opts.NavigationTimeout); err != nil {
		if u, ok := page.Intercepted(); ok {
			return u, nil
		}
		if !errors.Is(err, ErrNavigationTimeout) {
			return "", fmt.Errorf("navigating: %w", err)
		}
		slog.InfoContext(ctx, "browser: navigation timed out, probing anyway", "url", targetURL, "timeout", s.opts.NavigationTimeout)
	}

	if u, ok := page.Intercepted(); ok {
		return u, nil
	}

	for _, sel := range s.opts.Selectors {
		raw, err := page.Probe(ctx, sel, s.opts.SelectorTimeout)
		if err != nil {
			slog.DebugContext(ctx, "browser: selector not found", "selector", sel, "error", err)
		} else if u, ok := resolve(targetURL, raw); ok {
			return u, nil
		}

		// Waiting on a selector gives the player time to request media.
		if u, ok := page.Intercepted(); ok {
			return u, nil
		}
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("reading rendered html: %w", err)
	}
	if u, ok := extract.ScanMediaURL(html); ok {
		return u, nil
	}

	return "", ErrNoMedia
}

// resolve makes a probed value absolute. blob: and data: URLs are rejected.
func resolve(pageURL, raw string) (string, bool) {
	if !media.Usable(raw) {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if ref.IsAbs() {
		return ref.String(), true
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}
