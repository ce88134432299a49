package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/stupside/reelmeta/internal/app"
)

//go:embed js/probe.js
var probeJS string

const (
	probeInterval = 100 * time.Millisecond
	probeGrace    = time.Second
)

// Chrome launches isolated headless Chrome instances through chromedp.
type Chrome struct {
	cfg app.BrowserConfig
}

// NewChrome returns a Launcher backed by a local Chrome binary.
func NewChrome(cfg app.BrowserConfig) *Chrome {
	return &Chrome{cfg: cfg}
}

// Launch starts a browser with a fresh mobile profile and request
// interception enabled.
func (c *Chrome) Launch(ctx context.Context, opts Options) (Page, error) {
	profile := NewProfile()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOpts(c.cfg, profile)...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	p := &chromePage{
		ctx:         taskCtx,
		cancel:      taskCancel,
		allocCancel: allocCancel,
		interceptor: newInterceptor(opts.BlockResources, opts.Headers),
		idle:        make(chan lifecycleIdle, 8),
		htmlTimeout: c.cfg.HTMLTimeout,
	}

	chromedp.ListenTarget(taskCtx, p.listen)

	err := chromedp.Run(taskCtx,
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
		fetch.Enable().WithPatterns([]*fetch.RequestPattern{
			{URLPattern: "*", RequestStage: fetch.RequestStageRequest},
		}),
		chromedp.EmulateViewport(profile.ScreenWidth, profile.ScreenHeight,
			chromedp.EmulateScale(profile.DeviceScaleFactor),
			chromedp.EmulateMobile,
			chromedp.EmulateTouch,
		),
		injectStealth(profile),
		injectCDPStealth(profile),
	)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("preparing browser: %w", err)
	}

	slog.DebugContext(ctx, "browser: launched", "user_agent", profile.UserAgent, "block_resources", opts.BlockResources)

	return p, nil
}

// lifecycleIdle identifies the frame and document a networkIdle event is for.
type lifecycleIdle struct {
	frame  cdp.FrameID
	loader cdp.LoaderID
}

// chromePage owns the chromedp lifecycle for one capture.
type chromePage struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	interceptor *interceptor
	idle        chan lifecycleIdle
	htmlTimeout time.Duration
	snapshotDir string
	closeOnce   sync.Once
}

func (p *chromePage) listen(ev any) {
	switch e := ev.(type) {
	case *fetch.EventRequestPaused:
		// Commands can't be issued from the listener goroutine.
		go p.resolveRequest(e)

	case *page.EventLifecycleEvent:
		if e.Name == "networkIdle" {
			select {
			case p.idle <- lifecycleIdle{frame: e.FrameID, loader: e.LoaderID}:
			default:
			}
		}
	}
}

func (p *chromePage) resolveRequest(e *fetch.EventRequestPaused) {
	ctx := cdp.WithExecutor(p.ctx, chromedp.FromContext(p.ctx).Target)

	var err error
	if p.interceptor.Handle(e.Request.URL, e.ResourceType) {
		err = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(ctx)
	} else {
		err = fetch.ContinueRequest(e.RequestID).
			WithHeaders(p.interceptor.ContinueHeaders(e.Request.Headers)).
			Do(ctx)
	}
	if err != nil && p.ctx.Err() == nil {
		slog.Debug("browser: resolving paused request failed", "url", e.Request.URL, "error", err)
	}
}

// runWithin runs actions and gives up after timeout. The actions keep the
// task context: canceling a child of it breaks the target in chromedp v0.14.
func (p *chromePage) runWithin(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(p.ctx, actions...)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

type navigation struct {
	frame  cdp.FrameID
	loader cdp.LoaderID
	err    error
}

func (p *chromePage) drainIdle() {
	for {
		select {
		case <-p.idle:
		default:
			return
		}
	}
}

// Navigate loads targetURL and waits for networkIdle of the main frame's
// new document. Idle events from iframes or the previous document are ignored.
func (p *chromePage) Navigate(ctx context.Context, targetURL string, timeout time.Duration) error {
	p.drainIdle()

	p.snapshotDir = snapshotDir(targetURL)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	navDone := make(chan navigation, 1)
	go func() {
		var nav navigation
		nav.err = chromedp.Run(p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			frame, loader, errText, _, err := page.Navigate(targetURL).Do(ctx)
			if err != nil {
				return err
			}
			if errText != "" {
				return fmt.Errorf("page load error %s", errText)
			}
			nav.frame, nav.loader = frame, loader
			return nil
		}))
		navDone <- nav
	}()

	var nav navigation
	select {
	case nav = <-navDone:
		if nav.err != nil {
			return fmt.Errorf("navigating to %s: %w", targetURL, nav.err)
		}
	case <-p.interceptor.Found():
		return nil
	case <-deadline.C:
		return fmt.Errorf("%w after %s", ErrNavigationTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case ev := <-p.idle:
			if !nav.owns(ev) {
				continue
			}
		case <-p.interceptor.Found():
		case <-deadline.C:
			snapshot(p.ctx, p.snapshotDir, "nav_timeout")
			return fmt.Errorf("%w after %s", ErrNavigationTimeout, timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
		break
	}

	snapshot(p.ctx, p.snapshotDir, "after_nav")
	return nil
}

// owns reports whether ev is the main frame going idle on this navigation's
// document. Same-document navigations report no loader, so any main frame
// event counts then.
func (n navigation) owns(ev lifecycleIdle) bool {
	if ev.frame != n.frame {
		return false
	}
	return n.loader == "" || ev.loader == n.loader
}

func (p *chromePage) Intercepted() (string, bool) {
	return p.interceptor.Candidate()
}

// Probe polls in the page until selector yields a media URL. The poll has
// its own in-page timeout, so an abandoned probe ends on the browser side.
func (p *chromePage) Probe(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	var src string
	if err := p.runWithin(ctx, timeout+probeGrace, probeAction(selector, timeout, &src)); err != nil {
		return "", fmt.Errorf("probing %q: %w", selector, err)
	}
	return strings.TrimSpace(src), nil
}

// probeAction builds the in-page poll for selector. The poll gives up after
// timeout by itself.
func probeAction(selector string, timeout time.Duration, src *string) chromedp.Action {
	return chromedp.Poll(probeScript(selector), src,
		chromedp.WithPollingTimeout(timeout),
		chromedp.WithPollingInterval(probeInterval),
	)
}

// probeScript fills the probe template with selector as a JS string literal.
func probeScript(selector string) string {
	quoted, _ := json.Marshal(selector)
	return strings.Replace(probeJS, "__SELECTOR__", string(quoted), 1)
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.runWithin(ctx, p.htmlTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading html: %w", err)
	}
	return html, nil
}

func (p *chromePage) Reset(ctx context.Context) error {
	p.interceptor.Reset()
	return p.runWithin(ctx, p.htmlTimeout,
		network.ClearBrowserCookies(),
		network.ClearBrowserCache(),
	)
}

// Close tears down the tab and the browser process.
func (p *chromePage) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		p.allocCancel()
	})
	return nil
}
