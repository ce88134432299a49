package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/reelmeta/internal/app"
)

// fakePage scripts a page per attempt. Attempt numbers start at 1.
type fakePage struct {
	navigations int
	resets      int
	closes      int
	probed      []string

	navigateErr   func(attempt int) error
	interceptedAt int
	intercepted   string
	probes        map[string]string
	html          string
	panicOnProbe  bool
}

func (p *fakePage) Navigate(_ context.Context, _ string, _ time.Duration) error {
	p.navigations++
	if p.navigateErr != nil {
		return p.navigateErr(p.navigations)
	}
	return nil
}

func (p *fakePage) Intercepted() (string, bool) {
	if p.intercepted != "" && p.navigations >= p.interceptedAt {
		return p.intercepted, true
	}
	return "", false
}

func (p *fakePage) Probe(_ context.Context, sel string, _ time.Duration) (string, error) {
	if p.panicOnProbe {
		panic("renderer crashed")
	}
	p.probed = append(p.probed, sel)
	if u, ok := p.probes[sel]; ok {
		return u, nil
	}
	return "", errors.New("timed out")
}

func (p *fakePage) HTML(context.Context) (string, error) { return p.html, nil }

func (p *fakePage) Reset(context.Context) error {
	p.resets++
	return nil
}

func (p *fakePage) Close() error {
	p.closes++
	return nil
}

type fakeLauncher struct {
	page     *fakePage
	err      error
	launches int
}

func (l *fakeLauncher) Launch(context.Context, Options) (Page, error) {
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	return l.page, nil
}

func testSession(l Launcher, attempts int) (*Session, *[]time.Duration) {
	s := NewSession(l, Options{
		Attempts:          attempts,
		Backoff:           2 * time.Second,
		NavigationTimeout: 30 * time.Second,
		SelectorTimeout:   5 * time.Second,
		Selectors:         []string{"video[src]", "video source[src]"},
	})
	var waits []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return s, &waits
}

func TestCaptureSucceedsOnThirdAttempt(t *testing.T) {
	page := &fakePage{intercepted: "https://v16.tiktokcdn.com/a.mp4", interceptedAt: 3}
	l := &fakeLauncher{page: page}
	s, waits := testSession(l, 3)

	u, err := s.Capture(context.Background(), "https://www.tiktok.com/@u/video/1")
	require.NoError(t, err)

	assert.Equal(t, "https://v16.tiktokcdn.com/a.mp4", u)
	assert.Equal(t, 3, page.navigations)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *waits)
	assert.Equal(t, 2, page.resets)
	assert.Equal(t, 1, l.launches)
	assert.Equal(t, 1, page.closes)
}

func TestCaptureExhaustsAttempts(t *testing.T) {
	page := &fakePage{html: "<html></html>"}
	s, waits := testSession(&fakeLauncher{page: page}, 3)

	_, err := s.Capture(context.Background(), "https://www.tiktok.com/@u/video/1")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrNoMedia)
	assert.Equal(t, 3, page.navigations)
	assert.Len(t, *waits, 2)
	assert.Equal(t, 1, page.closes)
}

func TestCaptureResolvesRelativeSelectorURL(t *testing.T) {
	page := &fakePage{probes: map[string]string{
		"video[src]":        "blob:https://www.instagram.com/3f2a",
		"video source[src]": "/v/t50/clip.mp4",
	}}
	s, _ := testSession(&fakeLauncher{page: page}, 1)

	u, err := s.Capture(context.Background(), "https://www.instagram.com/reel/abc/")
	require.NoError(t, err)

	assert.Equal(t, "https://www.instagram.com/v/t50/clip.mp4", u)
	assert.Equal(t, []string{"video[src]", "video source[src]"}, page.probed)
	assert.Equal(t, 1, page.closes)
}

func TestCaptureProbesAfterNavigationTimeout(t *testing.T) {
	page := &fakePage{
		navigateErr: func(int) error { return ErrNavigationTimeout },
		probes:      map[string]string{"video[src]": "https://cdn/x.mp4"},
	}
	s, _ := testSession(&fakeLauncher{page: page}, 1)

	u, err := s.Capture(context.Background(), "https://www.facebook.com/watch?v=1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.mp4", u)
	assert.Equal(t, 1, page.closes)
}

func TestCaptureNavigationFailureSkipsProbing(t *testing.T) {
	page := &fakePage{
		navigateErr: func(int) error { return errors.New("net::ERR_NAME_NOT_RESOLVED") },
		probes:      map[string]string{"video[src]": "https://cdn/x.mp4"},
	}
	s, _ := testSession(&fakeLauncher{page: page}, 1)

	_, err := s.Capture(context.Background(), "https://www.facebook.com/watch?v=1")
	assert.ErrorIs(t, err, ErrNoMedia)
	assert.Empty(t, page.probed)
	assert.Equal(t, 1, page.closes)
}

func TestCaptureFallsBackToRenderedHTML(t *testing.T) {
	page := &fakePage{html: `<script>{"playAddr":"https:\/\/v16\/rendered.mp4"}</script>`}
	s, _ := testSession(&fakeLauncher{page: page}, 1)

	u, err := s.Capture(context.Background(), "https://www.tiktok.com/@u/video/1")
	require.NoError(t, err)
	assert.Equal(t, "https://v16/rendered.mp4", u)
}

func TestCaptureRecoversPanic(t *testing.T) {
	page := &fakePage{panicOnProbe: true}
	s, _ := testSession(&fakeLauncher{page: page}, 3)

	var err error
	assert.NotPanics(t, func() {
		_, err = s.Capture(context.Background(), "https://www.instagram.com/reel/abc/")
	})
	assert.ErrorIs(t, err, ErrFatal)
	assert.Equal(t, 1, page.closes)
}

func TestCaptureLaunchFailure(t *testing.T) {
	s, _ := testSession(&fakeLauncher{err: errors.New("chrome not found")}, 3)

	_, err := s.Capture(context.Background(), "https://www.instagram.com/reel/abc/")
	assert.ErrorIs(t, err, ErrFatal)
}

func TestCaptureStopsWhenContextEnds(t *testing.T) {
	page := &fakePage{}
	s, _ := testSession(&fakeLauncher{page: page}, 3)
	s.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Capture(ctx, "https://www.tiktok.com/@u/video/1")
	assert.ErrorIs(t, err, ErrNoMedia)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, page.navigations)
	assert.Equal(t, 1, page.closes)
}

func TestOptionsFromClampsAttempts(t *testing.T) {
	assert.Equal(t, 1, OptionsFrom(app.BrowserPolicy{}).Attempts)
}
