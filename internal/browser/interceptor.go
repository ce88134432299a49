package browser

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"

	"github.com/stupside/reelmeta/internal/media"
)

// interceptor decides the fate of every paused request and keeps the first
// media request it sees.
type interceptor struct {
	blockResources bool
	headers        map[string]string

	mu     sync.Mutex
	hit    string
	notify chan struct{} // closed on first hit
}

func newInterceptor(blockResources bool, headers map[string]string) *interceptor {
	return &interceptor{
		blockResources: blockResources,
		headers:        headers,
		notify:         make(chan struct{}),
	}
}

// Offer records u as the candidate unless one is already held.
func (i *interceptor) Offer(u string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.hit != "" {
		return false
	}
	i.hit = u
	close(i.notify)
	return true
}

// Candidate returns the recorded media URL.
func (i *interceptor) Candidate() (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.hit, i.hit != ""
}

// Found is closed once a candidate is recorded.
func (i *interceptor) Found() <-chan struct{} {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.notify
}

// Reset forgets the candidate before a retry.
func (i *interceptor) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hit = ""
	i.notify = make(chan struct{})
}

// Handle offers media requests and reports whether the request should be
// failed instead of continued.
func (i *interceptor) Handle(rawURL string, rt network.ResourceType) (block bool) {
	if isMediaRequest(rawURL, rt) && i.Offer(rawURL) {
		slog.Debug("browser: media request intercepted", "url", rawURL, "type", rt)
	}
	return i.blockResources && isHeavyResource(rt)
}

// ContinueHeaders merges the configured headers into the request's own.
func (i *interceptor) ContinueHeaders(h network.Headers) []*fetch.HeaderEntry {
	merged := make(map[string]string, len(h)+len(i.headers))
	for k, v := range h {
		if s, ok := v.(string); ok {
			merged[k] = s
		}
	}
	for k, v := range i.headers {
		merged[k] = v
	}

	entries := make([]*fetch.HeaderEntry, 0, len(merged))
	for k, v := range merged {
		entries = append(entries, &fetch.HeaderEntry{Name: k, Value: v})
	}
	return entries
}

// isMediaRequest reports whether a request fetches video. Page loads,
// scripts and images are excluded from the URL token match since video page
// URLs themselves contain "/video/". Query strings are ignored so encoded
// URLs in tracking pixels don't match.
func isMediaRequest(rawURL string, rt network.ResourceType) bool {
	switch rt {
	case network.ResourceTypeMedia:
		return true
	case network.ResourceTypeDocument,
		network.ResourceTypeScript,
		network.ResourceTypeStylesheet,
		network.ResourceTypeImage,
		network.ResourceTypeFont:
		return false
	}
	stripped, _, _ := strings.Cut(rawURL, "?")
	return media.IsMediaURL(stripped)
}

func isHeavyResource(rt network.ResourceType) bool {
	switch rt {
	case network.ResourceTypeImage, network.ResourceTypeStylesheet, network.ResourceTypeFont:
		return true
	}
	return false
}
