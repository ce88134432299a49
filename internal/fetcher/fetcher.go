// Package fetcher retrieves pages over plain HTTP with desktop-browser headers.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/stupside/reelmeta/internal/app"
)

// ErrUpstream wraps every non-2xx response and transport failure.
var ErrUpstream = errors.New("upstream fetch failed")

// DesktopHeaders are sent with every static fetch so origins serve their
// server-rendered page. Accept-Encoding is left to net/http so gzip is
// decoded transparently.
var DesktopHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
	"Cache-Control":             "no-cache",
	"Pragma":                    "no-cache",
	"Sec-Ch-Ua":                 `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
	"Sec-Ch-Ua-Mobile":          "?0",
	"Sec-Ch-Ua-Platform":        `"Windows"`,
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Upgrade-Insecure-Requests": "1",
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

// Document is a fetched page.
type Document struct {
	URL        string // final URL after redirects
	StatusCode int
	Body       []byte
}

// Client fetches documents. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	maxBody int64
}

// New creates a Client from FetchConfig.
func New(cfg app.FetchConfig) *Client {
	maxRedirects := cfg.MaxRedirects

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				ForceAttemptHTTP2:   true,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(limit, max(cfg.RateBurst, 1)),
		maxBody: cfg.MaxBodyBytes,
	}
}

func (c *Client) newRequest(ctx context.Context, rawURL string, extra map[string]string) (*http.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrUpstream, err)
	}
	for k, v := range DesktopHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return req, nil
}

// Fetch GETs rawURL and returns its body. It does not retry.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	req, err := c.newRequest(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUpstream, err)
	}

	slog.DebugContext(ctx, "fetcher: document received",
		"url", rawURL,
		"final_url", resp.Request.URL.String(),
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	return &Document{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// Stream opens rawURL for streaming to a client. The caller closes the body.
func (c *Client) Stream(ctx context.Context, rawURL, referer string) (*http.Response, error) {
	req, err := c.newRequest(ctx, rawURL, map[string]string{"Referer": referer})
	if err != nil {
		return nil, err
	}

	// Media downloads can run far longer than a page fetch.
	stream := *c.http
	stream.Timeout = 0

	resp, err := stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}
