package platform

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies a supported video platform.
type Kind string

const (
	Instagram Kind = "instagram"
	TikTok    Kind = "tiktok"
	Facebook  Kind = "facebook"
)

// ErrUnsupported is returned for URLs that do not belong to a supported platform.
var ErrUnsupported = errors.New("unsupported platform")

// domains is checked in order; the first match wins.
var domains = []struct {
	kind   Kind
	domain string
}{
	{Instagram, "instagram.com"},
	{TikTok, "tiktok.com"},
	{Facebook, "facebook.com"},
}

// Request is a classified extraction request.
type Request struct {
	SourceURL string
	Platform  Kind
}

// Kinds returns every supported platform in priority order.
func Kinds() []Kind {
	out := make([]Kind, len(domains))
	for i, d := range domains {
		out[i] = d.kind
	}
	return out
}

// Detect maps a URL to its platform by hostname.
func Detect(rawURL string) (Kind, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: no host in %q", ErrUnsupported, rawURL)
	}

	for _, d := range domains {
		if strings.Contains(host, d.domain) {
			return d.kind, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, host)
}

// Classify builds a Request for rawURL.
func Classify(rawURL string) (Request, error) {
	kind, err := Detect(rawURL)
	if err != nil {
		return Request{}, err
	}
	return Request{SourceURL: strings.TrimSpace(rawURL), Platform: kind}, nil
}
