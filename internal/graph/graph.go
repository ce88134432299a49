// Package graph reads public video objects from the Facebook Graph API.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/stupside/reelmeta/internal/app"
	"github.com/stupside/reelmeta/internal/metadata"
)

var (
	// ErrNotConfigured is returned when no app credential is set.
	ErrNotConfigured = errors.New("graph api credentials not configured")
	// ErrNoVideoID is returned when a URL carries no recognizable video id.
	ErrNoVideoID = errors.New("no video id in url")
)

const fields = "description,title,source,thumbnails,permalink_url,from"

const facebookOrigin = "https://www.facebook.com"

// Video is the subset of the Graph video object we read.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Source       string `json:"source"`
	PermalinkURL string `json:"permalink_url"`
	Thumbnails   struct {
		Data []struct {
			URI         string `json:"uri"`
			IsPreferred bool   `json:"is_preferred"`
		} `json:"data"`
	} `json:"thumbnails"`
	From struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"from"`

	// Raw is the response body as received.
	Raw json.RawMessage `json:"-"`
}

// Thumbnail returns the preferred thumbnail, or the first one.
func (v *Video) Thumbnail() string {
	for _, t := range v.Thumbnails.Data {
		if t.IsPreferred {
			return t.URI
		}
	}
	if len(v.Thumbnails.Data) > 0 {
		return v.Thumbnails.Data[0].URI
	}
	return ""
}

// Apply fills the gaps of md and reports whether anything was written.
// sourceURL stands in for a missing permalink.
func (v *Video) Apply(md *metadata.VideoMetadata, sourceURL string) bool {
	title := v.Title
	if title == "" {
		title = v.Description
	}

	permalink := v.PermalinkURL
	switch {
	case permalink == "":
		permalink = sourceURL
	case strings.HasPrefix(permalink, "/"):
		permalink = facebookOrigin + permalink
	}

	filled := md.SetTitle(title)
	filled = md.SetDescription(v.Description) || filled
	filled = md.SetThumbnailURL(v.Thumbnail()) || filled
	filled = md.SetVideoURL(v.Source) || filled
	filled = md.SetAuthor(v.From.Name) || filled
	filled = md.SetPermalink(permalink) || filled
	filled = md.SetRawData(v.Raw) || filled
	return filled
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Client calls the Graph API with an app access token.
type Client struct {
	http        *http.Client
	baseURL     string
	version     string
	accessToken string
}

// New creates a Client. A client without credentials is valid but every
// call returns ErrNotConfigured.
func New(cfg app.GraphConfig) *Client {
	var token string
	if cfg.AppID != "" && cfg.ClientToken != "" {
		token = cfg.AppID + "|" + cfg.ClientToken
	}
	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		version:     cfg.Version,
		accessToken: token,
	}
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c.accessToken != ""
}

// Video fetches the video object with the given id.
func (c *Client) Video(ctx context.Context, id string) (*Video, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("access_token", c.accessToken)
	q.Set("fields", fields)
	endpoint := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.version, url.PathEscape(id), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building graph request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling graph api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading graph response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("graph api: status %d: %s (%s %d)", resp.StatusCode, apiErr.Error.Message, apiErr.Error.Type, apiErr.Error.Code)
		}
		return nil, fmt.Errorf("graph api: status %d", resp.StatusCode)
	}

	var v Video
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decoding graph response: %w", err)
	}
	v.Raw = body

	slog.DebugContext(ctx, "graph: video received", "id", id, "has_source", v.Source != "")

	return &v, nil
}

// VideoID extracts a video id from a Facebook URL: the segment after
// reel/, reels/ or videos/, the v query parameter, or the first numeric
// path segment.
func VideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoVideoID, err)
	}

	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	for i, p := range parts {
		switch p {
		case "reel", "reels", "videos":
			if i+1 < len(parts) {
				return parts[i+1], nil
			}
		}
	}

	if v := u.Query().Get("v"); v != "" {
		return v, nil
	}

	for _, p := range parts {
		if isNumeric(p) {
			return p, nil
		}
	}

	return "", ErrNoVideoID
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
