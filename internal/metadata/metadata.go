// Package metadata holds the record every extraction strategy fills in.
//
// All setters are write-if-empty: once a field holds a value, later strategies
// cannot change it. Strategies only fill gaps.
package metadata

import (
	"encoding/json"
	"maps"
	"strings"

	"github.com/stupside/reelmeta/internal/platform"
)

// Stats holds engagement counters.
type Stats struct {
	Plays    int64 `json:"plays"`
	Likes    int64 `json:"likes"`
	Shares   int64 `json:"shares"`
	Comments int64 `json:"comments"`
}

// VideoMetadata is the result of one extraction request.
type VideoMetadata struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	ThumbnailURL string          `json:"thumbnailUrl"`
	Platform     platform.Kind   `json:"platform"`
	VideoURL     string          `json:"videoUrl,omitempty"`
	Author       string          `json:"author,omitempty"`
	Permalink    string          `json:"permalink,omitempty"`
	Stats        *Stats          `json:"stats,omitempty"`
	RawData      json.RawMessage `json:"rawData,omitempty"`

	// Properties carries platform-native tags (og:, fb:, twitter:, tiktok:) verbatim.
	Properties map[string]string `json:"properties,omitempty"`
}

// New returns an empty record for kind.
func New(kind platform.Kind) *VideoMetadata {
	return &VideoMetadata{Platform: kind}
}

func fill(dst *string, v string) bool {
	v = strings.TrimSpace(v)
	if *dst != "" || v == "" {
		return false
	}
	*dst = v
	return true
}

func (m *VideoMetadata) SetTitle(v string) bool        { return fill(&m.Title, v) }
func (m *VideoMetadata) SetDescription(v string) bool  { return fill(&m.Description, v) }
func (m *VideoMetadata) SetThumbnailURL(v string) bool { return fill(&m.ThumbnailURL, v) }
func (m *VideoMetadata) SetVideoURL(v string) bool     { return fill(&m.VideoURL, v) }
func (m *VideoMetadata) SetAuthor(v string) bool       { return fill(&m.Author, v) }
func (m *VideoMetadata) SetPermalink(v string) bool    { return fill(&m.Permalink, v) }

// SetStats sets the counters if none were recorded yet.
func (m *VideoMetadata) SetStats(s *Stats) bool {
	if m.Stats != nil || s == nil {
		return false
	}
	m.Stats = s
	return true
}

// SetRawData stores the source payload if none was stored yet.
func (m *VideoMetadata) SetRawData(raw []byte) bool {
	if len(m.RawData) > 0 || len(raw) == 0 || !json.Valid(raw) {
		return false
	}
	m.RawData = json.RawMessage(append([]byte(nil), raw...))
	return true
}

// SetProperty records a platform-native tag if the name is not already present.
func (m *VideoMetadata) SetProperty(name, value string) bool {
	if name == "" || value == "" {
		return false
	}
	if m.Properties == nil {
		m.Properties = make(map[string]string)
	}
	if _, ok := m.Properties[name]; ok {
		return false
	}
	m.Properties[name] = value
	return true
}

// HasVideo reports whether a direct media URL is known.
func (m *VideoMetadata) HasVideo() bool {
	return m.VideoURL != ""
}

// Clone returns a deep copy.
func (m *VideoMetadata) Clone() *VideoMetadata {
	out := *m
	if m.Stats != nil {
		s := *m.Stats
		out.Stats = &s
	}
	if m.RawData != nil {
		out.RawData = append(json.RawMessage(nil), m.RawData...)
	}
	if m.Properties != nil {
		out.Properties = maps.Clone(m.Properties)
	}
	return &out
}
