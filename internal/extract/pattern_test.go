package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stupside/reelmeta/internal/metadata"
	"github.com/stupside/reelmeta/internal/platform"
)

func TestScanMediaURL(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"escaped play address", `{"playAddr":"https:\/\/x\/a.mp4"}`, "https://x/a.mp4"},
		{"escaped with query", `"video_url":"https:\/\/cdn\/v.mp4?a=1&b=2"`, "https://cdn/v.mp4?a=1&b=2"},
		{"secure url", `"video_secure_url" : "https://cdn/secure.mp4"`, "https://cdn/secure.mp4"},
		{"facebook hd", `"playable_url_quality_hd":"https:\/\/video.fb\/hd.mp4"`, "https://video.fb/hd.mp4"},
		{"encoded url", `"contentUrl":"https%3A%2F%2Fcdn%2Fc.mp4"`, "https://cdn/c.mp4"},
		{"bare literal", `var src = 'https://cdn/live/master.m3u8?token=abc';`, "https://cdn/live/master.m3u8?token=abc"},
		{"bare escaped literal", `x="https:\/\/cdn\/raw.mp4"`, "https://cdn/raw.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ScanMediaURL(tt.text)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanMediaURLRuleOrder(t *testing.T) {
	text := `"video_url":"https://cdn/late.mp4","playAddr":"https://cdn/early.mp4"`

	got, ok := ScanMediaURL(text)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn/early.mp4", got)
}

func TestScanMediaURLSkipsEmptyValues(t *testing.T) {
	got, ok := ScanMediaURL(`"playAddr":"","downloadAddr":"https://cdn/dl.mp4"`)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn/dl.mp4", got)
}

func TestScanMediaURLKeepsSignedQuery(t *testing.T) {
	signed := "https://v16.tiktokcdn.com/v.mp4?sig=ab%2Bcd%3D%3D&expires=1700000000&policy=a%2Fb"

	got, ok := ScanMediaURL(`"playAddr":"` + signed + `"`)
	assert.True(t, ok)
	assert.Equal(t, signed, got)
}

func TestScanMediaURLNoMatch(t *testing.T) {
	_, ok := ScanMediaURL(`<html><img src="https://cdn/a.jpg"></html>`)
	assert.False(t, ok)
}

func TestPatternScanIsWriteIfEmpty(t *testing.T) {
	md := metadata.New(platform.TikTok)
	assert.Equal(t, Filled, PatternScan(`"playAddr":"https://cdn/a.mp4"`, md))
	assert.Equal(t, Unfilled, PatternScan(`"playAddr":"https://cdn/b.mp4"`, md))
	assert.Equal(t, "https://cdn/a.mp4", md.VideoURL)
}
