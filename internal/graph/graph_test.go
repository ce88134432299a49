package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/reelmeta/internal/app"
	"github.com/stupside/reelmeta/internal/metadata"
	"github.com/stupside/reelmeta/internal/platform"
)

func testConfig(base string) app.GraphConfig {
	return app.GraphConfig{
		BaseURL:     base,
		Version:     "v18.0",
		AppID:       "123",
		ClientToken: "secret",
		Timeout:     5 * time.Second,
	}
}

func TestVideo(t *testing.T) {
	var gotPath, gotToken, gotFields string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		gotFields = r.URL.Query().Get("fields")
		fmt.Fprint(w, `{
			"id": "998",
			"title": "Graph title",
			"description": "Graph description",
			"source": "https://video.xx.fbcdn.net/v/clip.mp4",
			"permalink_url": "/reel/998/",
			"thumbnails": {"data": [{"uri": "https://cdn/t1.jpg"}, {"uri": "https://cdn/t2.jpg", "is_preferred": true}]},
			"from": {"id": "1", "name": "Page"}
		}`)
	}))
	defer srv.Close()

	v, err := New(testConfig(srv.URL)).Video(context.Background(), "998")
	require.NoError(t, err)

	assert.Equal(t, "/v18.0/998", gotPath)
	assert.Equal(t, "123|secret", gotToken)
	assert.Equal(t, fields, gotFields)

	md := metadata.New(platform.Facebook)
	assert.True(t, v.Apply(md, "https://www.facebook.com/reel/998"))
	assert.Equal(t, "Graph title", md.Title)
	assert.Equal(t, "Graph description", md.Description)
	assert.Equal(t, "https://cdn/t2.jpg", md.ThumbnailURL)
	assert.Equal(t, "https://video.xx.fbcdn.net/v/clip.mp4", md.VideoURL)
	assert.Equal(t, "Page", md.Author)
	assert.Equal(t, "https://www.facebook.com/reel/998/", md.Permalink)
	assert.Contains(t, string(md.RawData), `"Graph title"`)
}

func TestVideoAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Unsupported get request","type":"GraphMethodException","code":100}}`)
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL)).Video(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported get request")
}

func TestVideoNotConfigured(t *testing.T) {
	cfg := testConfig("https://graph.facebook.com")
	cfg.AppID, cfg.ClientToken = "", ""

	c := New(cfg)
	assert.False(t, c.Enabled())

	_, err := c.Video(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestApplyFallbacks(t *testing.T) {
	v := &Video{Description: "only a description"}
	md := metadata.New(platform.Facebook)
	v.Apply(md, "https://www.facebook.com/reel/1")
	assert.Equal(t, "only a description", md.Title)
	assert.Equal(t, "https://www.facebook.com/reel/1", md.Permalink)
}

func TestVideoID(t *testing.T) {
	tests := map[string]string{
		"https://www.facebook.com/reel/1234567890":          "1234567890",
		"https://www.facebook.com/page/videos/555/":         "555",
		"https://www.facebook.com/watch/?v=777":             "777",
		"https://www.facebook.com/share/r/9876/":            "9876",
		"https://www.facebook.com/reels/abc123/?mibextid=x": "abc123",
	}
	for raw, want := range tests {
		got, err := VideoID(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := VideoID("https://www.facebook.com/somepage/")
	assert.ErrorIs(t, err, ErrNoVideoID)
}
