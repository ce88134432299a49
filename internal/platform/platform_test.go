package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Kind
	}{
		{"instagram reel", "https://www.instagram.com/reel/Cabc123/", Instagram},
		{"instagram bare host", "https://instagram.com/p/xyz", Instagram},
		{"tiktok video", "https://www.tiktok.com/@u/video/1", TikTok},
		{"tiktok short link", "https://vm.tiktok.com/ZMabc/", TikTok},
		{"facebook reel", "https://www.facebook.com/reel/123456", Facebook},
		{"facebook mobile", "https://m.facebook.com/watch/?v=42", Facebook},
		{"uppercase host", "https://WWW.TIKTOK.COM/@u/video/1", TikTok},
		{"priority order", "https://instagram.com.tiktok.com/x", Instagram},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectUnsupported(t *testing.T) {
	for _, raw := range []string{
		"https://example.com/x",
		"https://youtube.com/watch?v=1",
		"not a url",
		"instagram.com/reel/x",
		"://bad",
		"",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := Detect(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupported))
		})
	}
}

func TestClassify(t *testing.T) {
	req, err := Classify("  https://www.tiktok.com/@u/video/1 ")
	require.NoError(t, err)
	assert.Equal(t, Request{SourceURL: "https://www.tiktok.com/@u/video/1", Platform: TikTok}, req)

	_, err = Classify("https://example.com/x")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, []Kind{Instagram, TikTok, Facebook}, Kinds())
}
