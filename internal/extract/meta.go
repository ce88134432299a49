package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stupside/reelmeta/internal/metadata"
)

// passthroughPrefixes select the tags copied verbatim into Properties.
var passthroughPrefixes = []string{"og:", "fb:", "twitter:", "tiktok:"}

// ParseDocument parses an HTML body.
func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return doc, nil
}

// MetaTags fills md from the document's <meta> tags.
func MetaTags(doc *goquery.Document, md *metadata.VideoMetadata) Outcome {
	filled := false

	var videoThumbnail string

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("property")
		if !ok || name == "" {
			name, _ = s.Attr("name")
		}
		content, _ := s.Attr("content")
		name = strings.TrimSpace(name)
		if name == "" || strings.TrimSpace(content) == "" {
			return
		}

		switch name {
		case "og:title":
			filled = md.SetTitle(content) || filled
		case "og:description":
			filled = md.SetDescription(content) || filled
		case "og:image":
			filled = md.SetThumbnailURL(content) || filled
		case "og:video:thumbnail":
			if videoThumbnail == "" {
				videoThumbnail = content
			}
		}

		for _, prefix := range passthroughPrefixes {
			if strings.HasPrefix(name, prefix) {
				filled = md.SetProperty(name, content) || filled
				break
			}
		}
	})

	filled = md.SetThumbnailURL(videoThumbnail) || filled

	if poster, ok := doc.Find("video[poster]").First().Attr("poster"); ok {
		filled = md.SetThumbnailURL(poster) || filled
	}

	return outcomeOf(filled)
}
