package extract

import (
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/stupside/reelmeta/internal/metadata"
	"github.com/stupside/reelmeta/internal/platform"
)

// ErrMalformedState is logged when an embedded payload is not valid JSON.
var ErrMalformedState = errors.New("malformed embedded state")

const (
	sigiStateID     = "SIGI_STATE"
	universalDataID = "__UNIVERSAL_DATA_FOR_REHYDRATION__"
)

var (
	sigiStateScript     = scriptByID(sigiStateID)
	universalDataScript = scriptByID(universalDataID)

	ldJSONScript = regexp.MustCompile(`(?is)<script[^>]*\btype=["']application/ld\+json["'][^>]*>(.*?)</script>`)
)

var errStop = errors.New("stop")

func scriptByID(id string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)<script[^>]*\bid=["']` + regexp.QuoteMeta(id) + `["'][^>]*>(.*?)</script>`)
}

// EmbeddedState fills md from the JSON state a platform embeds in its page.
// Malformed payloads and unexpected shapes are skipped.
func EmbeddedState(kind platform.Kind, html []byte, md *metadata.VideoMetadata) Outcome {
	switch kind {
	case platform.TikTok:
		return tiktokState(html, md)
	case platform.Instagram, platform.Facebook:
		return linkedData(html, md)
	default:
		return Unfilled
	}
}

func scriptPayload(re *regexp.Regexp, html []byte, marker string) ([]byte, bool) {
	m := re.FindSubmatch(html)
	if m == nil {
		return nil, false
	}
	payload := []byte(strings.TrimSpace(string(m[1])))
	if !json.Valid(payload) {
		slog.Debug("extract: skipping embedded state", "marker", marker, "error", ErrMalformedState)
		return nil, false
	}
	return payload, true
}

func tiktokState(html []byte, md *metadata.VideoMetadata) Outcome {
	filled := false

	if payload, ok := scriptPayload(sigiStateScript, html, sigiStateID); ok {
		if item, ok := firstItem(payload, "ItemModule"); ok {
			filled = applyTikTokItem(item, md) || filled
		}
	}

	if payload, ok := scriptPayload(universalDataScript, html, universalDataID); ok {
		item, dataType, _, err := jsonparser.Get(payload, "__DEFAULT_SCOPE__", "webapp.video-detail", "itemInfo", "itemStruct")
		if err == nil && dataType == jsonparser.Object {
			filled = applyTikTokItem(item, md) || filled
		}
	}

	return outcomeOf(filled)
}

// firstItem returns the first object-valued entry of the object at keys, in
// document order.
func firstItem(data []byte, keys ...string) ([]byte, bool) {
	var item []byte
	err := jsonparser.ObjectEach(data, func(_ []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		if dataType != jsonparser.Object {
			return nil
		}
		item = value
		return errStop
	}, keys...)
	if err != nil && !errors.Is(err, errStop) {
		return nil, false
	}
	return item, item != nil
}

// applyTikTokItem reports whether the item supplied a title, description,
// thumbnail or video URL. Author, stats and rawData ride along but do not
// count as a fill on their own.
func applyTikTokItem(item []byte, md *metadata.VideoMetadata) bool {
	filled := false

	if desc, err := jsonparser.GetString(item, "desc"); err == nil {
		filled = md.SetTitle(desc) || filled
		filled = md.SetDescription(desc) || filled
	}

	for _, key := range []string{"cover", "dynamicCover"} {
		if cover, err := jsonparser.GetString(item, "video", key); err == nil && md.SetThumbnailURL(cover) {
			filled = true
			break
		}
	}

	for _, key := range []string{"playAddr", "downloadAddr"} {
		if addr, err := jsonparser.GetString(item, "video", key); err == nil && md.SetVideoURL(addr) {
			filled = true
			break
		}
	}

	md.SetAuthor(authorName(item, "uniqueId", "nickname"))
	if stats, ok := tiktokStats(item); ok {
		md.SetStats(stats)
	}
	md.SetRawData(item)

	return filled
}

// authorName reads "author" as a plain string or as an object holding one
// of fields.
func authorName(item []byte, fields ...string) string {
	value, dataType, _, err := jsonparser.Get(item, "author")
	if err != nil {
		return ""
	}
	switch dataType {
	case jsonparser.String:
		s, _ := jsonparser.ParseString(value)
		return s
	case jsonparser.Object:
		for _, f := range fields {
			if s, err := jsonparser.GetString(value, f); err == nil && s != "" {
				return s
			}
		}
	case jsonparser.Array:
		var name string
		_, _ = jsonparser.ArrayEach(value, func(v []byte, dt jsonparser.ValueType, _ int, _ error) {
			if name == "" && dt == jsonparser.Object {
				name, _ = jsonparser.GetString(v, fields[0])
			}
		})
		return name
	}
	return ""
}

func tiktokStats(item []byte) (*metadata.Stats, bool) {
	stats, dataType, _, err := jsonparser.Get(item, "stats")
	if err != nil || dataType != jsonparser.Object {
		return nil, false
	}
	return &metadata.Stats{
		Plays:    counter(stats, "playCount"),
		Likes:    counter(stats, "diggCount"),
		Shares:   counter(stats, "shareCount"),
		Comments: counter(stats, "commentCount"),
	}, true
}

// counter reads a count that may be encoded as a number or a numeric string.
func counter(data []byte, key string) int64 {
	value, dataType, _, err := jsonparser.Get(data, key)
	if err != nil {
		return 0
	}
	switch dataType {
	case jsonparser.Number:
		if n, err := jsonparser.ParseInt(value); err == nil {
			return n
		}
		if f, err := jsonparser.ParseFloat(value); err == nil {
			return int64(f)
		}
	case jsonparser.String:
		if n, err := strconv.ParseInt(string(value), 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func linkedData(html []byte, md *metadata.VideoMetadata) Outcome {
	for _, m := range ldJSONScript.FindAllSubmatch(html, -1) {
		payload := []byte(strings.TrimSpace(string(m[1])))
		if !json.Valid(payload) {
			slog.Debug("extract: skipping embedded state", "marker", "ld+json", "error", ErrMalformedState)
			continue
		}
		if video, ok := findVideoObject(payload); ok {
			return outcomeOf(applyVideoObject(video, md))
		}
	}
	return Unfilled
}

// findVideoObject searches a JSON-LD payload (object, array or @graph) for
// the first VideoObject node.
func findVideoObject(data []byte) ([]byte, bool) {
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, false
	}

	switch dataType {
	case jsonparser.Object:
		if isType(value, "VideoObject") {
			return value, true
		}
		if graph, dt, _, err := jsonparser.Get(value, "@graph"); err == nil && dt == jsonparser.Array {
			return findVideoObject(graph)
		}
	case jsonparser.Array:
		var found []byte
		_, _ = jsonparser.ArrayEach(value, func(v []byte, dt jsonparser.ValueType, _ int, _ error) {
			if found != nil || dt != jsonparser.Object {
				return
			}
			if node, ok := findVideoObject(v); ok {
				found = node
			}
		})
		return found, found != nil
	}
	return nil, false
}

func isType(node []byte, want string) bool {
	value, dataType, _, err := jsonparser.Get(node, "@type")
	if err != nil {
		return false
	}
	switch dataType {
	case jsonparser.String:
		s, _ := jsonparser.ParseString(value)
		return s == want
	case jsonparser.Array:
		match := false
		_, _ = jsonparser.ArrayEach(value, func(v []byte, dt jsonparser.ValueType, _ int, _ error) {
			if dt == jsonparser.String && string(v) == want {
				match = true
			}
		})
		return match
	}
	return false
}

func applyVideoObject(video []byte, md *metadata.VideoMetadata) bool {
	filled := false

	if name, err := jsonparser.GetString(video, "name"); err == nil {
		filled = md.SetTitle(name) || filled
	}
	if desc, err := jsonparser.GetString(video, "description"); err == nil {
		filled = md.SetDescription(desc) || filled
	}
	filled = md.SetThumbnailURL(firstString(video, "thumbnailUrl")) || filled
	filled = md.SetVideoURL(firstString(video, "contentUrl")) || filled
	md.SetAuthor(authorName(video, "name"))
	md.SetRawData(video)

	return filled
}

// firstString reads key as a string or the first string of an array.
func firstString(node []byte, key string) string {
	value, dataType, _, err := jsonparser.Get(node, key)
	if err != nil {
		return ""
	}
	switch dataType {
	case jsonparser.String:
		s, _ := jsonparser.ParseString(value)
		return s
	case jsonparser.Array:
		var first string
		_, _ = jsonparser.ArrayEach(value, func(v []byte, dt jsonparser.ValueType, _ int, _ error) {
			if first == "" && dt == jsonparser.String {
				first, _ = jsonparser.ParseString(v)
			}
		})
		return first
	}
	return ""
}
