package extract

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/stupside/reelmeta/internal/metadata"
)

// jsonString captures a JSON string body, escapes included.
const jsonString = `"((?:[^"\\]|\\.)*)"`

func keyRule(key string) *regexp.Regexp {
	return regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*` + jsonString)
}

// mediaRules are tried in order; the first that matches wins.
var mediaRules = []*regexp.Regexp{
	keyRule("playAddr"),
	keyRule("downloadAddr"),
	keyRule("video_url"),
	keyRule("video_secure_url"),
	keyRule("contentUrl"),
	keyRule("playable_url_quality_hd"),
	keyRule("playable_url"),
	keyRule("browser_native_hd_url"),
	keyRule("browser_native_sd_url"),
	regexp.MustCompile(`(https?:(?:\\?/){2}[^\s"'<>]+?\.(?:mp4|m3u8)(?:\?[^\s"'<>]*)?)`),
}

// ScanMediaURL returns the first direct media URL literal found in text.
func ScanMediaURL(text string) (string, bool) {
	for _, rule := range mediaRules {
		for _, m := range rule.FindAllStringSubmatch(text, -1) {
			if u := cleanMediaURL(m[1]); u != "" {
				return u, true
			}
		}
	}
	return "", false
}

// PatternScan fills md.VideoURL from text.
func PatternScan(text string, md *metadata.VideoMetadata) Outcome {
	u, ok := ScanMediaURL(text)
	if !ok {
		return Unfilled
	}
	return outcomeOf(md.SetVideoURL(u))
}

func cleanMediaURL(raw string) string {
	s := unescapeJSON(raw)

	// Some payloads carry the whole URL percent-encoded.
	if lower := strings.ToLower(s); strings.HasPrefix(lower, "http%3a") || strings.HasPrefix(lower, "https%3a") {
		if decoded, err := url.PathUnescape(s); err == nil {
			s = decoded
		}
	}

	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return ""
	}
	return s
}

func unescapeJSON(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &s); err == nil {
		return s
	}
	return strings.ReplaceAll(raw, `\`, "")
}
