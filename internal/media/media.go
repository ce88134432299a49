package media

import (
	"net/url"
	"path"
	"strings"
)

const (
	MP4  = "video/mp4"
	WebM = "video/webm"
	MOV  = "video/quicktime"
	HLS  = "application/x-mpegURL"
)

var extensionMap = map[string]string{
	".mp4":  MP4,
	".webm": WebM,
	".mov":  MOV,
	".m3u8": HLS,
}

var extensionForType = map[string]string{
	MP4:  ".mp4",
	WebM: ".webm",
	MOV:  ".mov",
	HLS:  ".m3u8",
}

var mimeContentTypes = map[string]string{
	"video/mp4":                     MP4,
	"video/webm":                    WebM,
	"video/quicktime":               MOV,
	"audio/mpegurl":                 HLS,
	"audio/x-mpegurl":               HLS,
	"application/x-mpegurl":         HLS,
	"application/vnd.apple.mpegurl": HLS,
}

// pathTokens mark a URL as a media fetch even when its extension is hidden.
var pathTokens = []string{".mp4", "/video/"}

// DetectFromExtension returns a content type based on the URL's file extension,
// or empty string if unrecognized.
func DetectFromExtension(u *url.URL) string {
	ext := strings.ToLower(path.Ext(u.Path))
	return extensionMap[ext]
}

// DetectFromMIME returns a content type based on a confirmed MIME type,
// or empty string if unrecognized.
func DetectFromMIME(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	return mimeContentTypes[strings.ToLower(strings.TrimSpace(mime))]
}

// Extension returns the file extension for a content type, defaulting to .mp4.
func Extension(contentType string) string {
	if ext, ok := extensionForType[contentType]; ok {
		return ext
	}
	return ".mp4"
}

// IsMediaURL reports whether rawURL looks like a direct media resource.
func IsMediaURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, tok := range pathTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// Usable reports whether a URL found in a page can be handed to a client.
// blob: and data: URLs only exist inside the page that created them.
func Usable(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "":
		return u.Path != ""
	default:
		return false
	}
}
