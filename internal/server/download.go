package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/stupside/reelmeta/internal/media"
	"github.com/stupside/reelmeta/internal/platform"
)

// referers are sent upstream when relaying media of a platform whose CDN
// checks them.
var referers = map[platform.Kind]string{
	platform.Instagram: "https://www.instagram.com/",
}

// publicHost rejects loopback, private, link-local and unspecified hosts
// given as literals or localhost names. Names are not resolved here.
func publicHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return true
	}
	addr = addr.Unmap()
	return !(addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified())
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	videoURL := r.URL.Query().Get("videoUrl")
	if pageURL == "" || videoURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url and videoUrl are required"})
		return
	}

	kind, err := platform.Detect(pageURL)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unsupported platform"})
		return
	}

	u, err := url.Parse(videoURL)
	if err != nil || !u.IsAbs() || !media.Usable(videoURL) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "videoUrl must be an absolute http(s) url"})
		return
	}
	if !publicHost(u.Hostname()) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "videoUrl host is not allowed"})
		return
	}

	resp, err := s.streamer.Stream(r.Context(), videoURL, referers[kind])
	if err != nil {
		slog.ErrorContext(r.Context(), "server: download failed", "video_url", videoURL, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "downloading video failed"})
		return
	}
	defer resp.Body.Close()

	contentType := media.DetectFromMIME(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = media.DetectFromExtension(u)
	}
	if contentType == "" {
		contentType = media.MP4
	}
	fileName := fmt.Sprintf("video_%d%s", time.Now().UnixMilli(), media.Extension(contentType))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	if n := resp.Header.Get("Content-Length"); n != "" && !strings.ContainsAny(n, " ,") {
		w.Header().Set("Content-Length", n)
	}
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				slog.DebugContext(r.Context(), "server: client went away", "written", written, "error", werr)
				return
			}
			written += int64(n)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr != nil {
			break
		}
	}

	slog.DebugContext(r.Context(), "server: download relayed", "video_url", videoURL, "bytes", written)
}
