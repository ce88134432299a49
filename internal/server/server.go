// Package server exposes extraction over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/stupside/reelmeta/internal/app"
	"github.com/stupside/reelmeta/internal/pipeline"
	"github.com/stupside/reelmeta/internal/platform"
)

const shutdownTimeout = 10 * time.Second

// Streamer opens a media URL for relaying to the client.
type Streamer interface {
	Stream(ctx context.Context, rawURL, referer string) (*http.Response, error)
}

// Server serves the scrape and download endpoints.
type Server struct {
	cfg       app.ServerConfig
	extractor pipeline.Extractor
	streamer  Streamer
	router    *mux.Router
}

// New wires the routes.
func New(cfg app.ServerConfig, ex pipeline.Extractor, st Streamer) *Server {
	s := &Server{
		cfg:       cfg,
		extractor: ex,
		streamer:  st,
		router:    mux.NewRouter(),
	}

	s.router.Use(recoverer, requestID, accessLog)

	s.router.HandleFunc("/scrape", s.handleScrape).Methods(http.MethodPost)
	s.router.HandleFunc("/download", s.handleDownload).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if cfg.StaticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.InfoContext(ctx, "server: listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.InfoContext(ctx, "server: shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

type scrapeRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("server: writing response failed", "error", err)
	}
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url is required"})
		return
	}

	md, err := s.extractor.Extract(r.Context(), req.URL)
	switch {
	case errors.Is(err, platform.ErrUnsupported):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unsupported url: use an Instagram, TikTok or Facebook link"})
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "server: scrape failed", "url", req.URL, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "scraping failed"})
		return
	}

	writeJSON(w, http.StatusOK, md)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
