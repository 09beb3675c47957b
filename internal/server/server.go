// Package server provides the HTTP surface: the annotated video stream,
// tracking control, color profiles, live key events and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/markerpad/internal/intent"
	"github.com/ayusman/markerpad/internal/logging"
	"github.com/ayusman/markerpad/internal/metrics"
	"github.com/ayusman/markerpad/internal/server/api"
	"github.com/ayusman/markerpad/internal/store"
)

// Tracker is the view of the tracking loop the server needs.
type Tracker interface {
	api.Tracker
	api.Sampler
	SubscribeFrames() (<-chan []byte, func())
	LatestFrame() ([]byte, bool)
	SubscribeEvents() (<-chan intent.Event, func())
}

// Config holds the server configuration.
type Config struct {
	StaticDir   string
	AllowOrigin string
	Store       *store.Store
	Tracker     Tracker
	Metrics     *metrics.Metrics
	Log         zerolog.Logger
}

// Server represents the HTTP server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	start   time.Time
	log     zerolog.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    logging.Component(config.Log, "server"),
	}
	s.setupRoutes()
	s.handler = cors(config.AllowOrigin, s.mux)
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	var bands api.BandSetter
	if t := s.config.Tracker; t != nil {
		bands = t

		tracking := api.NewTrackingHandler(t)
		s.mux.HandleFunc("/api/status", tracking.Status)
		s.mux.HandleFunc("/api/enabled", tracking.Enabled)
		s.mux.Handle("/api/sample", api.NewSampleHandler(t, s.config.Store))

		stream := NewStreamHandler(t, s.config.Metrics)
		s.mux.Handle("/api/stream", stream)
		s.mux.Handle("/video_feed", stream)
		s.mux.HandleFunc("/api/frame", s.handleFrame)

		s.mux.Handle("/api/events", NewEventsHandler(t, s.config.Metrics, s.log))
	}

	if s.config.Store != nil {
		profiles := api.NewProfileHandler(s.config.Store, bands)
		s.mux.Handle("/api/profiles", profiles)
		s.mux.Handle("/api/profiles/", profiles)
	}

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics.Handler())
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// cors adds the Access-Control headers the browser client needs and
// answers preflight requests. An empty origin disables it.
func cors(origin string, next http.Handler) http.Handler {
	if origin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Tracker != nil {
		response["tracking"] = s.config.Tracker.Status().Running
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleFrame serves the latest annotated frame as a single JPEG.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jpeg, ok := s.config.Tracker.LatestFrame()
	if !ok {
		http.Error(w, "No frame captured yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(jpeg)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
