// Package api serves a local HTTP control and export surface over the core.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flyvpn/flyvpn-tui/internal/badges"
	"github.com/flyvpn/flyvpn-tui/internal/controller"
	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// Options wires the API to the core.
type Options struct {
	ListenAddr string
	Store      *state.Store
	Connection controller.ConnectionManager
	Config     controller.ConfigManager
	Logs       controller.LogManager
	Intel      controller.IntelManager
	Catalog    *badges.Catalog
	Now        func() time.Time
	Logger     *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	opts Options
	log  *slog.Logger
	// lifetime bounds connection changes so a client hanging up mid-connect
	// does not revert the tunnel.
	lifetime context.Context
}

// New builds an API server. Start is only valid when ListenAddr is set.
func New(opts Options) *Server {
	if opts.Catalog == nil {
		opts.Catalog = badges.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{opts: opts, log: logger.With("component", "api"), lifetime: context.Background()}
}

// Router constructs the http.Handler with all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Get("/status", s.handleStatus)
		api.Post("/connection/toggle", s.handleToggle)
		api.Get("/servers", s.handleServers)
		api.Post("/servers/{id}/select", s.handleSelectServer)
		api.Put("/config/{key}", s.handleSetConfig)
		api.Get("/progression", s.handleProgression)
		api.Get("/badges", s.handleBadges)
		api.Post("/threats/{id}/neutralize", s.handleNeutralize)
		api.Get("/logs", s.handleLogs)
		api.Get("/logs/export", s.handleExportLogs)
		api.Delete("/logs", s.handleClearLogs)
	})
	r.Get("/metrics", handleMetrics)
	return r
}

// Start serves on ListenAddr until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.ListenAddr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.lifetime = ctx
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("api listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
