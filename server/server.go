// Package server wires the PillChecker routes, middleware and lifecycle
// around a chi router.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pillchecker/pillchecker/config"
	"github.com/pillchecker/pillchecker/handlers"
	"github.com/pillchecker/pillchecker/interfaces"
	"github.com/pillchecker/pillchecker/logging"
	"github.com/pillchecker/pillchecker/metrics"
)

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	router  chi.Router
	config  *config.Config
	limiter *RateLimiter
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, handler *handlers.HTTPHandlerImpl, validator interfaces.DataValidator) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:           router,
			Addr:              cfg.Address + ":" + cfg.Port,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		router:  router,
		config:  cfg,
		limiter: NewRateLimiter(DefaultRate, DefaultCapacity),
	}

	s.setupMiddleware()
	s.setupRoutes(handler, validator)

	return s
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Metrics)
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.limiter.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(h *handlers.HTTPHandlerImpl, validator interfaces.DataValidator) {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract", h.Extract)

		r.Route("/medications", func(r chi.Router) {
			r.Use(handlers.RequireProfile(validator))
			r.Post("/upload", h.UploadMedication)
			r.Get("/list", h.ListMedications)
			r.Get("/recent", h.RecentMedications)
			r.Get("/{id}", h.GetMedication)
			r.Delete("/{id}", h.DeleteMedication)
		})
	})

	s.router.Get("/health", h.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	prefix := strings.TrimRight(s.config.StorageBaseURL, "/")
	if strings.HasPrefix(prefix, "/") {
		files := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(s.config.StoragePath)))
		s.router.Get(prefix+"/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "private, max-age=86400")
			files.ServeHTTP(w, r)
		})
	}
}

// Router exposes the configured handler chain.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.limiter.StartCleanup(30 * time.Minute)

	logging.Info("Starting server", "address", s.server.Addr, "env", s.config.Env.String())
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.limiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}
