// Package web provides the HTTP server for the card catalog: the JSON API,
// the dashboard and the image route.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/collector/internal/config"
	"github.com/JonMunkholm/collector/internal/core"
	"github.com/JonMunkholm/collector/internal/logging"
	"github.com/JonMunkholm/collector/internal/web/middleware"
)

const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; form-action 'self'"

// Server is the HTTP server for the catalog.
type Server struct {
	service *core.Service
	images  http.Handler
	cfg     *config.Config
	logger  *slog.Logger

	rate   *middleware.RateLimiter
	router *chi.Mux
	server *http.Server
}

// NewServer wires routes and middleware. images serves /images/*; it may be
// nil, in which case the route answers 404.
func NewServer(service *core.Service, images http.Handler, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if images == nil {
		images = http.NotFoundHandler()
	}
	s := &Server{
		service: service,
		images:  images,
		cfg:     cfg,
		logger:  logger,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware shared by every route.
func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Compress(5))
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		s.rate = middleware.NewRateLimiter(s.cfg.Rate.RequestsPerSecond, s.cfg.Rate.Burst)
		s.router.Use(s.rate.Handler)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Imports are bounded by IMPORT_TIMEOUT instead of the request timeout.
	s.router.Post("/api/import/csv", s.handleImportCSV)

	s.router.Group(func(r chi.Router) {
		if s.cfg.Server.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(s.cfg.Server.RequestTimeout))
		}

		r.Get("/", s.handleDashboard)
		r.Get("/health", s.handleHealth)
		r.Handle("/images/*", http.StripPrefix("/images", s.images))

		r.Route("/api", func(r chi.Router) {
			r.Get("/imports", s.handleListImports)
			r.Get("/stats", s.handleStats)

			r.Route("/cards", func(r chi.Router) {
				r.Get("/", s.handleListCards)
				r.Post("/", s.handleCreateCard)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetCard)
					r.Patch("/", s.handleUpdateCard)
					r.Delete("/", s.handleDeleteCard)
					r.Get("/prices", s.handleListPrices)
					r.Post("/prices", s.handleAddPrice)
				})
			})

			r.Route("/collection", func(r chi.Router) {
				r.Get("/", s.handleListCollection)
				r.Post("/", s.handleAddCollectionItem)
				r.Patch("/{id}/trade", s.handleSetTrade)
				r.Delete("/{id}", s.handleDeleteCollectionItem)
			})
		})
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rate != nil {
		s.rate.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			h.Set("Content-Security-Policy", contentSecurityPolicy)
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as the response body with the given status.
// Encoding errors are only logged since the header is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode", "error", err)
	}
}
