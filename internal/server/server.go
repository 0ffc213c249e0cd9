// Package server provides the HTTP server and routing for the allocator.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/config"
	"github.com/aristath/allocator/internal/database"
	optimizationhandlers "github.com/aristath/allocator/internal/modules/optimization/handlers"
	universehandlers "github.com/aristath/allocator/internal/modules/universe/handlers"
)

// Config holds server configuration
type Config struct {
	Port                 int
	DevMode              bool
	Log                  zerolog.Logger
	Config               *config.Config
	UniverseDB           *database.DB
	CacheDB              *database.DB
	UniverseHandlers     *universehandlers.Handler
	OptimizationHandlers *optimizationhandlers.Handler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	universeDB     *database.DB
	cacheDB        *database.DB
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		universeDB:     cfg.UniverseDB,
		cacheDB:        cfg.CacheDB,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.UniverseDB, cfg.CacheDB),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg.UniverseHandlers, cfg.OptimizationHandlers)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(uh *universehandlers.Handler, oh *optimizationhandlers.Handler) {
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/universe", func(r chi.Router) {
			r.Get("/assets", uh.HandleListAssets)
			r.Put("/assets", uh.HandleSaveAsset)
			r.Delete("/assets/{symbol}", func(w http.ResponseWriter, req *http.Request) {
				uh.HandleDeleteAsset(w, req, chi.URLParam(req, "symbol"))
			})
			r.Get("/assets/{symbol}/prices", func(w http.ResponseWriter, req *http.Request) {
				uh.HandleGetPrices(w, req, chi.URLParam(req, "symbol"))
			})
			r.Post("/assets/{symbol}/prices", func(w http.ResponseWriter, req *http.Request) {
				uh.HandleIngestPrices(w, req, chi.URLParam(req, "symbol"))
			})
			r.Get("/sector-bounds", uh.HandleGetSectorBounds)
			r.Put("/sector-bounds", uh.HandleSaveSectorBound)
		})

		r.Route("/optimization", func(r chi.Router) {
			r.Post("/run", oh.HandleRunOptimization)
			r.Get("/results/latest", oh.HandleGetLatestResult)
			r.Get("/results/{id}", func(w http.ResponseWriter, req *http.Request) {
				oh.HandleGetResult(w, req, chi.URLParam(req, "id"))
			})
		})

		r.Get("/health", s.systemHandlers.HandleHealthDetail)
	})
}

// loggingMiddleware logs each request with method, path, status and duration.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
