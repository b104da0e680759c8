package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/casefront/engage/internal/api/ws"
	"github.com/casefront/engage/internal/auth"
	"github.com/casefront/engage/internal/config"
	"github.com/casefront/engage/internal/conflictlist"
	"github.com/casefront/engage/internal/intake"
	"github.com/casefront/engage/internal/server/middleware"
	"github.com/casefront/engage/internal/store/postgres"
	redisstore "github.com/casefront/engage/internal/store/redis"
)

// Deps bundles the collaborators the route tree needs.
type Deps struct {
	Store         *postgres.Store
	PubSub        *redisstore.PubSub
	Auth          *auth.Service
	Verifier      *auth.AssertionVerifier
	Orchestrator  *intake.Orchestrator
	Machine       *intake.Machine
	ConflictIndex *conflictlist.Store
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	pubsub     *redisstore.PubSub
	wsHub      *ws.Hub
	cfg        *config.Config
}

// New creates a Server with all routes wired.
func New(cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	hub := ws.NewHub(deps.PubSub, deps.Store.Sessions())

	s := &Server{
		router: router,
		pubsub: deps.PubSub,
		wsHub:  hub,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Mount API routes on /api/v1 with three sub-groups:
	// 1. Unauthenticated auth endpoints.
	// 2. Public intake endpoints, rate limited per client IP.
	// 3. Staff endpoints behind JWT auth and firm scoping.
	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			authConfig := huma.DefaultConfig("Engage Auth API", "1.0.0")
			authConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			authAPI := humachi.New(r, authConfig)
			registerAuthRoutes(authAPI, deps)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(context.Background(), 5, 10))

			intakeConfig := huma.DefaultConfig("Engage Intake API", "1.0.0")
			intakeConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			intakeAPI := humachi.New(r, intakeConfig)
			registerIntakeRoutes(intakeAPI, deps)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret))
			r.Use(middleware.RequireFirm())
			r.Use(middleware.RateLimit(context.Background(), 100, 200))

			apiConfig := huma.DefaultConfig("Engage API", "1.0.0")
			apiConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			api := humachi.New(r, apiConfig)
			registerStaffRoutes(api, deps)
		})
	})

	// WebSocket routes for live intake review.
	router.Route("/ws", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT.Secret))
		r.Use(middleware.RequireFirm())
		registerWSRoutes(r, hub)
	})

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
