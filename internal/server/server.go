// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it connects services, handlers,
// middleware and routes. Storage and auth primitives are built by the
// caller (cmd/givehub) and passed in through Deps, so tests can run the
// whole router over the memory store.
//
// DEPENDENCY INJECTION FLOW:
//
//	cmd/givehub creates: sqlite.DB, TokenService, PasswordService, Metrics
//	server.New creates:  services → handlers → routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/givehub/internal/auth"
	"github.com/sakif/givehub/internal/handler"
	"github.com/sakif/givehub/internal/metrics"
	"github.com/sakif/givehub/internal/middleware"
	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/repository"
	"github.com/sakif/givehub/internal/service"
)

// Deps is everything the server needs from outside.
type Deps struct {
	Store     repository.Store
	DB        handler.Pinger          // optional; /healthz pings it when set
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
	GitHub    handler.GitHubExchanger // optional; nil disables GitHub sign-in
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Services bundles the business layer so the seeder and the server build it
// the same way.
type Services struct {
	Auth      *service.AuthService
	Donations *service.DonationService
	Requests  *service.RequestService
	Matches   *service.MatchService
	Public    *service.PublicService
}

// NewServices wires every service over one store. rec may be nil.
func NewServices(store repository.Store, tokens *auth.TokenService, passwords *auth.PasswordService, rec service.Recorder, logger *slog.Logger) *Services {
	names := service.NewNameResolver(store, logger)
	return &Services{
		Auth:      service.NewAuthService(store, tokens, passwords, logger),
		Donations: service.NewDonationService(store, names, rec, logger),
		Requests:  service.NewRequestService(store, names, rec, logger),
		Matches:   service.NewMatchService(store, names, rec, logger),
		Public:    service.NewPublicService(store, names, logger),
	}
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router   *chi.Mux
	port     int
	deps     Deps
	services *Services
	logger   *slog.Logger
}

// New builds the services and the router. It does not start listening.
func New(port int, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Tokens == nil || deps.Passwords == nil {
		return nil, errors.New("server: Store, Tokens and Passwords are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	s := &Server{
		router: chi.NewRouter(),
		port:   port,
		deps:   deps,
		logger: deps.Logger,
	}
	s.services = NewServices(deps.Store, deps.Tokens, deps.Passwords, deps.Metrics, deps.Logger)
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Services exposes the business layer the routes are served by.
func (s *Server) Services() *Services {
	return s.services
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Metrics: counts requests and latency per route pattern
// 5. Recoverer: catches panics and returns 500 instead of crashing
//
// Role checks happen twice: RequireRole on the route group rejects early,
// and the service checks the Actor again so it never depends on routing.
func (s *Server) setupRoutes() {
	r := s.router
	logger := s.logger

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(s.deps.Metrics))
	r.Use(chimiddleware.Recoverer)

	health := handler.NewHealthHandler(s.deps.DB, logger)
	authH := handler.NewAuthHandler(s.services.Auth, s.deps.GitHub, s.deps.Tokens.TTL(), logger)
	donations := handler.NewDonationHandler(s.services.Donations, logger)
	requests := handler.NewRequestHandler(s.services.Requests, logger)
	matches := handler.NewMatchHandler(s.services.Matches, logger)
	public := handler.NewPublicHandler(s.services.Public, logger)

	r.Get("/healthz", health.HandleHealth)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())

	if s.deps.GitHub != nil {
		r.Get("/auth/github/login", authH.HandleGitHubLogin)
		r.Get("/auth/github/callback", authH.HandleGitHubCallback)
	}

	requireAuth := auth.RequireAuth(s.deps.Tokens)

	r.Route("/api", func(r chi.Router) {
		// === Public ===
		r.Get("/public/donations", public.HandleDonations)
		r.Get("/public/requests", public.HandleRequests)
		r.Get("/public/search", public.HandleSearch)
		r.Get("/public/activities", public.HandleActivities)

		r.Post("/register", authH.HandleRegister)
		r.Post("/login", authH.HandleLogin)
		r.Post("/logout", authH.HandleLogout)

		// === Any signed-in user ===
		r.With(requireAuth).Get("/me", authH.HandleMe)

		// === Donor ===
		r.Route("/donations", func(r chi.Router) {
			r.Use(requireAuth, auth.RequireRole(model.RoleDonor))
			r.Post("/", donations.HandleCreate)
			r.Get("/my", donations.HandleListMine)
			r.Get("/{id}", donations.HandleGet)
			r.Put("/{id}", donations.HandleUpdate)
			r.Delete("/{id}", donations.HandleDelete)
		})

		// === Receiver ===
		r.Route("/requests", func(r chi.Router) {
			r.Use(requireAuth, auth.RequireRole(model.RoleReceiver))
			r.Post("/", requests.HandleCreate)
			r.Get("/my", requests.HandleListMine)
			r.Get("/{id}", requests.HandleGet)
			r.Put("/{id}", requests.HandleUpdate)
			r.Delete("/{id}", requests.HandleDelete)
		})

		// === Admin ===
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, auth.RequireRole(model.RoleAdmin))
			r.Get("/donations", donations.HandleListAll)
			r.Put("/donations/{id}/approve", donations.HandleDecide)
			r.Get("/requests", requests.HandleListAll)
			r.Put("/requests/{id}/approve", requests.HandleDecide)
			r.Post("/match", matches.HandleCreate)
			r.Get("/matches", matches.HandleList)
			r.Put("/matches/{id}/complete", matches.HandleComplete)
			r.Put("/matches/{id}/cancel", matches.HandleCancel)
		})
	})
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM or ctx is
// cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// Closing the database is the caller's job, after Start returns.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.port)),
			slog.Bool("github", s.deps.GitHub != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
