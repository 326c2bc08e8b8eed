// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where the entire
// dependency chain is assembled in one place:
//
//	config → repository (sheets or memory) → services → handlers → routes
//
// Handlers never touch the store directly, services never touch HTTP, and
// every data-bearing route passes through the role gate. If a route is
// missing from setupRoutes, it does not exist — there is no other wiring.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/classroom-portal/internal/auth"
	"github.com/sakif/classroom-portal/internal/config"
	"github.com/sakif/classroom-portal/internal/handler"
	"github.com/sakif/classroom-portal/internal/middleware"
	"github.com/sakif/classroom-portal/internal/ratelimit"
	"github.com/sakif/classroom-portal/internal/repository"
	"github.com/sakif/classroom-portal/internal/repository/memory"
	sheetsRepo "github.com/sakif/classroom-portal/internal/repository/sheets"
	"github.com/sakif/classroom-portal/internal/service"
)

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
}

// New creates a Server with the given config, wiring every dependency.
//
// STORE SELECTION:
// Demo mode (forced via DEMO_AUTH, or implied by missing store config) wires
// the in-memory repository seeded with the two demo accounts. Otherwise the
// Google Sheets repository is constructed, which validates the credentials
// file up front so a bad deployment fails here and not on the first request.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	var users repository.UserRepository
	if cfg.DemoMode() {
		logger.Warn("running in demo mode — hardcoded credentials, in-memory store")
		users = memory.NewDemo()
	} else {
		repo, err := sheetsRepo.New(ctx, sheetsRepo.Config{
			SpreadsheetID:   cfg.SheetID,
			CredentialsFile: cfg.GoogleCredentialsFile,
			Timeout:         cfg.StoreTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating sheets repository: %w", err)
		}
		users = repo
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.setupRoutes(users, tokens)
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE TABLE:
//
//	POST /api/auth/login         rate-limited by IP
//	POST /api/auth/logout        no auth
//	GET  /api/auth/me            any authenticated role
//	GET  /api/user/settings      any authenticated role (own record only)
//	POST /api/user/settings      any authenticated role (own record only)
//	GET  /api/admin/students     staff only
//	GET  /api/admin/student/{id} staff only
func (s *Server) setupRoutes(users repository.UserRepository, tokens *auth.TokenService) {
	cookies := auth.NewCookieCodec(s.config.Production())
	gate := auth.NewRoleGate(tokens, cookies)
	limiter := ratelimit.New(s.config.LoginRateMax, s.config.LoginRateWindow)

	authSvc := service.NewAuthService(users, tokens, auth.NewPasswordService(), s.config.DemoMode(), s.logger)
	directory := service.NewDirectoryService(users, s.logger)

	authHandler := handler.NewAuthHandler(authSvc, limiter, cookies, s.logger)
	adminHandler := handler.NewAdminHandler(directory, s.logger)
	settingsHandler := handler.NewSettingsHandler(directory, s.logger)

	// Global middleware, in order: request IDs for tracing, real client IPs
	// (the rate limiter keys on them), panic recovery, request logging.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Unsupported methods on known routes answer 405 with the standard body.
	s.router.MethodNotAllowed(handler.MethodNotAllowed)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)

		// Any authenticated role.
		r.Group(func(r chi.Router) {
			r.Use(gate.Require())
			r.Get("/auth/me", authHandler.HandleMe)
			r.Get("/user/settings", settingsHandler.HandleGetSettings)
			r.Post("/user/settings", settingsHandler.HandleUpdateSettings)
		})

		// Staff only.
		r.Group(func(r chi.Router) {
			r.Use(gate.RequireRole("staff"))
			r.Get("/admin/students", adminHandler.HandleListStudents)
			r.Get("/admin/student/{id}", adminHandler.HandleGetStudent)
		})
	})
}

// Router exposes the configured router. Tests mount it directly with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully, giving in-flight requests 30 seconds to complete.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.Bool("demoMode", s.config.DemoMode()),
			slog.String("env", s.config.Env),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
