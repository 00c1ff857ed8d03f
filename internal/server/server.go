// Package server assembles the HTTP stack: router, middleware, handlers,
// services, and the database, plus graceful shutdown.
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

	"github.com/sakif/streamhub/internal/auth"
	"github.com/sakif/streamhub/internal/handler"
	"github.com/sakif/streamhub/internal/middleware"
	sqliteRepo "github.com/sakif/streamhub/internal/repository/sqlite"
	"github.com/sakif/streamhub/internal/service"
)

// Config carries everything the server needs from the environment.
type Config struct {
	Port        int
	TemplateDir string
	StaticDir   string
	DBPath      string

	// JWTSecret signs session tokens. Required.
	JWTSecret string

	// Google OAuth is optional: with any of these unset, the Google
	// routes are not registered and password auth is the only sign-in.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
}

// Server is the assembled application.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB // owned by the server, closed on shutdown
}

// New opens the database, wires the dependency chain, and registers all
// routes. The returned server is ready for Start.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// Dependency chain: repos over the shared DB handle, services over the
	// repo interfaces, handlers over the services. Handlers never touch the
	// database; services never touch HTTP.
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	streamService := service.NewStreamService(sqliteRepo.NewStreamRepo(s.db), s.logger)
	authService := service.NewAuthService(
		sqliteRepo.NewUserRepo(s.db),
		tokens,
		auth.NewPasswordService(),
		s.logger,
	)

	var google *auth.GoogleProvider
	if s.config.GoogleClientID != "" && s.config.GoogleClientSecret != "" {
		google = auth.NewGoogleProvider(
			s.config.GoogleClientID,
			s.config.GoogleClientSecret,
			s.config.GoogleCallbackURL,
		)
	} else {
		s.logger.Warn("Google OAuth not configured — federated sign-in disabled")
	}

	streamHandler := handler.NewStreamHandler(streamService, s.logger)
	authHandler := handler.NewAuthHandler(authService, google, s.logger)

	pageHandler, err := handler.NewPageHandler(s.config.TemplateDir, streamService, authService, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	// Pages render for everyone; a session only personalizes them.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/", pageHandler.HandleHome)
		r.Get("/streams", pageHandler.HandleExplore)
		r.Get("/dashboard", pageHandler.HandleDashboard)
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		if google != nil {
			r.Get("/google/login", authHandler.HandleGoogleLogin)
			r.Get("/google/callback", authHandler.HandleGoogleCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		// Reads resolve the session when present but never require one;
		// the policy layer decides what each caller can see.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Get("/streams", streamHandler.HandleList)
			r.Get("/streams/{idOrSlug}", streamHandler.HandleGet)
		})

		// Writes require a session outright.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", authHandler.HandleMe)
			r.Post("/streams", streamHandler.HandleCreate)
			r.Patch("/streams/{idOrSlug}", streamHandler.HandleUpdate)
			r.Delete("/streams/{idOrSlug}", streamHandler.HandleDelete)
		})
	})

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight
// requests before returning.
func (s *Server) Start() error {
	defer s.db.Close()

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
			slog.String("database", s.config.DBPath),
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
