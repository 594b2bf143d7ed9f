// Package server sets up the HTTP server, routes, and middleware.
//
// This package is the "wiring" layer: it connects storage, services,
// handlers and routes. It's the only place that knows about all of them:
//
//	config → Persister (jsonfile | sqlite) → memory.DB → services → handlers → chi routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"

	"github.com/sakif/notekeeper/internal/auth"
	"github.com/sakif/notekeeper/internal/config"
	"github.com/sakif/notekeeper/internal/handler"
	"github.com/sakif/notekeeper/internal/middleware"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
	"github.com/sakif/notekeeper/internal/repository/jsonfile"
	"github.com/sakif/notekeeper/internal/repository/memory"
	sqliteRepo "github.com/sakif/notekeeper/internal/repository/sqlite"
	"github.com/sakif/notekeeper/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the persister. Start closes it after the HTTP server and
// the sweeper have stopped; callers that never Start must call Close.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	persist  repository.Persister
	db       *memory.DB
	sessions *service.SessionService

	passwords *auth.PasswordService
}

// Option customizes New.
type Option func(*Server)

// WithPasswordService replaces the bcrypt service built from the config.
// Tests use it to hash at bcrypt.MinCost.
func WithPasswordService(ps *auth.PasswordService) Option {
	return func(s *Server) { s.passwords = ps }
}

// WithPersister replaces the backend selected by STORAGE_DRIVER.
func WithPersister(p repository.Persister) Option {
	return func(s *Server) { s.persist = p }
}

// New creates a Server from cfg.
//
// STARTUP SEQUENCE:
//  1. Open the storage backend (jsonfile by default, sqlite on request)
//  2. Load every collection; an unreadable collection is fatal
//  3. Hand ownerless notes/tags to the first user, creating the bootstrap
//     user when there is none
//  4. Wire services and handlers, register routes
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	if s.passwords == nil {
		if s.passwords, err = auth.NewPasswordService(cfg.BcryptCost); err != nil {
			return nil, err
		}
	}

	// === STORAGE ===
	if s.persist == nil {
		if s.persist, err = openPersister(cfg); err != nil {
			return nil, err
		}
	}

	db, migration, err := memory.Open(context.Background(), s.persist, s.bootstrapUser)
	if err != nil {
		s.persist.Close()
		return nil, fmt.Errorf("loading data: %w", err)
	}
	if migration.Changed() {
		s.logger.Info("assigned ownerless records",
			slog.String("ownerID", migration.OwnerID),
			slog.Bool("bootstrapUserCreated", migration.UsersChanged),
			slog.Int("notes", migration.NotesMoved),
			slog.Int("tags", migration.TagsMoved),
		)
	}
	s.db = db

	// === SERVICES ===
	users := service.NewUserService(db, db, db, s.passwords, logger)
	s.sessions = service.NewSessionService(users, db, tokens, logger)
	notes := service.NewNoteService(db, logger)
	tags := service.NewTagService(db, logger)

	s.setupRoutes(
		handler.NewUserHandler(users, s.sessions, logger),
		handler.NewSessionHandler(s.sessions, logger),
		handler.NewNoteHandler(notes, logger),
		handler.NewTagHandler(tags, logger),
	)

	return s, nil
}

func openPersister(cfg config.Config) (repository.Persister, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return db, nil
	case config.DriverJSON, "":
		store, err := jsonfile.New(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening data directory: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// bootstrapUser builds the account that inherits data written before
// notes had owners.
func (s *Server) bootstrapUser() (model.User, error) {
	hash, err := s.passwords.Hash(s.config.BootstrapPassword)
	if err != nil {
		return model.User{}, err
	}
	s.logger.Warn("creating bootstrap user; change its password",
		slog.String("username", s.config.BootstrapUsername),
	)
	return model.User{
		ID:           xid.New().String(),
		Username:     s.config.BootstrapUsername,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz        → liveness
//	GET    /metrics        → Prometheus
//	POST   /users          → register
//	POST   /sessions       → login
//	-- bearer token required below --
//	GET    /users/me       → own profile
//	PATCH  /users/{id}     → change own username/password
//	DELETE /users/{id}     → delete own account (cascades)
//	DELETE /sessions       → logout
//	GET|POST         /notes, PATCH|DELETE /notes/{id}
//	GET|POST         /tags,  PATCH|DELETE /tags/{id}
//
// MIDDLEWARE ORDER: RequestID, RealIP, Logger, Recoverer, Metrics, CORS.
// Logger sits outside Recoverer so recovered panics are logged as 500s.
func (s *Server) setupRoutes(users *handler.UserHandler, sessions *handler.SessionHandler, notes *handler.NoteHandler, tags *handler.TagHandler) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Metrics)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"WWW-Authenticate", "X-Request-Id"},
		MaxAge:         300,
	}))

	s.router.Get("/healthz", handler.HandleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Post("/users", users.HandleRegister)
	s.router.Post("/sessions", sessions.HandleLogin)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.sessions))

		r.Get("/users/me", users.HandleMe)
		r.Patch("/users/{id}", users.HandleUpdate)
		r.Delete("/users/{id}", users.HandleDelete)

		r.Delete("/sessions", sessions.HandleLogout)

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", notes.HandleList)
			r.Post("/", notes.HandleCreate)
			r.Patch("/{id}", notes.HandleUpdate)
			r.Delete("/{id}", notes.HandleDelete)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", tags.HandleList)
			r.Post("/", tags.HandleCreate)
			r.Patch("/{id}", tags.HandleUpdate)
			r.Delete("/{id}", tags.HandleDelete)
		})
	})
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the storage backend.
func (s *Server) Close() error {
	return s.persist.Close()
}

// Start serves HTTP and runs the blacklist sweeper until SIGINT/SIGTERM.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to 30s for in-flight requests
//  3. Stop the sweeper
//  4. Close the storage backend
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		s.sessions.RunSweeper(sweepCtx, s.config.SweepInterval)
	}()
	defer func() {
		stopSweeper()
		<-sweeperDone
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("storage", s.config.StorageDriver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
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
