package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eduadmin/apiserver/config"
	"github.com/eduadmin/apiserver/internal/cache"
	"github.com/eduadmin/apiserver/internal/db"
	"github.com/eduadmin/apiserver/internal/handlers"
	"github.com/eduadmin/apiserver/internal/logger"
	"github.com/eduadmin/apiserver/internal/mq"
	"github.com/eduadmin/apiserver/internal/services"
	"github.com/eduadmin/apiserver/internal/storage"
	"github.com/eduadmin/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	closers    []io.Closer
}

// New connects every configured dependency and builds the router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	updateMode, err := services.ParseUpdateMode(cfg.Students.UpdateMode)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Server{db: dbConn}

	roles, err := store.LoadRoleRegistry(ctx, store.NewRoleRepository(dbConn))
	if err != nil {
		s.close()
		return nil, fmt.Errorf("load roles: %w", err)
	}
	studentRoleID, err := roles.ID(cfg.Students.RoleName)
	if err != nil {
		s.close()
		return nil, err
	}

	opts := []services.StudentOption{services.WithUpdateMode(updateMode)}

	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, client)
		opts = append(opts, services.WithDetailCache(cache.NewStudentCache(client, cfg.Redis.DetailTTL)))
	}

	backend, err := mq.NewBackend(ctx, cfg.MQ)
	if err != nil {
		s.close()
		return nil, err
	}
	if backend != nil {
		s.closers = append(s.closers, backend)
		opts = append(opts, services.WithEventPublisher(mq.NewStudentEvents(backend, cfg.Students.EventsChannel)))
	}

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		s.close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	studentRepo := store.NewStudentRepository(dbConn, studentRoleID)

	userService := services.NewUserService(userRepo)
	studentService := services.NewStudentService(studentRepo, userRepo, studentRoleID, opts...)
	var objectStore services.ObjectStore
	if objects != nil {
		objectStore = objects
	}
	rosterService := services.NewRosterService(studentService, objectStore)

	authMiddleware := handlers.RequireAuth(cfg.JWTSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/students", func(r chi.Router) {
		handlers.StudentRouter(r, studentService, rosterService, authMiddleware)
	})
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, cfg.JWTSecret)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info().
		Int("port", port).
		Int("student_role_id", studentRoleID).
		Str("update_mode", string(updateMode)).
		Bool("cache", cfg.Redis.Addr != "").
		Str("mq", cfg.MQ.Backend).
		Str("storage", cfg.Storage.Backend).
		Msg("server configured")
	return s, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and then releases every connection.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			logger.Warn().Err(err).Msg("close dependency")
		}
	}
	s.closers = nil
	if s.db != nil {
		_ = s.db.Close()
	}
}
