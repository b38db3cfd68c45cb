package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/mfriedenberg/todo-api-GO/internal/config"
	"github.com/mfriedenberg/todo-api-GO/internal/middleware"
	"github.com/mfriedenberg/todo-api-GO/internal/todos"
	"github.com/mfriedenberg/todo-api-GO/internal/tracing"
)

func main() {
	cfg, err := config.Load(flag.NewFlagSet("todo-api", flag.ExitOnError), os.Args[1:])
	if err != nil {
		slog.Error("config_error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	instanceID := uuid.NewString()
	logger := newLogger(cfg.LogLevel).With(slog.String("instance", instanceID))
	slog.SetDefault(logger) // for third-party packages that use slog

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("tracing_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing_shutdown_error", slog.String("error", err.Error()))
		}
	}()

	repo, cleanup, err := newRepo(ctx, cfg)
	if err != nil {
		logger.Error("storage_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	r := newRouter(repo, cfg, logger, instanceID)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen",
			slog.String("addr", cfg.Addr),
			slog.String("storage", cfg.Storage),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("server_shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown_error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
}

// newRepo picks the storage backend. The file backend refuses to start on
// a corrupt data file rather than treating it as empty.
func newRepo(ctx context.Context, cfg *config.Config) (todos.Repository, func(), error) {
	switch cfg.Storage {
	case "sqlite":
		dsn, err := todos.SQLiteFileDSN(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		repo, err := todos.NewSQLiteRepo(dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.ApplyMigrations(ctx); err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	default:
		repo, err := todos.NewFileRepo(cfg.DataFile)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}

// newRouter wires the middleware stack, the todo API, the health and
// metrics endpoints, and the static browser client.
func newRouter(repo todos.Repository, cfg *config.Config, logger *slog.Logger, instanceID string) *chi.Mux {
	r := chi.NewRouter()

	// RequestID first so downstream can include it (logger, spans)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(15 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(middleware.RateLimitMiddleware(middleware.NewLimiter(cfg.RateRPS, cfg.RateBurst)))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":   "ok",
			"instance": instanceID,
		})
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	todos.RegisterRoutes(r, repo)

	// Browser client. API and client share one origin so the client
	// needs no CORS of its own.
	if cfg.WebDir != "" {
		fileServer(r, cfg.WebDir)
	}

	return r
}

func fileServer(r chi.Router, dir string) {
	fs := http.FileServer(http.Dir(dir))
	r.Get("/", fs.ServeHTTP)
	r.Get("/*", fs.ServeHTTP)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}
