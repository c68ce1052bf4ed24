// TaskTide desk: local API and UI server in front of the task host.
package main

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
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/tasktide/desk/internal/api"
	"github.com/tasktide/desk/internal/bridge"
	"github.com/tasktide/desk/internal/client"
	"github.com/tasktide/desk/internal/config"
	"github.com/tasktide/desk/internal/metacache"
	"github.com/tasktide/desk/internal/middleware"
	"github.com/tasktide/desk/internal/session"
	"github.com/tasktide/desk/internal/store"
	"github.com/tasktide/desk/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		slog.Error("Invalid log level", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("Starting desk", "port", cfg.Port, "transport", cfg.Bridge.Transport, "dev", cfg.IsDevelopment())

	repo, err := store.NewSQLite(cfg.Session.DBPath, cfg.Session.TTL)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Session store health check failed", "error", err)
		os.Exit(1)
	}
	if n, err := repo.CleanupExpired(context.Background()); err != nil {
		slog.Warn("Failed to remove expired session items", "error", err)
	} else if n > 0 {
		slog.Info("Removed expired session items", "count", n)
	}

	cache := metacache.New(cfg.MetaDir, logger)
	defer func() {
		if closeErr := cache.Close(); closeErr != nil {
			slog.Error("Failed to close metadata cache", "error", closeErr)
		}
	}()

	conn, err := newBridge(cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize host bridge", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Error("Failed to close host bridge", "error", closeErr)
		}
	}()

	gate := bridge.NewGate()
	desk := client.New(conn, gate, session.New(repo, logger), logger)
	desk.Restore()
	if username, ok := desk.Username(); ok {
		slog.Info("Restored session", "username", username)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Waiting for host", "address", cfg.Bridge.Addr)
		if err := bridge.Connect(ctx, conn, gate); err != nil {
			slog.Warn("Host never became ready", "error", err)
			return
		}
		slog.Info("Host bridge ready")
	}()

	store.StartCleanupWorker(ctx, repo, store.DefaultCleanupInterval)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.LocalOnly)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(allowedOrigins(cfg)))

	api.NewHandler(desk, cache, logger).RegisterRoutes(r)
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         "127.0.0.1:" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // calls wait on the host without a deadline
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped successfully")
}

func newBridge(cfg *config.Config, logger *slog.Logger) (bridge.Connector, error) {
	switch cfg.Bridge.Transport {
	case config.TransportWebSocket:
		return bridge.NewWebSocket(bridge.WebSocketConfig{
			URL:            cfg.Bridge.Addr,
			DialInterval:   cfg.Bridge.DialInterval,
			RequestTimeout: cfg.Bridge.RequestTimeout,
		}, logger), nil
	case config.TransportGRPC:
		gc := bridge.DefaultGRPCConfig()
		gc.Address = cfg.Bridge.Addr
		gc.RequestTimeout = cfg.Bridge.RequestTimeout
		return bridge.NewGRPC(gc, logger)
	default:
		return nil, fmt.Errorf("unknown bridge transport %q", cfg.Bridge.Transport)
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" {
		return nil
	}
	return []string{cfg.FrontendURL}
}
