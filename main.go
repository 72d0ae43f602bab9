// Command roomd is the room backend for online imposter games: rooms, players,
// chat and votes over HTTP, with per-room change streams over SSE and websockets.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aaronzipp/imposter/internal/config"
	"github.com/aaronzipp/imposter/internal/handlers"
	"github.com/aaronzipp/imposter/internal/logging"
	"github.com/aaronzipp/imposter/internal/store"
	"github.com/aaronzipp/imposter/internal/store/migrations"
	"github.com/aaronzipp/imposter/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logging.Setup(os.Stdout, cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	rooms, accounts, closeStores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	pingCtx, cancel := context.WithTimeout(ctx, cfg.BackendTimeout)
	if err := rooms.Ping(pingCtx); err != nil {
		log.Warn("backend not reachable yet", "error", err)
	} else {
		log.Info("backend reachable")
	}
	cancel()

	svc := users.NewService(accounts, users.DefaultHasher(), users.NewTokenManager(cfg.JWTKey, cfg.TokenTTL))
	h := handlers.NewContext(rooms, svc, log, cfg.PublicURL, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStores picks PostgreSQL when DATABASE_URL is set and process memory otherwise
func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Backend, users.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, rooms and users live in memory")
		return store.NewMemory(), users.NewMemoryStore(), func() {}, nil
	}

	if err := migrations.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, nil, err
	}
	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Info("using postgres")
	return pg, users.NewPostgresStore(pg.Pool()), pg.Close, nil
}
