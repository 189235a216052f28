// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/slotswap/internal/auth"
	"github.com/Shivanand-hulikatti/slotswap/internal/cache"
	"github.com/Shivanand-hulikatti/slotswap/internal/config"
	"github.com/Shivanand-hulikatti/slotswap/internal/database"
	"github.com/Shivanand-hulikatti/slotswap/internal/handler"
	"github.com/Shivanand-hulikatti/slotswap/internal/notify"
	"github.com/Shivanand-hulikatti/slotswap/internal/repository"
	"github.com/Shivanand-hulikatti/slotswap/internal/service"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ── 1. Configuration & logger ────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 2. Storage ───────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 3. Notifications & cache ─────────────────────────────────────────
	hub := notify.NewHub(log, originChecker(cfg.Origins()))
	defer hub.Close()

	var (
		notifier       service.Notifier = hub
		swappableCache service.SwappableCache
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		log.Info("connected to redis", "addr", cfg.RedisAddr)

		fanout := notify.NewRedisFanout(rdb, cfg.NotifyChannel, hub, log)
		go func() {
			if err := fanout.Run(ctx); err != nil {
				log.Error("notification relay stopped", "error", err)
			}
		}()
		notifier = fanout
		if cfg.SwappableCacheTTL > 0 {
			swappableCache = cache.NewRedisSwappableCache(rdb, cfg.SwappableCacheTTL)
		}
	}

	// ── 4. Wire up layers ────────────────────────────────────────────────
	clock := service.SystemClock{}
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := service.NewAuthService(store, tokens, clock, log)
	eventSvc := service.NewEventService(store, clock, log, cfg.PastGrace)
	swapSvc := service.NewSwapService(store, notifier, clock, log)
	availability := service.NewAvailabilityIndex(eventSvc, swappableCache, log)

	router := handler.NewRouter(handler.Routes{
		Auth:           handler.NewAuthHandler(authSvc, log),
		Events:         handler.NewEventHandler(eventSvc, clock, log),
		Swaps:          handler.NewSwapHandler(swapSvc, availability, log),
		Notifications:  hub,
		Tokens:         tokens,
		AllowedOrigins: cfg.Origins(),
		Log:            log,
	})

	// ── 5. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	log.Info("connected to postgres")
	if cfg.MigrationsEnabled {
		if err := database.RunMigrations(cfg.DatabaseURL, log); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return repository.NewPostgresStore(pool), pool.Close, nil
}

// originChecker accepts websocket upgrades from the configured origins.
// Requests without an Origin header come from non-browser clients.
func originChecker(origins []string) func(*http.Request) bool {
	if slices.Contains(origins, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
