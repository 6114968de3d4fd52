package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/classifier"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/config"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/discord"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/domain"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/filestore"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/ledger"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/logging"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/query"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/redis"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/scheduler"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupStore(cfg *config.Config) (domain.Store, func()) {
	if cfg.RedisURL == "" {
		slog.Info("Using file-backed state store", "path", cfg.DataFile)
		return filestore.New(cfg.DataFile), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("Using Redis-backed state store")
	return redis.NewStore(client), func() { _ = client.Close() }
}

func runGracefulShutdown(srv *server.Server, adapter *discord.Adapter, sched *scheduler.Scheduler, led *ledger.Ledger) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		if err := adapter.Close(); err != nil {
			slog.Error("Discord session close error", "error", err)
		}

		sched.Stop()
		led.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	store, closeStore := setupStore(cfg)
	defer closeStore()

	led := ledger.New(store)
	led.Start()

	cls := classifier.New(store)
	queries := query.New(store, clock)

	adapter, err := discord.New(cfg.DiscordToken, cfg.CommandPrefix, led, cls, queries)
	if err != nil {
		slog.Error("Failed to create Discord adapter", "error", err)
		os.Exit(1)
	}
	if err := adapter.Open(); err != nil {
		slog.Error("Failed to open Discord gateway", "error", err)
		os.Exit(1)
	}

	delivery := discord.NewReminderDelivery(adapter.Session())
	sched := scheduler.New(store, led, delivery, clock, cfg.ReminderThresholdDays, cfg.ReminderInterval)
	sched.Start()

	srv := server.NewServer(cfg.Port, queries)
	done := runGracefulShutdown(srv, adapter, sched, led)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
