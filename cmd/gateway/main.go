package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cheluen/new-api-workers/internal/auth"
	"github.com/cheluen/new-api-workers/internal/cache"
	"github.com/cheluen/new-api-workers/internal/config"
	"github.com/cheluen/new-api-workers/internal/dispatch"
	"github.com/cheluen/new-api-workers/internal/domain"
	"github.com/cheluen/new-api-workers/internal/ledger"
	"github.com/cheluen/new-api-workers/internal/meter"
	"github.com/cheluen/new-api-workers/internal/registry"
	"github.com/cheluen/new-api-workers/internal/relay"
	"github.com/cheluen/new-api-workers/internal/selector"
	"github.com/cheluen/new-api-workers/internal/server"
	"github.com/cheluen/new-api-workers/internal/storage"
	"github.com/cheluen/new-api-workers/internal/telemetry"
	"github.com/cheluen/new-api-workers/internal/tokens"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("new-api-workers", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load(os.Getenv("NAW_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := storage.Open(storage.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
	})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	reg := registry.NewSQL(db)
	if err := seedChannels(context.Background(), reg, cfg.Channels); err != nil {
		log.Fatalf("Failed to seed channels: %v", err)
	}

	var channelCache cache.ChannelCache
	if cfg.Cache.RedisURL != "" {
		channelCache, err = cache.NewRedis(context.Background(), cfg.Cache.RedisURL, logger)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
	} else {
		channelCache = cache.NewMemory()
	}

	sel := selector.New(reg, channelCache, selector.WithTTL(cfg.Cache.TTL))

	var dispatchOpts []dispatch.Option
	if cfg.Relay.HopURL != "" {
		dispatchOpts = append(dispatchOpts, dispatch.WithHop(cfg.Relay.HopURL, cfg.Relay.HopSecret))
		logger.Info("forwarding hop enabled", slog.String("hop_url", cfg.Relay.HopURL))
	}
	disp := dispatch.New(dispatchOpts...)

	var relayOpts []relay.Option
	if cfg.Relay.EstimateMissingUsage {
		relayOpts = append(relayOpts, relay.WithEstimator(tokens.NewEstimator()))
	}

	engine := relay.New(
		sel,
		disp,
		meter.New(cfg.Relay.CompletionRatio),
		ledger.NewSQL(db),
		reg,
		logger,
		relayOpts...,
	)

	srv := server.New(cfg.Server.Port, logger, auth.NewSQL(db), engine)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case sig := <-sigChan:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("gateway shutdown complete")
}

// seedChannels upserts channels declared in the config file so a fresh
// deployment can serve traffic without touching the database by hand.
func seedChannels(ctx context.Context, reg *registry.SQLRegistry, channels []config.ChannelConfig) error {
	for _, cc := range channels {
		status := domain.ChannelStatusEnabled
		if cc.Disabled {
			status = domain.ChannelStatusDisabled
		}
		ch := domain.Channel{
			Name:     cc.Name,
			Type:     domain.ChannelType(cc.Type),
			Key:      cc.Key,
			BaseURL:  cc.BaseURL,
			Models:   cc.Models,
			ModelMap: cc.ModelMap,
			Status:   status,
			Priority: cc.Priority,
			Weight:   cc.Weight,
		}
		if err := reg.Upsert(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}
