package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meetmatch/matchcore/internal/app"
	"github.com/meetmatch/matchcore/internal/cache"
	"github.com/meetmatch/matchcore/internal/config"
	"github.com/meetmatch/matchcore/internal/db"
	"github.com/meetmatch/matchcore/internal/healthcheck"
	"github.com/meetmatch/matchcore/internal/logger"
	"github.com/meetmatch/matchcore/internal/server"
	"github.com/meetmatch/matchcore/internal/service/match"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC API and the HTTP health endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		return err
	}

	redisCache, err := connectRedis(ctx, cfg, log)
	if err != nil {
		return err
	}
	if redisCache != nil {
		defer redisCache.Close()
	}

	appCtx, err := app.New(cfg, database, redisCache, log)
	if err != nil {
		return err
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.StartGRPCServer(ctx, cfg, log, match.NewRegistrar(appCtx))
	})
	g.Go(func() error {
		addr := ":" + cfg.HTTP.Port
		return healthcheck.Start(ctx, addr, healthcheck.Router(database, redisCache), log)
	})

	err = g.Wait()
	log.Info("shutdown complete", "err", err)
	return err
}

// connectRedis returns nil when Redis is unreachable and nothing requires it;
// the like-count cache then falls back to the database.
func connectRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) (*cache.RedisCache, error) {
	required := cfg.Cache.Backend == config.BackendRedis || cfg.RateLimit.Backend == config.BackendRedis

	rc := cache.NewRedisCache(cfg)
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		if required {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		log.Warn("redis unavailable, like counts served from the database", "addr", cfg.Redis.Addr, "err", err)
		return nil, nil
	}
	return rc, nil
}
