package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/meetmatch/matchcore/internal/cache"
	"github.com/meetmatch/matchcore/internal/config"
	svcErr "github.com/meetmatch/matchcore/internal/errors"
	"github.com/meetmatch/matchcore/internal/matching"
	"github.com/meetmatch/matchcore/internal/ratelimit"
	"github.com/meetmatch/matchcore/internal/repository"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.) and the
// services built on them. It is constructed once at startup and passed to
// every registrar; nothing in here is a package-level singleton.
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache // nil when Redis is not configured
	Logger     *slog.Logger
	Config     *config.Config

	Users    *repository.UserRepository
	Actions  *repository.ActionRepository
	Scorer   *matching.Scorer
	Selector *matching.Selector
	Recorder *matching.Recorder
	Limiter  ratelimit.Limiter
}

// New creates a new AppContext and wires the matching services.
//
// Backends for the result cache and the rate limiter are chosen by
// configuration; asking for "redis" without a Redis client is a
// *errors.ConfigurationError.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) (*AppContext, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Config:     cfg,
		Users:      repository.NewUserRepository(db),
		Actions:    repository.NewActionRepository(db),
		Scorer:     matching.NewScorer(cfg.Match),
	}

	var store cache.Store[[]matching.Ranked]
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		if rdb == nil {
			return nil, svcErr.Configuration("CACHE_BACKEND", "redis backend requires REDIS_ADDR")
		}
		store = cache.NewRedisStore[[]matching.Ranked](rdb.Client, "matchcore:")
	default:
		store = cache.NewMemory[[]matching.Ranked](cfg.Cache.MaxSize, nil)
	}
	logger.Info("result cache backend", "backend", cfg.Cache.Backend, "max_size", cfg.Cache.MaxSize, "ttl", cfg.Cache.TTL)

	switch cfg.RateLimit.Backend {
	case config.BackendRedis:
		if rdb == nil {
			return nil, svcErr.Configuration("RATE_LIMIT_BACKEND", "redis backend requires REDIS_ADDR")
		}
		a.Limiter = ratelimit.NewRedis(rdb.Client, cfg.RateLimit.Limits, logger, nil)
	default:
		a.Limiter = ratelimit.NewMemory(cfg.RateLimit.Limits, logger, nil)
		logger.Warn("rate limits are process-local; run a single instance or set RATE_LIMIT_BACKEND=redis")
	}
	logger.Info("rate limiter backend", "backend", cfg.RateLimit.Backend, "actions", len(cfg.RateLimit.Limits))

	a.Selector = matching.NewSelector(a.Users, a.Actions, a.Scorer, store, matching.SelectorConfig{
		TTL:          cfg.Cache.TTL,
		DefaultLimit: cfg.Match.DefaultLimit,
	}, logger)

	// a nil *RedisCache must not end up inside the interface
	var likeCounts matching.LikeCountInvalidator
	if rdb != nil {
		likeCounts = rdb
	}
	a.Recorder = matching.NewRecorder(a.Users, a.Actions, a.Selector, likeCounts, logger)

	return a, nil
}
