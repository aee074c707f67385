package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetmatch/matchcore/internal/config"
	svcErr "github.com/meetmatch/matchcore/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.7, cfg.Match.Threshold)
	assert.Equal(t, 0.3, cfg.Match.LocationWeight)
	assert.Equal(t, 0.5, cfg.Match.InterestsWeight)
	assert.Equal(t, 0.2, cfg.Match.PreferencesWeight)
	assert.True(t, cfg.Match.PreferenceHardGate)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, config.BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, config.Limit{Count: 20, Window: time.Minute}, cfg.RateLimit.Limits["like"])
	assert.Equal(t, config.Limit{Count: 5, Window: time.Hour}, cfg.RateLimit.Limits["report"])
	assert.Contains(t, cfg.DB.DSN, "port=5432")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "0.5")
	t.Setenv("LOCATION_WEIGHT", "0.4")
	t.Setenv("INTERESTS_WEIGHT", "0.4")
	t.Setenv("PREFERENCES_WEIGHT", "0.2")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_MAX_SIZE", "50")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("RATE_LIMITS", "like=3/10s, report=1/3600")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Match.Threshold)
	assert.Equal(t, 0.4, cfg.Match.LocationWeight)
	assert.Equal(t, config.BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 50, cfg.Cache.MaxSize)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Contains(t, cfg.DB.DSN, "@tcp(localhost:3306)/meetmatch")
	assert.Equal(t, config.Limit{Count: 3, Window: 10 * time.Second}, cfg.RateLimit.Limits["like"])
	assert.Equal(t, config.Limit{Count: 1, Window: time.Hour}, cfg.RateLimit.Limits["report"])
	// untouched defaults survive the override
	assert.Equal(t, 30, cfg.RateLimit.Limits["message"].Count)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetmatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
match:
  threshold: 0.25
ratelimit:
  backend: redis
  limits:
    like:
      count: 7
      window: 30s
`), 0o600))
	t.Setenv("MEETMATCH_CONFIG", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Match.Threshold)
	assert.Equal(t, config.BackendRedis, cfg.RateLimit.Backend)
	assert.Equal(t, config.Limit{Count: 7, Window: 30 * time.Second}, cfg.RateLimit.Limits["like"])
	assert.Equal(t, 60, cfg.RateLimit.Limits["dislike"].Count)
}

func TestLoadRejectsBadConfiguration(t *testing.T) {
	cases := map[string]map[string]string{
		"weights do not sum to one": {"LOCATION_WEIGHT": "0.5"},
		"threshold out of range":    {"MATCH_THRESHOLD": "1.5"},
		"unknown cache backend":     {"CACHE_BACKEND": "memcached"},
		"unknown limiter backend":   {"RATE_LIMIT_BACKEND": "etcd"},
		"zero cache size":           {"CACHE_MAX_SIZE": "0"},
		"bad rate limit entry":      {"RATE_LIMITS": "like"},
		"zero rate limit count":     {"RATE_LIMITS": "like=0/60s"},
		"unsupported driver":        {"DB_DRIVER": "oracle"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			var ce *svcErr.ConfigurationError
			require.ErrorAs(t, err, &ce)
		})
	}
}

func TestParseRateLimits(t *testing.T) {
	limits, err := config.ParseRateLimits("Like=20/60, report=5/1h,")
	require.NoError(t, err)
	assert.Equal(t, map[string]config.Limit{
		"like":   {Count: 20, Window: time.Minute},
		"report": {Count: 5, Window: time.Hour},
	}, limits)

	_, err = config.ParseRateLimits("like=x/60s")
	assert.Error(t, err)
	_, err = config.ParseRateLimits("like=5/soon")
	assert.Error(t, err)
}
