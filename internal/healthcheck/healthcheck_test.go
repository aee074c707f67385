package healthcheck_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/meetmatch/matchcore/internal/cache"
	"github.com/meetmatch/matchcore/internal/config"
	"github.com/meetmatch/matchcore/internal/healthcheck"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return database
}

func get(t *testing.T, h http.Handler, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestLiveness(t *testing.T) {
	code, body := get(t, healthcheck.Router(openDB(t), nil), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestReadiness(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	rdb := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rdb.Close() })

	database := openDB(t)
	router := healthcheck.Router(database, rdb)

	code, body := get(t, router, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "ok", checks["redis"])

	t.Run("redis down", func(t *testing.T) {
		mr.Close()
		code, body := get(t, router, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unavailable", body["status"])
		assert.NotEqual(t, "ok", body["checks"].(map[string]any)["redis"])
	})
}

func TestReadiness_DatabaseClosed(t *testing.T) {
	database := openDB(t)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	code, body := get(t, healthcheck.Router(database, nil), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	checks := body["checks"].(map[string]any)
	assert.NotEqual(t, "ok", checks["database"])
	assert.NotContains(t, checks, "redis")
}
