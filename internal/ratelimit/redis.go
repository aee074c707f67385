package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/meetmatch/matchcore/internal/config"
	svcErr "github.com/meetmatch/matchcore/internal/errors"
)

// slidingWindow prunes, counts and admits atomically.
//
// KEYS[1] = window key
// ARGV    = now (µs), window (µs), limit, member
// returns {allowed, retry_after_µs}
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
if redis.call('ZCARD', KEYS[1]) >= limit then
	local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
	if oldest[2] == nil then
		return {0, window}
	end
	return {0, tonumber(oldest[2]) + window - now}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], math.ceil(window / 1000))
return {1, 0}
`)

// Redis is the shared sliding-window limiter.
type Redis struct {
	table

	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ Limiter = (*Redis)(nil)

// NewRedis creates a limiter whose windows live under "ratelimit:" in the
// given Redis. now may be nil; timestamps come from the caller's clock so
// instances need reasonably synchronized clocks.
func NewRedis(client *redis.Client, limits map[string]config.Limit, logger *slog.Logger, now func() time.Time) *Redis {
	if now == nil {
		now = time.Now
	}
	return &Redis{
		table:  newTable(limits, logger),
		client: client,
		prefix: "ratelimit:",
		now:    now,
	}
}

func (r *Redis) Allow(ctx context.Context, userID, action string) (Decision, error) {
	limit, ok, err := r.lookup(userID, action)
	if err != nil || !ok {
		return Decision{Allowed: err == nil}, err
	}

	key := r.prefix + strings.ToLower(action) + ":" + userID
	res, err := slidingWindow.Run(ctx, r.client, []string{key},
		r.now().UnixMicro(),
		limit.Window.Microseconds(),
		limit.Count,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, &svcErr.StorageError{Op: "rate limit", Err: err}
	}
	if len(res) != 2 {
		return Decision{}, &svcErr.StorageError{Op: "rate limit", Err: fmt.Errorf("unexpected script reply %v", res)}
	}

	if res[0] == 1 {
		return Decision{Allowed: true}, nil
	}
	return Decision{RetryAfter: time.Duration(res[1]) * time.Microsecond}, nil
}
