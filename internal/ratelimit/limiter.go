// Package ratelimit implements per-user, per-action sliding-window admission.
//
// Two backends share the same algorithm:
//
//   - Memory keeps windows in process. Not durable, not shared between
//     instances; each process enforces its own limits.
//   - Redis keeps each window in a sorted set updated by one Lua script, so
//     every instance pointed at the same Redis enforces one global limit.
//
// Which one runs is an explicit configuration choice (RATE_LIMIT_BACKEND).
package ratelimit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/meetmatch/matchcore/internal/config"
	svcErr "github.com/meetmatch/matchcore/internal/errors"
)

// Decision is the outcome of an admission check. A denial is a normal
// result, not an error.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter admits or denies an action for a user.
type Limiter interface {
	Allow(ctx context.Context, userID, action string) (Decision, error)
}

// table resolves limits and handles actions that have none configured.
type table struct {
	limits map[string]config.Limit
	logger *slog.Logger
}

func newTable(limits map[string]config.Limit, logger *slog.Logger) table {
	if logger == nil {
		logger = slog.Default()
	}
	normalized := make(map[string]config.Limit, len(limits))
	for action, l := range limits {
		normalized[strings.ToLower(action)] = l
	}
	return table{limits: normalized, logger: logger}
}

// lookup returns the limit for action; ok is false when the action is not
// rate limited at all.
func (t table) lookup(userID, action string) (config.Limit, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return config.Limit{}, false, svcErr.Invalid("user_id", "must not be empty")
	}
	l, ok := t.limits[strings.ToLower(action)]
	if !ok {
		t.logger.Warn("no rate limit configured, admitting", "action", action, "user", userID)
	}
	return l, ok, nil
}
