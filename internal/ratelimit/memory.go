package ratelimit

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/meetmatch/matchcore/internal/config"
)

type windowKey struct {
	userID string
	action string
}

// Memory is the in-process sliding-window limiter. Every call prunes the
// window first, so a user never holds more than limit timestamps per action.
// Windows of idle users are swept once per shortest configured window, so the
// map only holds users active within the longest one.
type Memory struct {
	table

	mu        sync.Mutex
	windows   map[windowKey][]time.Time
	now       func() time.Time
	sweepStep time.Duration
	lastSweep time.Time
}

var _ Limiter = (*Memory)(nil)

// NewMemory creates a limiter for the given table. now may be nil.
func NewMemory(limits map[string]config.Limit, logger *slog.Logger, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	m := &Memory{
		table:   newTable(limits, logger),
		windows: make(map[windowKey][]time.Time),
		now:     now,
	}
	for _, l := range m.limits {
		if m.sweepStep == 0 || l.Window < m.sweepStep {
			m.sweepStep = l.Window
		}
	}
	m.lastSweep = now()
	return m
}

func (m *Memory) Allow(_ context.Context, userID, action string) (Decision, error) {
	limit, ok, err := m.lookup(userID, action)
	if err != nil || !ok {
		return Decision{Allowed: err == nil}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)
	key := windowKey{userID: userID, action: strings.ToLower(action)}
	stamps := prune(m.windows[key], now.Add(-limit.Window))

	if len(stamps) >= limit.Count {
		m.windows[key] = stamps
		return Decision{RetryAfter: stamps[0].Add(limit.Window).Sub(now)}, nil
	}

	m.windows[key] = append(stamps, now)
	return Decision{Allowed: true}, nil
}

// sweep prunes every window and forgets the ones left empty. m.mu is held.
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.sweepStep {
		return
	}
	m.lastSweep = now
	for key, stamps := range m.windows {
		stamps = prune(stamps, now.Add(-m.limits[key.action].Window))
		if len(stamps) == 0 {
			delete(m.windows, key)
			continue
		}
		m.windows[key] = stamps
	}
}

// prune drops timestamps at or before cutoff. stamps is ordered.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}
