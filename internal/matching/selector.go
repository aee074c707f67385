package matching

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"slices"
	"sort"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/meetmatch/matchcore/internal/cache"
	"github.com/meetmatch/matchcore/internal/db"
	"github.com/meetmatch/matchcore/internal/repository"
)

// UserStore is the part of the user repository the selector reads from.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*db.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]db.User, error)
	ListCandidates(ctx context.Context, forUserID string, f repository.CandidateFilter) ([]db.User, error)
}

// ActionStore answers who a user must not be shown again.
type ActionStore interface {
	ExcludedIDs(ctx context.Context, userID string) ([]string, error)
}

// Ranked is one cached ranking entry.
type Ranked struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}

// Candidate is a user offered as a potential match, with its score.
type Candidate struct {
	User  db.User
	Score float64
}

// Selector produces ranked candidate lists. The full ranking is cached per
// (user, filters) and invalidated whenever the user acts.
type Selector struct {
	users        UserStore
	actions      ActionStore
	scorer       *Scorer
	cache        cache.Store[[]Ranked]
	ttl          time.Duration
	defaultLimit int
	logger       *slog.Logger
}

// SelectorConfig carries the selector's tunables.
type SelectorConfig struct {
	TTL          time.Duration
	DefaultLimit int
}

func NewSelector(
	users UserStore,
	actions ActionStore,
	scorer *Scorer,
	store cache.Store[[]Ranked],
	cfg SelectorConfig,
	logger *slog.Logger,
) *Selector {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		users:        users,
		actions:      actions,
		scorer:       scorer,
		cache:        store,
		ttl:          cfg.TTL,
		defaultLimit: cfg.DefaultLimit,
		logger:       logger,
	}
}

// GetPotentialMatches returns up to limit candidates for userID, best first.
//
// Behavior:
//   - limit <= 0 uses the configured default.
//   - Unknown user → errors.ErrNotFound. Ineligible user → empty list.
//   - Never returns the user, anyone they acted on, or anyone who disliked them.
//   - Ordering is score DESC then user id ASC, so equal scores are stable.
//   - Storage errors propagate; cache errors are logged and treated as a miss.
func (s *Selector) GetPotentialMatches(ctx context.Context, userID string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Eligible() {
		s.logger.Debug("requester not eligible for matching", "user", userID)
		return []Candidate{}, nil
	}

	key := CacheKey(user)
	if ranked, ok := s.cached(ctx, key); ok {
		// a missed invalidation must not resurface anyone acted on since
		excluded, err := s.actions.ExcludedIDs(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return s.hydrate(ctx, ranked, excluded, limit)
	}

	ranked, byID, err := s.rank(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, ranked, s.ttl); err != nil {
		s.logger.Warn("candidate cache write failed", "key", key, "err", err)
	}

	out := make([]Candidate, 0, min(limit, len(ranked)))
	for _, r := range ranked[:min(limit, len(ranked))] {
		out = append(out, Candidate{User: byID[r.UserID], Score: r.Score})
	}
	return out, nil
}

// Invalidate drops every cached ranking of userID.
func (s *Selector) Invalidate(ctx context.Context, userID string) error {
	return s.cache.Invalidate(ctx, CachePrefix(userID))
}

func (s *Selector) cached(ctx context.Context, key string) ([]Ranked, bool) {
	ranked, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("candidate cache read failed", "key", key, "err", err)
		return nil, false
	}
	return ranked, ok
}

// rank scores every eligible candidate and returns the accepted ones in
// final order.
func (s *Selector) rank(ctx context.Context, user *db.User) ([]Ranked, map[string]db.User, error) {
	excluded, err := s.actions.ExcludedIDs(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	filter := repository.CandidateFilter{ExcludeIDs: excluded, ActiveOnly: true}
	if s.scorer.HardGate() {
		// non-compliant candidates would be dropped anyway; let SQL do it
		prefs := user.Preferences.Data()
		filter.Genders = prefs.Genders
		filter.MinAge = prefs.MinAge
		filter.MaxAge = prefs.MaxAge
	}

	candidates, err := s.users.ListCandidates(ctx, user.ID, filter)
	if err != nil {
		return nil, nil, err
	}

	ranked := make([]Ranked, 0, len(candidates))
	byID := make(map[string]db.User, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if c.ID == user.ID || !c.Eligible() {
			continue
		}
		b := s.scorer.Score(user, c)
		if !s.scorer.Accept(b) {
			continue
		}
		ranked = append(ranked, Ranked{UserID: c.ID, Score: b.Total})
		byID[c.ID] = *c
	}
	sortRanked(ranked)

	s.logger.Debug("ranked candidates",
		"user", user.ID, "scanned", len(candidates), "accepted", len(ranked), "excluded", len(excluded))
	return ranked, byID, nil
}

// hydrate loads cached ids in order, skipping excluded users and users that
// vanished or became ineligible since the ranking was cached. excluded is
// sorted.
func (s *Selector) hydrate(ctx context.Context, ranked []Ranked, excluded []string, limit int) ([]Candidate, error) {
	out := make([]Candidate, 0, min(limit, len(ranked)))
	for start := 0; start < len(ranked) && len(out) < limit; {
		end := min(len(ranked), start+limit-len(out))
		chunk := make([]Ranked, 0, end-start)
		for _, r := range ranked[start:end] {
			if _, found := slices.BinarySearch(excluded, r.UserID); !found {
				chunk = append(chunk, r)
			}
		}
		start = end
		if len(chunk) == 0 {
			continue
		}

		ids := make([]string, 0, len(chunk))
		for _, r := range chunk {
			ids = append(ids, r.UserID)
		}
		users, err := s.users.GetUsersByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]db.User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}

		for _, r := range chunk {
			if u, ok := byID[r.UserID]; ok && u.Eligible() {
				out = append(out, Candidate{User: u, Score: r.Score})
			}
		}
	}
	return out, nil
}

func sortRanked(r []Ranked) {
	sort.SliceStable(r, func(i, j int) bool {
		if r[i].Score != r[j].Score {
			return r[i].Score > r[j].Score
		}
		return r[i].UserID < r[j].UserID
	})
}

// CachePrefix is the key prefix shared by all cached rankings of userID.
func CachePrefix(userID string) string {
	return "candidates:" + userID + ":"
}

// CacheKey identifies a ranking by user and by everything in the user's
// profile that shapes it, so a profile edit never serves a stale list.
func CacheKey(user *db.User) string {
	prefs := user.Preferences.Data()
	genders := slices.Clone(prefs.Genders)
	slices.Sort(genders)
	interests := slices.Clone([]string(user.Interests))
	slices.Sort(interests)

	filters := struct {
		Genders        []string    `json:"g"`
		MinAge         *int        `json:"min"`
		MaxAge         *int        `json:"max"`
		MaxDistanceKm  *float64    `json:"d"`
		InterestWeight *float64    `json:"iw"`
		Location       db.Location `json:"loc"`
		Interests      []string    `json:"i"`
	}{genders, prefs.MinAge, prefs.MaxAge, prefs.MaxDistanceKm, prefs.InterestWeight, user.Location.Data(), interests}

	raw, _ := json.Marshal(filters)
	sum := blake2b.Sum256(raw)
	return CachePrefix(user.ID) + hex.EncodeToString(sum[:12])
}
