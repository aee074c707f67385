package matching

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/meetmatch/matchcore/internal/db"
	svcErr "github.com/meetmatch/matchcore/internal/errors"
)

// ActionWriter persists actions and resolves mutual matches.
type ActionWriter interface {
	RecordAction(ctx context.Context, sourceID, targetID string, kind db.ActionKind) (matchID string, mutual bool, err error)
}

// UserLookup confirms both sides of an action exist and records activity.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*db.User, error)
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}

// Invalidator drops a user's cached candidate rankings.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// LikeCountInvalidator drops a user's cached "liked you" count.
type LikeCountInvalidator interface {
	InvalidateLikeCount(ctx context.Context, userID string) error
}

// Result is the outcome of recording an action.
type Result struct {
	Mutual  bool
	MatchID string
}

// Recorder is the single entry point for likes and dislikes.
type Recorder struct {
	users      UserLookup
	actions    ActionWriter
	selector   Invalidator
	likeCounts LikeCountInvalidator // optional
	logger     *slog.Logger
}

func NewRecorder(users UserLookup, actions ActionWriter, selector Invalidator, likeCounts LikeCountInvalidator, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		users:      users,
		actions:    actions,
		selector:   selector,
		likeCounts: likeCounts,
		logger:     logger,
	}
}

// RecordAction stores source's decision about target.
//
// Behavior:
//   - Self-actions, empty ids and unknown kinds are rejected before storage.
//   - Either user missing → errors.ErrNotFound.
//   - A like that completes a pair returns Mutual with the pair's match id;
//     repeating it returns the same id.
//   - Afterwards source's cached rankings are dropped (target's too on a
//     dislike or a mutual match) together with both users' cached like counts.
func (r *Recorder) RecordAction(ctx context.Context, sourceID, targetID string, kind db.ActionKind) (Result, error) {
	sourceID, targetID = strings.TrimSpace(sourceID), strings.TrimSpace(targetID)
	switch {
	case sourceID == "":
		return Result{}, svcErr.Invalid("source_id", "must not be empty")
	case targetID == "":
		return Result{}, svcErr.Invalid("target_id", "must not be empty")
	case sourceID == targetID:
		return Result{}, svcErr.Invalid("target_id", "cannot act on yourself")
	case !kind.Valid():
		return Result{}, svcErr.Invalid("kind", "must be like or dislike")
	}

	for _, id := range []string{sourceID, targetID} {
		if _, err := r.users.GetUser(ctx, id); err != nil {
			return Result{}, err
		}
	}

	matchID, mutual, err := r.actions.RecordAction(ctx, sourceID, targetID, kind)
	if err != nil {
		r.logger.Error("record action failed", "source", sourceID, "target", targetID, "kind", kind, "err", err)
		return Result{}, err
	}

	r.invalidate(ctx, sourceID)
	if mutual || kind == db.ActionDislike {
		// target must stop seeing source after a dislike, or see the match
		r.invalidate(ctx, targetID)
	}
	if mutual {
		r.logger.Info("mutual match", "match_id", matchID, "user1", sourceID, "user2", targetID)
	}
	if r.likeCounts != nil {
		for _, id := range []string{targetID, sourceID} {
			if err := r.likeCounts.InvalidateLikeCount(ctx, id); err != nil {
				r.logger.Warn("like count invalidation failed", "user", id, "err", err)
			}
		}
	}
	if err := r.users.TouchLastActive(ctx, sourceID, time.Now()); err != nil {
		r.logger.Warn("touch last active failed", "user", sourceID, "err", err)
	}

	return Result{Mutual: mutual, MatchID: matchID}, nil
}

func (r *Recorder) invalidate(ctx context.Context, userID string) {
	if err := r.selector.Invalidate(ctx, userID); err != nil {
		r.logger.Error("candidate cache invalidation failed", "user", userID, "err", err)
	}
}
