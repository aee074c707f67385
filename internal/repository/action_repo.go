package repository

import (
	"context"
	"errors"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/meetmatch/matchcore/internal/db"
	svcErr "github.com/meetmatch/matchcore/internal/errors"
	"github.com/meetmatch/matchcore/internal/utils/pagination"
)

// ActionRepository provides data access methods for the Action and Match models.
// It encapsulates all queries related to likes/dislikes between users.
type ActionRepository struct {
	db *gorm.DB
}

// NewActionRepository creates a new repository bound to the given DB connection.
func NewActionRepository(database *gorm.DB) *ActionRepository {
	return &ActionRepository{db: database}
}

// dislikedBy excludes sources the recipient explicitly disliked.
const dislikedBy = `
	NOT EXISTS (
		SELECT 1 FROM actions a2
		WHERE a2.source_id = ?
		  AND a2.target_id = a.source_id
		  AND a2.kind = 'dislike'
	)`

// UpsertAction inserts or updates the action made by source -> target.
//
// Behavior:
//   - If (source_id, target_id) pair exists → kind and updated_at are overwritten.
//   - If it doesn’t exist → a new row is inserted.
//   - Composite PK ensures overwrite guarantee.
//
// Example:
//
//	repo.UpsertAction(ctx, "1", "2", db.ActionLike) // user 1 liked user 2
func (r *ActionRepository) UpsertAction(ctx context.Context, sourceID, targetID string, kind db.ActionKind) error {
	action := db.Action{
		SourceID: sourceID,
		TargetID: targetID,
		Kind:     kind,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "updated_at"}),
		}).
		Create(&action).Error
	return svcErr.Storage("upsert action", err)
}

// RecordAction stores the action and resolves a mutual match.
//
// Behavior:
//   - like: after the upsert, a reciprocal like means a match; the match row
//     is inserted with ON CONFLICT DO NOTHING and its derived id returned.
//   - dislike: any existing match between the pair is removed.
//   - Statements are not wrapped in one transaction, so the upsert is visible
//     to a concurrent reciprocal like before this call checks for one.
//
// Returns the match id ("" when there is none) and whether the pair is mutual.
func (r *ActionRepository) RecordAction(ctx context.Context, sourceID, targetID string, kind db.ActionKind) (string, bool, error) {
	if err := r.UpsertAction(ctx, sourceID, targetID, kind); err != nil {
		return "", false, err
	}

	if kind == db.ActionDislike {
		lo, hi := db.SortedPair(sourceID, targetID)
		err := r.db.WithContext(ctx).
			Where("user1_id = ? AND user2_id = ?", lo, hi).
			Delete(&db.Match{}).Error
		return "", false, svcErr.Storage("unmatch", err)
	}

	mutual, err := r.HasLiked(ctx, targetID, sourceID)
	if err != nil || !mutual {
		return "", false, err
	}

	match := db.NewMatch(sourceID, targetID)
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&match).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", false, svcErr.Storage("create match", err)
	}
	return match.ID, true, nil
}

// HasLiked checks whether source has liked target.
//
// Example:
//
//	repo.HasLiked(ctx, "1", "2") // -> true if user 1 liked user 2
func (r *ActionRepository) HasLiked(ctx context.Context, sourceID, targetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("actions a").
		Where("a.source_id = ? AND a.target_id = ? AND a.kind = ?", sourceID, targetID, db.ActionLike).
		Count(&count).Error
	if err != nil {
		return false, svcErr.Storage("has liked", err)
	}
	return count > 0, nil
}

// ExcludedIDs returns every user that must never be offered to userID as a
// candidate: anyone userID already acted on, plus anyone who disliked userID.
func (r *ActionRepository) ExcludedIDs(ctx context.Context, userID string) ([]string, error) {
	var acted []string
	err := r.db.WithContext(ctx).
		Model(&db.Action{}).
		Where("source_id = ?", userID).
		Pluck("target_id", &acted).Error
	if err != nil {
		return nil, svcErr.Storage("excluded ids", err)
	}

	var dislikedMe []string
	err = r.db.WithContext(ctx).
		Model(&db.Action{}).
		Where("target_id = ? AND kind = ?", userID, db.ActionDislike).
		Pluck("source_id", &dislikedMe).Error
	if err != nil {
		return nil, svcErr.Storage("excluded ids", err)
	}

	ids := append(acted, dislikedMe...)
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// GetLikers returns all users who liked the given target.
//
// Behavior:
//   - Only actions where target_id = X and kind = like are returned.
//   - Excludes users that the target explicitly disliked.
//   - Ordered by updated_at DESC, source_id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.GetLikers(ctx, "42", nil, 20) // list first 20 people who liked user 42
func (r *ActionRepository) GetLikers(
	ctx context.Context,
	targetID string,
	paginationToken *string,
	limit int,
) ([]db.Action, *string, error) {
	query := r.db.WithContext(ctx).
		Table("actions a").
		Where("a.target_id = ? AND a.kind = ?", targetID, db.ActionLike).
		Where(dislikedBy, targetID)

	return r.page(query, paginationToken, limit)
}

// GetNewLikers returns users who liked the target but have not been liked back.
//
// Behavior:
//   - Same as GetLikers, minus mutual likes.
//
// Example:
//
//	repo.GetNewLikers(ctx, "42", nil, 20) // list first 20 one-way likes for user 42
func (r *ActionRepository) GetNewLikers(
	ctx context.Context,
	targetID string,
	paginationToken *string,
	limit int,
) ([]db.Action, *string, error) {
	// subquery to exclude mutual likes
	likedBack := r.db.
		Table("actions").
		Select("1").
		Where("source_id = a.target_id AND target_id = a.source_id AND kind = ?", db.ActionLike)

	query := r.db.WithContext(ctx).
		Table("actions a").
		Where("a.target_id = ? AND a.kind = ? AND NOT EXISTS (?)", targetID, db.ActionLike, likedBack).
		Where(dislikedBy, targetID)

	return r.page(query, paginationToken, limit)
}

// page applies the cursor and builds the next token if more rows remain.
func (r *ActionRepository) page(query *gorm.DB, paginationToken *string, limit int) ([]db.Action, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, svcErr.Invalid("pagination_token", err.Error())
	}

	query = query.Order("a.updated_at DESC, a.source_id DESC").Limit(limit + 1)
	if !cursor.IsZero() {
		ts := time.UnixMilli(cursor.UpdatedUnix).UTC()
		query = query.Where(
			"(a.updated_at < ? OR (a.updated_at = ? AND a.source_id < ?))",
			ts, ts, cursor.SourceID,
		)
	}

	var actions []db.Action
	if err := query.Find(&actions).Error; err != nil {
		return nil, nil, svcErr.Storage("list likers", err)
	}

	var nextToken *string
	if len(actions) > limit {
		last := actions[limit-1]
		token, err := pagination.Encode(pagination.Cursor{
			SourceID:    last.SourceID,
			UpdatedUnix: last.UpdatedAt.UnixMilli(),
		})
		if err != nil {
			return nil, nil, err
		}
		nextToken = &token
		actions = actions[:limit]
	}
	return actions, nextToken, nil
}

// CountLikers returns how many users liked the given target.
//
// Behavior:
//   - Counts only actions where target_id = X and kind = like.
//   - Excludes users that the target explicitly disliked.
//   - Used in conjunction with Redis cache (DB is fallback).
//
// Example:
//
//	repo.CountLikers(ctx, "42") // -> 123
func (r *ActionRepository) CountLikers(ctx context.Context, targetID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("actions a").
		Where("a.target_id = ? AND a.kind = ?", targetID, db.ActionLike).
		Where(dislikedBy, targetID).
		Count(&count).Error
	if err != nil {
		return 0, svcErr.Storage("count likers", err)
	}
	return count, nil
}

// ListMatches returns the user's mutual matches, newest first.
func (r *ActionRepository) ListMatches(ctx context.Context, userID string, limit int) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at DESC, id").
		Limit(limit).
		Find(&matches).Error
	if err != nil {
		return nil, svcErr.Storage("list matches", err)
	}
	return matches, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
