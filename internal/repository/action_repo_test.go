package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetmatch/matchcore/internal/db"
	svcErr "github.com/meetmatch/matchcore/internal/errors"
	"github.com/meetmatch/matchcore/internal/repository"
)

func TestUpsertAction(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewActionRepository(dbase)

	// insert like
	require.NoError(t, repo.UpsertAction(ctx, "1", "2", db.ActionLike))
	// overwrite with dislike
	require.NoError(t, repo.UpsertAction(ctx, "1", "2", db.ActionDislike))

	var actions []db.Action
	require.NoError(t, dbase.Find(&actions).Error)
	require.Len(t, actions, 1)
	assert.Equal(t, db.ActionDislike, actions[0].Kind)
}

func TestRecordAction_MutualMatchIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewActionRepository(dbase)

	id, mutual, err := repo.RecordAction(ctx, "A", "B", db.ActionLike)
	require.NoError(t, err)
	assert.False(t, mutual)
	assert.Empty(t, id)

	first, mutual, err := repo.RecordAction(ctx, "B", "A", db.ActionLike)
	require.NoError(t, err)
	assert.True(t, mutual)
	assert.Equal(t, db.MatchID("A", "B"), first)

	// again, in either order
	again, mutual, err := repo.RecordAction(ctx, "A", "B", db.ActionLike)
	require.NoError(t, err)
	assert.True(t, mutual)
	assert.Equal(t, first, again)

	again, _, err = repo.RecordAction(ctx, "B", "A", db.ActionLike)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var m db.Match
	require.NoError(t, dbase.First(&m).Error)
	assert.Equal(t, "A", m.User1ID)
	assert.Equal(t, "B", m.User2ID)
}

// Ids are opaque, so pairs that join to the same text must still get
// separate matches.
func TestRecordAction_SeparatorInIDs(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewActionRepository(dbase)

	pairs := [][2]string{{"a:b", "c"}, {"a", "b:c"}}
	matchIDs := make([]string, 0, len(pairs))
	for _, p := range pairs {
		_, _, err := repo.RecordAction(ctx, p[0], p[1], db.ActionLike)
		require.NoError(t, err)
		id, mutual, err := repo.RecordAction(ctx, p[1], p[0], db.ActionLike)
		require.NoError(t, err)
		require.True(t, mutual)
		matchIDs = append(matchIDs, id)
	}
	assert.NotEqual(t, matchIDs[0], matchIDs[1])

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	matches, err := repo.ListMatches(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, matchIDs[1], matches[0].ID)
}

func TestRecordAction_ConcurrentMutualLikes(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewActionRepository(dbase)

	var wg sync.WaitGroup
	ids := make([]string, 2)
	errs := make([]error, 2)
	for i, pair := range [][2]string{{"A", "B"}, {"B", "A"}} {
		wg.Add(1)
		go func(i int, src, dst string) {
			defer wg.Done()
			ids[i], _, errs[i] = repo.RecordAction(ctx, src, dst, db.ActionLike)
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	// at least one side saw the other; every observed id is the same
	assert.True(t, ids[0] != "" || ids[1] != "")
	for _, id := range ids {
		if id != "" {
			assert.Equal(t, db.MatchID("A", "B"), id)
		}
	}

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordAction_DislikeRemovesMatch(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewActionRepository(dbase)

	_, _, err := repo.RecordAction(ctx, "A", "B", db.ActionLike)
	require.NoError(t, err)
	_, mutual, err := repo.RecordAction(ctx, "B", "A", db.ActionLike)
	require.NoError(t, err)
	require.True(t, mutual)

	id, mutual, err := repo.RecordAction(ctx, "B", "A", db.ActionDislike)
	require.NoError(t, err)
	assert.False(t, mutual)
	assert.Empty(t, id)

	matches, err := repo.ListMatches(ctx, "A", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestExcludedIDs(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewActionRepository(setupTestDB(t))

	require.NoError(t, repo.UpsertAction(ctx, "me", "2", db.ActionLike))
	require.NoError(t, repo.UpsertAction(ctx, "me", "3", db.ActionDislike))
	require.NoError(t, repo.UpsertAction(ctx, "4", "me", db.ActionDislike))
	require.NoError(t, repo.UpsertAction(ctx, "5", "me", db.ActionLike))  // still a candidate
	require.NoError(t, repo.UpsertAction(ctx, "2", "me", db.ActionDislike)) // already excluded

	excluded, err := repo.ExcludedIDs(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "4"}, excluded)
}

func TestGetLikersAndPagination(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewActionRepository(setupTestDB(t))

	// sources 1..5 liked target 99
	for _, src := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, repo.UpsertAction(ctx, src, "99", db.ActionLike))
	}
	// target disliked source 2 → exclude
	require.NoError(t, repo.UpsertAction(ctx, "99", "2", db.ActionDislike))

	var seen []string
	var token *string
	for page := 0; page < 5; page++ {
		actions, next, err := repo.GetLikers(ctx, "99", token, 2)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(actions), 2)
		for _, a := range actions {
			seen = append(seen, a.SourceID)
		}
		if next == nil {
			break
		}
		token = next
	}
	assert.ElementsMatch(t, []string{"1", "3", "4", "5"}, seen)

	count, err := repo.CountLikers(ctx, "99")
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestGetLikers_BadToken(t *testing.T) {
	repo := repository.NewActionRepository(setupTestDB(t))

	bad := "garbage!"
	_, _, err := repo.GetLikers(context.Background(), "99", &bad, 10)
	var ve *svcErr.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestGetNewLikers(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewActionRepository(setupTestDB(t))

	// source 1 liked 99, and 99 liked back → mutual
	require.NoError(t, repo.UpsertAction(ctx, "1", "99", db.ActionLike))
	require.NoError(t, repo.UpsertAction(ctx, "99", "1", db.ActionLike))

	// source 2 liked 99, but not mutual
	require.NoError(t, repo.UpsertAction(ctx, "2", "99", db.ActionLike))

	actions, next, err := repo.GetNewLikers(ctx, "99", nil, 10)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, actions, 1)
	assert.Equal(t, "2", actions[0].SourceID)
}

func TestListMatches(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewActionRepository(setupTestDB(t))

	for _, other := range []string{"B", "C"} {
		_, _, err := repo.RecordAction(ctx, "A", other, db.ActionLike)
		require.NoError(t, err)
		_, _, err = repo.RecordAction(ctx, other, "A", db.ActionLike)
		require.NoError(t, err)
	}

	matches, err := repo.ListMatches(ctx, "A", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = repo.ListMatches(ctx, "C", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, db.MatchID("C", "A"), matches[0].ID)
}
