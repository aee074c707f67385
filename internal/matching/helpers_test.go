package matching_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/meetmatch/matchcore/internal/cache"
	"github.com/meetmatch/matchcore/internal/config"
	"github.com/meetmatch/matchcore/internal/db"
	svcLogger "github.com/meetmatch/matchcore/internal/logger"
	"github.com/meetmatch/matchcore/internal/matching"
	"github.com/meetmatch/matchcore/internal/repository"
)

type fixture struct {
	db       *gorm.DB
	users    *repository.UserRepository
	actions  *repository.ActionRepository
	cache    *cache.Memory[[]matching.Ranked]
	scorer   *matching.Scorer
	selector *matching.Selector
	recorder *matching.Recorder
}

func newFixture(t *testing.T, mutate func(*config.MatchConfig)) *fixture {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
		NowFunc:        db.Now,
	})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(database))

	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg.Match)
	}

	f := &fixture{
		db:      database,
		users:   repository.NewUserRepository(database),
		actions: repository.NewActionRepository(database),
		cache:   cache.NewMemory[[]matching.Ranked](cfg.Cache.MaxSize, nil),
		scorer:  matching.NewScorer(cfg.Match),
	}
	log := svcLogger.Discard()
	f.selector = matching.NewSelector(f.users, f.actions, f.scorer, f.cache,
		matching.SelectorConfig{TTL: cfg.Cache.TTL, DefaultLimit: cfg.Match.DefaultLimit}, log)
	f.recorder = matching.NewRecorder(f.users, f.actions, f.selector, nil, log)
	return f
}

func (f *fixture) create(t *testing.T, id string, attrs repository.UserAttrs) {
	t.Helper()
	_, err := f.users.CreateUser(context.Background(), id, attrs)
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }

var jakarta = db.Location{City: "Jakarta", Country: "Indonesia"}

// seeker is "A" from the reference scenario: 30, Jakarta, wants men 25-35.
func seeker() repository.UserAttrs {
	return repository.UserAttrs{
		Name:      "A",
		Age:       30,
		Gender:    "female",
		Interests: []string{"hiking", "reading"},
		Location:  jakarta,
		Preferences: db.Preferences{
			MinAge:  ptr(25),
			MaxAge:  ptr(35),
			Genders: []string{"male"},
		},
	}
}

func man(name string, age int, interests ...string) repository.UserAttrs {
	return repository.UserAttrs{
		Name:      name,
		Age:       age,
		Gender:    "male",
		Interests: interests,
		Location:  jakarta,
	}
}

func candidateIDs(cs []matching.Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.User.ID)
	}
	return out
}
