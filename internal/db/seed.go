package db

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	seedCities = []Location{
		{City: "Jakarta", Country: "Indonesia", Latitude: ptr(-6.2088), Longitude: ptr(106.8456)},
		{City: "Bandung", Country: "Indonesia", Latitude: ptr(-6.9175), Longitude: ptr(107.6191)},
		{City: "Surabaya", Country: "Indonesia"},
		{City: "Singapore", Country: "Singapore", Latitude: ptr(1.3521), Longitude: ptr(103.8198)},
	}
	seedInterests = []string{
		"hiking", "reading", "music", "movies", "cooking",
		"travel", "gaming", "photography", "art", "sports",
	}
)

// SeedTestData resets the database and populates it with demo profiles and actions.
//
// Behavior:
//  1. Clears existing data in `matches`, `actions` and `users` tables.
//  2. Creates 20 complete, active users (10 male, 10 female) spread over a few cities.
//  3. Generates ~150 actions with ~70% likes; every 3rd pair is made mutual and gets a match row.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"matches", "actions", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	slog.Info("cleared existing data")

	// --- Seed Users (10 male, 10 female) ---
	now := time.Now().UTC()
	for i := 1; i <= 20; i++ {
		gender, wants := "male", "female"
		if i > 10 {
			gender, wants = "female", "male"
		}
		age := 20 + r.Intn(20)
		minAge, maxAge := age-5, age+5
		if minAge < 18 {
			minAge = 18
		}

		lastActive := now.Add(-time.Duration(r.Intn(500)) * time.Hour)
		user := User{
			ID:        fmt.Sprintf("%d", 1000+i),
			Name:      fmt.Sprintf("user%d", i),
			Age:       age,
			Gender:    gender,
			Bio:       "seeded profile",
			Interests: datatypes.JSONSlice[string](pick(r, seedInterests, 2+r.Intn(3))),
			Location:  datatypes.NewJSONType(seedCities[r.Intn(len(seedCities))]),
			Preferences: datatypes.NewJSONType(Preferences{
				MinAge:  &minAge,
				MaxAge:  &maxAge,
				Genders: []string{wants},
			}),
			IsProfileComplete: true,
			IsActive:          true,
			LastActiveAt:      &lastActive,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	slog.Info("seeded users", "count", 20)

	// --- Seed Actions ---
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_id"}, {Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "updated_at"}),
	}
	counter := 0
	for source := 1; source <= 20; source++ {
		for j := 0; j < 8; j++ {
			target := r.Intn(20) + 1
			if source == target || (source <= 10) == (target <= 10) {
				continue
			}
			sourceID, targetID := fmt.Sprintf("%d", 1000+source), fmt.Sprintf("%d", 1000+target)

			kind := ActionDislike
			if r.Intn(100) < 70 {
				kind = ActionLike
			}

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				kind = ActionLike
				recip := Action{SourceID: targetID, TargetID: sourceID, Kind: ActionLike}
				if err := db.Clauses(upsert).Create(&recip).Error; err != nil {
					return fmt.Errorf("failed to seed action: %w", err)
				}
				match := NewMatch(sourceID, targetID)
				if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&match).Error; err != nil {
					return fmt.Errorf("failed to seed match: %w", err)
				}
			}

			action := Action{SourceID: sourceID, TargetID: targetID, Kind: kind}
			if err := db.Clauses(upsert).Create(&action).Error; err != nil {
				return fmt.Errorf("failed to seed action: %w", err)
			}
			counter++
		}
	}
	slog.Info("seeded actions", "count", counter)

	return nil
}

func pick(r *rand.Rand, from []string, n int) []string {
	idx := r.Perm(len(from))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, from[i])
	}
	return out
}

func ptr[T any](v T) *T { return &v }
