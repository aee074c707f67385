package repository

import (
	"slices"
	"strings"

	"github.com/meetmatch/matchcore/internal/db"
	svcErr "github.com/meetmatch/matchcore/internal/errors"
)

const (
	MinAge = 18
	MaxAge = 100
)

// validateUser rejects malformed profiles before they reach storage.
func validateUser(u *db.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return svcErr.Invalid("id", "must not be empty")
	}
	if len(u.ID) > 64 {
		return svcErr.Invalid("id", "must be at most 64 characters")
	}
	if u.Age != 0 && (u.Age < MinAge || u.Age > MaxAge) {
		return svcErr.Invalid("age", "must be between 18 and 100")
	}
	if len(u.Name) > 128 {
		return svcErr.Invalid("name", "must be at most 128 characters")
	}

	p := u.Preferences.Data()
	if p.MinAge != nil && (*p.MinAge < MinAge || *p.MinAge > MaxAge) {
		return svcErr.Invalid("preferences.min_age", "must be between 18 and 100")
	}
	if p.MaxAge != nil && (*p.MaxAge < MinAge || *p.MaxAge > MaxAge) {
		return svcErr.Invalid("preferences.max_age", "must be between 18 and 100")
	}
	if p.MinAge != nil && p.MaxAge != nil && *p.MinAge > *p.MaxAge {
		return svcErr.Invalid("preferences", "min_age cannot be greater than max_age")
	}
	if p.MaxDistanceKm != nil && *p.MaxDistanceKm <= 0 {
		return svcErr.Invalid("preferences.max_distance_km", "must be positive")
	}
	if p.InterestWeight != nil && (*p.InterestWeight < 0 || *p.InterestWeight > 1) {
		return svcErr.Invalid("preferences.interest_weight", "must be within [0,1]")
	}

	loc := u.Location.Data()
	if (loc.Latitude == nil) != (loc.Longitude == nil) {
		return svcErr.Invalid("location", "latitude and longitude must be set together")
	}
	if loc.Latitude != nil && (*loc.Latitude < -90 || *loc.Latitude > 90) {
		return svcErr.Invalid("location.latitude", "must be within [-90,90]")
	}
	if loc.Longitude != nil && (*loc.Longitude < -180 || *loc.Longitude > 180) {
		return svcErr.Invalid("location.longitude", "must be within [-180,180]")
	}
	return nil
}

// profileComplete is the completeness rule: everything the scorer and the
// candidate query need is present.
func profileComplete(u *db.User) bool {
	loc := u.Location.Data()
	return strings.TrimSpace(u.Name) != "" &&
		u.Age != 0 &&
		u.Gender != "" &&
		strings.TrimSpace(loc.City) != ""
}

// NormalizeInterests trims, lower-cases and de-duplicates interests, keeping
// first-seen order.
func NormalizeInterests(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func normalizeGender(g string) string {
	return strings.ToLower(strings.TrimSpace(g))
}

func normalizePreferences(p db.Preferences) db.Preferences {
	genders := make([]string, 0, len(p.Genders))
	for _, g := range p.Genders {
		if g = normalizeGender(g); g != "" && !slices.Contains(genders, g) {
			genders = append(genders, g)
		}
	}
	p.Genders = genders
	return p
}
