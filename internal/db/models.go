package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Location is where a user says they are. Coordinates are optional; when both
// sides have them the scorer uses distance instead of city/country equality.
type Location struct {
	City      string   `json:"city"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Preferences are the user's own filters for who they want to see.
// Unset bounds are open.
type Preferences struct {
	MinAge         *int     `json:"min_age,omitempty"`
	MaxAge         *int     `json:"max_age,omitempty"`
	Genders        []string `json:"gender_preference,omitempty"`
	MaxDistanceKm  *float64 `json:"max_distance_km,omitempty"`
	InterestWeight *float64 `json:"interest_weight,omitempty"`
}

// User table
//
// Indexes:
//   - idx_users_candidate(is_profile_complete, is_active, age, gender)
//     Serves the candidate scan in ListCandidates.
type User struct {
	ID     string `gorm:"primaryKey;size:64"`
	Name   string `gorm:"size:128;not null"`
	Age    int    `gorm:"not null;index:idx_users_candidate,priority:3"`
	Gender string `gorm:"size:16;not null;index:idx_users_candidate,priority:4"`
	Bio    string `gorm:"type:text"`

	Interests   datatypes.JSONSlice[string]
	Location    datatypes.JSONType[Location]
	Preferences datatypes.JSONType[Preferences]

	// no gorm defaults on flags: false must be storable
	IsProfileComplete bool `gorm:"not null;index:idx_users_candidate,priority:1"`
	IsActive          bool `gorm:"not null;index:idx_users_candidate,priority:2"`
	IsSleeping        bool `gorm:"not null"`
	IsBanned          bool `gorm:"not null"`

	LastActiveAt *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Eligible reports whether the user may take part in matching at all.
func (u *User) Eligible() bool {
	return u.IsActive && u.IsProfileComplete && !u.IsSleeping && !u.IsBanned
}

// ActionKind is the decision a user made about another user.
type ActionKind string

const (
	ActionLike    ActionKind = "like"
	ActionDislike ActionKind = "dislike"
)

// Valid reports whether k is a known kind.
func (k ActionKind) Valid() bool {
	return k == ActionLike || k == ActionDislike
}

// Action represents a source user's like/dislike on a target user.
//
// Composite PK: (SourceID, TargetID)
//   - Ensures a single row per pair (overwrite guarantee).
//
// Indexes:
//   - idx_actions_target_kind_updated(target_id, kind, updated_at DESC, source_id)
//     Optimizes "who liked me" lists with pagination.
type Action struct {
	SourceID  string     `gorm:"primaryKey;size:64;index:idx_actions_target_kind_updated,priority:4"`
	TargetID  string     `gorm:"primaryKey;size:64;index:idx_actions_target_kind_updated,priority:1"`
	Kind      ActionKind `gorm:"size:16;not null;index:idx_actions_target_kind_updated,priority:2"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime;index:idx_actions_target_kind_updated,priority:3,sort:desc"`
}

// Match is the persisted form of a mutual like. User1ID < User2ID always, and
// ID is derived from the pair so creating it twice is a no-op.
type Match struct {
	ID        string    `gorm:"primaryKey;size:36"`
	User1ID   string    `gorm:"size:64;not null;uniqueIndex:idx_matches_pair,priority:1"`
	User2ID   string    `gorm:"size:64;not null;uniqueIndex:idx_matches_pair,priority:2;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

var matchNamespace = uuid.MustParse("6f1d3c52-8a4e-4b8e-9a57-2f0c9d1e7b31")

// SortedPair orders two user ids.
func SortedPair(a, b string) (string, string) {
	if strings.Compare(a, b) <= 0 {
		return a, b
	}
	return b, a
}

// MatchID derives the match id for an unordered pair of users. The first id
// is length-prefixed: ids are opaque and may contain any separator.
func MatchID(a, b string) string {
	lo, hi := SortedPair(a, b)
	return uuid.NewSHA1(matchNamespace, []byte(fmt.Sprintf("%d:%s|%s", len(lo), lo, hi))).String()
}

// NewMatch builds the match row for a pair.
func NewMatch(a, b string) Match {
	lo, hi := SortedPair(a, b)
	return Match{ID: MatchID(lo, hi), User1ID: lo, User2ID: hi}
}
