package match

import (
	"github.com/meetmatch/matchcore/internal/db"
)

// Messages are plain structs carried by the JSON codec. Field names follow
// the snake_case convention of the rest of the API.

type User struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Age               int            `json:"age"`
	Gender            string         `json:"gender"`
	Bio               string         `json:"bio,omitempty"`
	Interests         []string       `json:"interests"`
	Location          db.Location    `json:"location"`
	Preferences       db.Preferences `json:"preferences"`
	IsProfileComplete bool           `json:"is_profile_complete"`
	IsActive          bool           `json:"is_active"`
	IsSleeping        bool           `json:"is_sleeping"`
	IsBanned          bool           `json:"is_banned"`
	LastActiveUnix    int64          `json:"last_active_unix,omitempty"`
	CreatedUnix       int64          `json:"created_unix"`
}

type CreateUserRequest struct {
	UserID      string         `json:"user_id"`
	Name        string         `json:"name"`
	Age         int            `json:"age"`
	Gender      string         `json:"gender"`
	Bio         string         `json:"bio,omitempty"`
	Interests   []string       `json:"interests,omitempty"`
	Location    db.Location    `json:"location"`
	Preferences db.Preferences `json:"preferences"`
}

type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// UpdateUserRequest is a partial update: absent fields are left unchanged.
type UpdateUserRequest struct {
	UserID      string          `json:"user_id"`
	Name        *string         `json:"name,omitempty"`
	Age         *int            `json:"age,omitempty"`
	Gender      *string         `json:"gender,omitempty"`
	Bio         *string         `json:"bio,omitempty"`
	Interests   *[]string       `json:"interests,omitempty"`
	Location    *db.Location    `json:"location,omitempty"`
	Preferences *db.Preferences `json:"preferences,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
	IsSleeping  *bool           `json:"is_sleeping,omitempty"`
	IsBanned    *bool           `json:"is_banned,omitempty"`
}

type UserResponse struct {
	User User `json:"user"`
}

type GetPotentialMatchesRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

type Candidate struct {
	User  User    `json:"user"`
	Score float64 `json:"score"`
}

type GetPotentialMatchesResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// ActionRequest is shared by Like and Dislike.
type ActionRequest struct {
	UserID       string `json:"user_id"`
	TargetUserID string `json:"target_user_id"`
}

type ActionResponse struct {
	MutualLikes bool   `json:"mutual_likes"`
	MatchID     string `json:"match_id,omitempty"`
}

type CheckRateLimitRequest struct {
	UserID string `json:"user_id"`
	Action string `json:"action"`
}

type CheckRateLimitResponse struct {
	Allowed           bool  `json:"allowed"`
	RetryAfterSeconds int64 `json:"retry_after_seconds,omitempty"`
}

type ListLikedYouRequest struct {
	RecipientUserID string  `json:"recipient_user_id"`
	PaginationToken *string `json:"pagination_token,omitempty"`
}

type Liker struct {
	ActorID       string `json:"actor_id"`
	UnixTimestamp uint64 `json:"unix_timestamp"`
}

type ListLikedYouResponse struct {
	Likers              []Liker `json:"likers"`
	NextPaginationToken *string `json:"next_pagination_token,omitempty"`
}

type CountLikedYouRequest struct {
	RecipientUserID string `json:"recipient_user_id"`
}

type CountLikedYouResponse struct {
	Count uint64 `json:"count"`
}

type ListMatchesRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

type Match struct {
	MatchID     string `json:"match_id"`
	UserID      string `json:"user_id"` // the other side
	CreatedUnix int64  `json:"created_unix"`
}

type ListMatchesResponse struct {
	Matches []Match `json:"matches"`
}

func toUser(u *db.User) User {
	out := User{
		ID:                u.ID,
		Name:              u.Name,
		Age:               u.Age,
		Gender:            u.Gender,
		Bio:               u.Bio,
		Interests:         []string(u.Interests),
		Location:          u.Location.Data(),
		Preferences:       u.Preferences.Data(),
		IsProfileComplete: u.IsProfileComplete,
		IsActive:          u.IsActive,
		IsSleeping:        u.IsSleeping,
		IsBanned:          u.IsBanned,
		CreatedUnix:       u.CreatedAt.Unix(),
	}
	if out.Interests == nil {
		out.Interests = []string{}
	}
	if u.LastActiveAt != nil {
		out.LastActiveUnix = u.LastActiveAt.Unix()
	}
	return out
}
