package match

import (
	"context"
	"errors"
	"strings"

	"github.com/meetmatch/matchcore/internal/app"
	"github.com/meetmatch/matchcore/internal/db"
	svcErr "github.com/meetmatch/matchcore/internal/errors"
	"github.com/meetmatch/matchcore/internal/logger"
	"github.com/meetmatch/matchcore/internal/repository"
)

// Rate-limited action types. Any other name passed to CheckRateLimit is
// looked up in the configured table as is.
const (
	ActionLike          = "like"
	ActionDislike       = "dislike"
	ActionMatchRequest  = "match_request"
	ActionProfileUpdate = "profile_update"
)

const (
	likersPageSize     = 5
	defaultMatchesPage = 20
	maxMatchesPage     = 100
)

// Service implements the Match gRPC API used by the chat layer.
// It contains the request plumbing on top of the matching services in
// AppContext: timeouts, rate limiting, error mapping and message shaping.
type Service struct {
	appCtx *app.AppContext
}

// NewMatchService creates a new Match service with dependencies from AppContext.
func NewMatchService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// withTimeout applies STORAGE_TIMEOUT unless the caller already set a deadline.
func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.appCtx.Config.DB.Timeout)
}

// fail logs storage-class failures with their cause and maps err to a status.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	var storage *svcErr.StorageError
	if errors.As(err, &storage) {
		logger.FromContext(ctx, s.appCtx.Logger).Error(op+" failed", "err", err)
	}
	return svcErr.Map(err)
}

// admit consumes one slot of the user's window for action.
func (s *Service) admit(ctx context.Context, userID, action string) error {
	d, err := s.appCtx.Limiter.Allow(ctx, userID, action)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &svcErr.RateLimitExceeded{Action: action, RetryAfter: d.RetryAfter}
	}
	return nil
}

func requireID(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return svcErr.InvalidArgument(field + " is required")
	}
	return nil
}

// CreateUser registers a new profile.
//
// Example:
//
//	svc.CreateUser(ctx, &CreateUserRequest{UserID: "42", Name: "Ana", Age: 30, Gender: "female"})
func (s *Service) CreateUser(ctx context.Context, req *CreateUserRequest) (*UserResponse, error) {
	logger.FromContext(ctx, s.appCtx.Logger).Debug("CreateUser called", "user", req.UserID)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	u, err := s.appCtx.Users.CreateUser(ctx, strings.TrimSpace(req.UserID), repository.UserAttrs{
		Name:        req.Name,
		Age:         req.Age,
		Gender:      req.Gender,
		Bio:         req.Bio,
		Interests:   req.Interests,
		Location:    req.Location,
		Preferences: req.Preferences,
	})
	if err != nil {
		return nil, s.fail(ctx, "CreateUser", err)
	}
	return &UserResponse{User: toUser(u)}, nil
}

func (s *Service) GetUser(ctx context.Context, req *GetUserRequest) (*UserResponse, error) {
	if err := requireID("user_id", req.UserID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	u, err := s.appCtx.Users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "GetUser", err)
	}
	return &UserResponse{User: toUser(u)}, nil
}

// UpdateUser applies a partial profile/settings update. Counts against the
// profile_update rate limit.
func (s *Service) UpdateUser(ctx context.Context, req *UpdateUserRequest) (*UserResponse, error) {
	logger.FromContext(ctx, s.appCtx.Logger).Debug("UpdateUser called", "user", req.UserID)
	if err := requireID("user_id", req.UserID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.admit(ctx, req.UserID, ActionProfileUpdate); err != nil {
		return nil, s.fail(ctx, "UpdateUser", err)
	}

	u, err := s.appCtx.Users.UpdateUser(ctx, req.UserID, repository.UserPatch{
		Name:        req.Name,
		Age:         req.Age,
		Gender:      req.Gender,
		Bio:         req.Bio,
		Interests:   req.Interests,
		Location:    req.Location,
		Preferences: req.Preferences,
		IsActive:    req.IsActive,
		IsSleeping:  req.IsSleeping,
		IsBanned:    req.IsBanned,
	})
	if err != nil {
		return nil, s.fail(ctx, "UpdateUser", err)
	}
	return &UserResponse{User: toUser(u)}, nil
}

// GetPotentialMatches returns the next candidates for a user, best first.
//
// Behavior:
//   - limit <= 0 uses MATCH_DEFAULT_LIMIT.
//   - Counts against the match_request rate limit.
//   - An inactive, sleeping, banned or incomplete requester gets an empty list.
func (s *Service) GetPotentialMatches(ctx context.Context, req *GetPotentialMatchesRequest) (*GetPotentialMatchesResponse, error) {
	log := logger.FromContext(ctx, s.appCtx.Logger)
	log.Debug("GetPotentialMatches called", "user", req.UserID, "limit", req.Limit)
	if err := requireID("user_id", req.UserID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.admit(ctx, req.UserID, ActionMatchRequest); err != nil {
		return nil, s.fail(ctx, "GetPotentialMatches", err)
	}

	candidates, err := s.appCtx.Selector.GetPotentialMatches(ctx, req.UserID, req.Limit)
	if err != nil {
		return nil, s.fail(ctx, "GetPotentialMatches", err)
	}

	resp := &GetPotentialMatchesResponse{Candidates: make([]Candidate, 0, len(candidates))}
	for i := range candidates {
		resp.Candidates = append(resp.Candidates, Candidate{
			User:  toUser(&candidates[i].User),
			Score: candidates[i].Score,
		})
	}
	log.Debug("GetPotentialMatches result", "count", len(resp.Candidates))
	return resp, nil
}

// Like records that user_id likes target_user_id and reports whether that
// completed a mutual match.
//
// Example:
//
//	svc.Like(ctx, &ActionRequest{UserID: "1", TargetUserID: "2"})
func (s *Service) Like(ctx context.Context, req *ActionRequest) (*ActionResponse, error) {
	return s.act(ctx, req, db.ActionLike, ActionLike)
}

// Dislike records that user_id does not want to see target_user_id again.
func (s *Service) Dislike(ctx context.Context, req *ActionRequest) (*ActionResponse, error) {
	return s.act(ctx, req, db.ActionDislike, ActionDislike)
}

func (s *Service) act(ctx context.Context, req *ActionRequest, kind db.ActionKind, limit string) (*ActionResponse, error) {
	logger.FromContext(ctx, s.appCtx.Logger).Debug("action called",
		"kind", kind, "user", req.UserID, "target", req.TargetUserID)

	if err := requireID("user_id", req.UserID); err != nil {
		return nil, err
	}
	if err := requireID("target_user_id", req.TargetUserID); err != nil {
		return nil, err
	}
	if req.UserID == req.TargetUserID {
		return nil, svcErr.InvalidArgument("cannot decide on yourself")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.admit(ctx, req.UserID, limit); err != nil {
		return nil, s.fail(ctx, string(kind), err)
	}

	res, err := s.appCtx.Recorder.RecordAction(ctx, req.UserID, req.TargetUserID, kind)
	if err != nil {
		return nil, s.fail(ctx, string(kind), err)
	}
	return &ActionResponse{MutualLikes: res.Mutual, MatchID: res.MatchID}, nil
}

// CheckRateLimit consumes one slot for an arbitrary action type (message,
// report, media_upload, ...) so the chat layer can gate actions this service
// does not perform itself. A denial is a normal response, not an error.
func (s *Service) CheckRateLimit(ctx context.Context, req *CheckRateLimitRequest) (*CheckRateLimitResponse, error) {
	if err := requireID("user_id", req.UserID); err != nil {
		return nil, err
	}
	if err := requireID("action", req.Action); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	d, err := s.appCtx.Limiter.Allow(ctx, req.UserID, req.Action)
	if err != nil {
		return nil, s.fail(ctx, "CheckRateLimit", err)
	}
	if d.Allowed {
		return &CheckRateLimitResponse{Allowed: true}, nil
	}
	denied := svcErr.RateLimitExceeded{Action: req.Action, RetryAfter: d.RetryAfter}
	return &CheckRateLimitResponse{RetryAfterSeconds: denied.RetryAfterSeconds()}, nil
}

// ListLikedYou returns all users who liked the given recipient.
//
// Behavior:
//   - Excludes users that the recipient explicitly disliked.
//   - Supports cursor-based pagination with pagination_token.
//   - Returns actor_id + timestamp pairs.
//
// Example:
//
//	svc.ListLikedYou(ctx, &ListLikedYouRequest{RecipientUserID: "42"})
func (s *Service) ListLikedYou(ctx context.Context, req *ListLikedYouRequest) (*ListLikedYouResponse, error) {
	logger.FromContext(ctx, s.appCtx.Logger).Debug("ListLikedYou called", "recipient", req.RecipientUserID)
	if err := requireID("recipient_user_id", req.RecipientUserID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	actions, next, err := s.appCtx.Actions.GetLikers(ctx, req.RecipientUserID, req.PaginationToken, likersPageSize)
	if err != nil {
		return nil, s.fail(ctx, "ListLikedYou", err)
	}
	return toLikers(actions, next), nil
}

// ListNewLikedYou is ListLikedYou without the users the recipient already
// liked back.
func (s *Service) ListNewLikedYou(ctx context.Context, req *ListLikedYouRequest) (*ListLikedYouResponse, error) {
	logger.FromContext(ctx, s.appCtx.Logger).Debug("ListNewLikedYou called", "recipient", req.RecipientUserID)
	if err := requireID("recipient_user_id", req.RecipientUserID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	actions, next, err := s.appCtx.Actions.GetNewLikers(ctx, req.RecipientUserID, req.PaginationToken, likersPageSize)
	if err != nil {
		return nil, s.fail(ctx, "ListNewLikedYou", err)
	}
	return toLikers(actions, next), nil
}

func toLikers(actions []db.Action, next *string) *ListLikedYouResponse {
	resp := &ListLikedYouResponse{Likers: make([]Liker, 0, len(actions)), NextPaginationToken: next}
	for _, a := range actions {
		resp.Likers = append(resp.Likers, Liker{
			ActorID:       a.SourceID,
			UnixTimestamp: uint64(a.UpdatedAt.UnixMilli()),
		})
	}
	return resp
}

// CountLikedYou returns how many users liked the recipient.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:<user>).
//  2. On a miss or any cache error, falls back to DB via repository.CountLikers.
//  3. On DB fetch, updates Redis with a 1h TTL.
//
// Every action toward the recipient drops the cached value.
func (s *Service) CountLikedYou(ctx context.Context, req *CountLikedYouRequest) (*CountLikedYouResponse, error) {
	log := logger.FromContext(ctx, s.appCtx.Logger)
	log.Debug("CountLikedYou called", "recipient", req.RecipientUserID)
	if err := requireID("recipient_user_id", req.RecipientUserID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rc := s.appCtx.RedisCache
	if rc != nil {
		n, ok, err := rc.GetLikeCount(ctx, req.RecipientUserID)
		if err != nil {
			log.Warn("like count cache read failed", "err", err)
		} else if ok {
			return &CountLikedYouResponse{Count: uint64(n)}, nil
		}
	}

	// fallback: DB
	count, err := s.appCtx.Actions.CountLikers(ctx, req.RecipientUserID)
	if err != nil {
		return nil, s.fail(ctx, "CountLikedYou", err)
	}
	if rc != nil {
		if err := rc.SetLikeCount(ctx, req.RecipientUserID, count); err != nil {
			log.Warn("like count cache write failed", "err", err)
		}
	}
	return &CountLikedYouResponse{Count: uint64(count)}, nil
}

// ListMatches returns the user's mutual matches, newest first.
func (s *Service) ListMatches(ctx context.Context, req *ListMatchesRequest) (*ListMatchesResponse, error) {
	if err := requireID("user_id", req.UserID); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultMatchesPage
	}
	limit = min(limit, maxMatchesPage)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	matches, err := s.appCtx.Actions.ListMatches(ctx, req.UserID, limit)
	if err != nil {
		return nil, s.fail(ctx, "ListMatches", err)
	}

	resp := &ListMatchesResponse{Matches: make([]Match, 0, len(matches))}
	for _, m := range matches {
		other := m.User1ID
		if other == req.UserID {
			other = m.User2ID
		}
		resp.Matches = append(resp.Matches, Match{
			MatchID:     m.ID,
			UserID:      other,
			CreatedUnix: m.CreatedAt.Unix(),
		})
	}
	return resp, nil
}
