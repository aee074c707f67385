package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/meetmatch/matchcore/internal/db"
	svcErr "github.com/meetmatch/matchcore/internal/errors"
)

// UserAttrs are the profile attributes supplied when a user is first created.
type UserAttrs struct {
	Name        string
	Age         int
	Gender      string
	Bio         string
	Interests   []string
	Location    db.Location
	Preferences db.Preferences
}

// UserPatch is a partial update; nil fields are left untouched.
type UserPatch struct {
	Name        *string
	Age         *int
	Gender      *string
	Bio         *string
	Interests   *[]string
	Location    *db.Location
	Preferences *db.Preferences
	IsActive    *bool
	IsSleeping  *bool
	IsBanned    *bool
}

// CandidateFilter narrows the candidate scan.
//
//   - Genders: candidate gender must be one of these (empty = any).
//   - MinAge/MaxAge: inclusive bounds, nil = open.
//   - ExcludeIDs: ids never returned (already actioned users).
//   - ActiveOnly: skip inactive, sleeping and banned users.
type CandidateFilter struct {
	Genders    []string
	MinAge     *int
	MaxAge     *int
	ExcludeIDs []string
	ActiveOnly bool
}

// UserRepository provides data access methods for the User model.
// It is a pure data-access boundary: no caching, no retries.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// GetUser loads a single user by id.
//
// Errors:
//   - wraps errors.ErrNotFound if no such user exists.
//   - *errors.StorageError on any other failure.
func (r *UserRepository) GetUser(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, svcErr.Storage("get user", err)
	}
	return &u, nil
}

// GetUsersByIDs loads the given users. Missing ids are silently skipped and
// the result order is unspecified.
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []string) ([]db.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, svcErr.Storage("get users", err)
	}
	return users, nil
}

// CreateUser inserts a new active user. Attributes are normalized and
// validated first; the completeness flag is derived from them.
//
// Example:
//
//	repo.CreateUser(ctx, "42", repository.UserAttrs{Name: "Ana", Age: 30, Gender: "female"})
func (r *UserRepository) CreateUser(ctx context.Context, id string, attrs UserAttrs) (*db.User, error) {
	now := db.Now()
	u := &db.User{
		ID:           id,
		Name:         attrs.Name,
		Age:          attrs.Age,
		Gender:       normalizeGender(attrs.Gender),
		Bio:          attrs.Bio,
		Interests:    datatypes.JSONSlice[string](NormalizeInterests(attrs.Interests)),
		Location:     datatypes.NewJSONType(attrs.Location),
		Preferences:  datatypes.NewJSONType(normalizePreferences(attrs.Preferences)),
		IsActive:     true,
		LastActiveAt: &now,
	}
	if err := validateUser(u); err != nil {
		return nil, err
	}
	u.IsProfileComplete = profileComplete(u)

	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, svcErr.Storage("create user", err)
	}
	return u, nil
}

// UpdateUser applies a partial update and returns the stored result.
// Validation runs on the merged record, so a patch can never leave an
// invalid profile behind.
func (r *UserRepository) UpdateUser(ctx context.Context, id string, patch UserPatch) (*db.User, error) {
	var updated db.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&updated, "id = ?", id).Error; err != nil {
			return svcErr.Storage("update user", err)
		}

		applyPatch(&updated, patch)
		if err := validateUser(&updated); err != nil {
			return err
		}
		updated.IsProfileComplete = profileComplete(&updated)

		if err := tx.Save(&updated).Error; err != nil {
			return svcErr.Storage("update user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func applyPatch(u *db.User, p UserPatch) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Age != nil {
		u.Age = *p.Age
	}
	if p.Gender != nil {
		u.Gender = normalizeGender(*p.Gender)
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Interests != nil {
		u.Interests = datatypes.JSONSlice[string](NormalizeInterests(*p.Interests))
	}
	if p.Location != nil {
		u.Location = datatypes.NewJSONType(*p.Location)
	}
	if p.Preferences != nil {
		u.Preferences = datatypes.NewJSONType(normalizePreferences(*p.Preferences))
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.IsSleeping != nil {
		u.IsSleeping = *p.IsSleeping
	}
	if p.IsBanned != nil {
		u.IsBanned = *p.IsBanned
	}
}

// TouchLastActive records activity for a user.
func (r *UserRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Update("last_active_at", at.UTC())
	if res.Error != nil {
		return svcErr.Storage("touch user", res.Error)
	}
	if res.RowsAffected == 0 {
		return svcErr.Storage("touch user", gorm.ErrRecordNotFound)
	}
	return nil
}

// ListCandidates returns complete profiles other than forUserID that pass the
// filter, ordered by id.
//
// Behavior:
//   - Never returns forUserID or any id in ExcludeIDs.
//   - Never returns incomplete profiles.
//   - Age and gender bounds are applied in SQL; scoring happens in the caller.
func (r *UserRepository) ListCandidates(ctx context.Context, forUserID string, f CandidateFilter) ([]db.User, error) {
	query := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id <> ?", forUserID).
		Where("is_profile_complete = ?", true)

	if f.ActiveOnly {
		query = query.Where("is_active = ? AND is_sleeping = ? AND is_banned = ?", true, false, false)
	}
	if len(f.Genders) > 0 {
		query = query.Where("gender IN ?", f.Genders)
	}
	if f.MinAge != nil {
		query = query.Where("age >= ?", *f.MinAge)
	}
	if f.MaxAge != nil {
		query = query.Where("age <= ?", *f.MaxAge)
	}
	if len(f.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", f.ExcludeIDs)
	}

	var users []db.User
	if err := query.Order("id").Find(&users).Error; err != nil {
		return nil, svcErr.Storage("list candidates", err)
	}
	return users, nil
}
