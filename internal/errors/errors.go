package errors

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a requested user or record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when a create collides with an existing row.
	ErrAlreadyExists = errors.New("record already exists")
)

// StorageError wraps a failure talking to the relational store (connectivity,
// timeout, constraint violation). It is never retried by the core.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Timeout reports whether the caller's deadline expired during the operation.
func (e *StorageError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Storage classifies a gorm error for the given operation.
//
// Behavior:
//   - nil stays nil.
//   - gorm.ErrRecordNotFound becomes ErrNotFound.
//   - gorm.ErrDuplicatedKey becomes ErrAlreadyExists.
//   - anything else is wrapped in *StorageError.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ValidationError rejects malformed input before it reaches storage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConfigurationError is fatal at startup and never produced per request.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Key, e.Reason)
}

// Configuration builds a *ConfigurationError.
func Configuration(key, reason string) error {
	return &ConfigurationError{Key: key, Reason: reason}
}

// RateLimitExceeded is the user-facing form of a limiter denial.
type RateLimitExceeded struct {
	Action     string
	RetryAfter time.Duration
}

func (e *RateLimitExceeded) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q, retry in %ds", e.Action, e.RetryAfterSeconds())
}

// RetryAfterSeconds rounds the wait up so that retrying after that many
// seconds is always admitted.
func (e *RateLimitExceeded) RetryAfterSeconds() int64 {
	return int64(math.Ceil(e.RetryAfter.Seconds()))
}
