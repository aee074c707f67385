package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	svcErr "github.com/meetmatch/matchcore/internal/errors"
)

func TestStorageClassification(t *testing.T) {
	assert.Nil(t, svcErr.Storage("get user", nil))

	err := svcErr.Storage("get user", gorm.ErrRecordNotFound)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	err = svcErr.Storage("create user", gorm.ErrDuplicatedKey)
	assert.ErrorIs(t, err, svcErr.ErrAlreadyExists)

	err = svcErr.Storage("list candidates", fmt.Errorf("dial: %w", context.DeadlineExceeded))
	var se *svcErr.StorageError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Timeout())
	assert.Equal(t, "list candidates", se.Op)

	// already classified errors are not wrapped twice
	again := svcErr.Storage("outer", err)
	require.ErrorAs(t, again, &se)
	assert.Equal(t, "list candidates", se.Op)
}

func TestMap(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"validation", svcErr.Invalid("age", "must be at least 18"), codes.InvalidArgument},
		{"not found", fmt.Errorf("get user: %w", svcErr.ErrNotFound), codes.NotFound},
		{"gorm not found", gorm.ErrRecordNotFound, codes.NotFound},
		{"exists", svcErr.Storage("create", gorm.ErrDuplicatedKey), codes.AlreadyExists},
		{"timeout", svcErr.Storage("get", context.DeadlineExceeded), codes.DeadlineExceeded},
		{"canceled", context.Canceled, codes.Canceled},
		{"storage", svcErr.Storage("get", errors.New("connection refused")), codes.Unavailable},
		{"other", errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, ok := status.FromError(svcErr.Map(tc.err))
			require.True(t, ok)
			assert.Equal(t, tc.code, st.Code())
		})
	}

	assert.Nil(t, svcErr.Map(nil))
}

func TestMapRateLimitCarriesRetryInfo(t *testing.T) {
	err := svcErr.Map(&svcErr.RateLimitExceeded{Action: "like", RetryAfter: 1500 * time.Millisecond})

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.ResourceExhausted, st.Code())
	assert.Contains(t, st.Message(), "retry in 2s")

	require.Len(t, st.Details(), 1)
	info, ok := st.Details()[0].(*errdetails.RetryInfo)
	require.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, info.GetRetryDelay().AsDuration())
}
