package server

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/meetmatch/matchcore/internal/logger"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/meetmatch.v1.MatchService/Like"}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestJSONCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)

	type msg struct {
		UserID string `json:"user_id"`
	}
	b, err := c.Marshal(&msg{UserID: "42"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":"42"}`, string(b))

	var out msg
	require.NoError(t, c.Unmarshal(b, &out))
	assert.Equal(t, "42", out.UserID)
}

func TestUnaryLogging_UsesIncomingRequestID(t *testing.T) {
	log, buf := bufferLogger()
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDHeader, "req-7"))

	var scoped *slog.Logger
	_, err := UnaryLogging(log)(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
		scoped = logger.FromContext(ctx, nil)
		scoped.Info("inside handler")
		return "ok", nil
	})
	require.NoError(t, err)
	require.NotNil(t, scoped)

	out := buf.String()
	assert.Contains(t, out, "inside handler")
	assert.Contains(t, out, "request_id=req-7")
	assert.Contains(t, out, "code=OK")
}

func TestUnaryLogging_GeneratesRequestID(t *testing.T) {
	log, buf := bufferLogger()
	_, err := UnaryLogging(log)(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		return nil, status.Error(codes.Unavailable, "down")
	})
	assert.Equal(t, codes.Unavailable, status.Code(err))

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Regexp(t, `request_id=[0-9a-f-]{36}`, out)
}

func TestUnaryRecovery(t *testing.T) {
	log, buf := bufferLogger()
	_, err := UnaryRecovery(log)(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, buf.String(), "panic in handler")
	assert.Contains(t, buf.String(), "boom")
}
