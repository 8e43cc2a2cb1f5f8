package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func deadlineOf(ctx context.Context, _ any) (any, error) {
	d, ok := ctx.Deadline()
	if !ok {
		return nil, nil
	}
	return d, nil
}

func TestUnaryTimeoutInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	got, err := UnaryTimeoutInterceptor(context.Background(), nil, info, deadlineOf)
	require.NoError(t, err)
	require.IsType(t, time.Time{}, got)
	assert.WithinDuration(t, time.Now().Add(DefaultRPCTimeout), got.(time.Time), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	want, _ := ctx.Deadline()
	got, err = UnaryTimeoutInterceptor(ctx, nil, info, deadlineOf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
