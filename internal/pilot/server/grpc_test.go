package server

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/dronecontrol/pkg/options"
)

type switchable struct{ ready atomic.Bool }

func (s *switchable) IsReady() bool { return s.ready.Load() }

func TestGRPCHealthFollowsSession(t *testing.T) {
	opts := options.NewGrpcOptions()
	opts.Addr = "127.0.0.1:0"
	session := &switchable{}
	clk := clocktesting.NewFakeClock(time.Now())
	s := NewGRPCServer(opts, Backend{Session: session}, WithClock(clk))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	serving := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := s.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: VehicleService})
		if err != nil {
			return healthpb.HealthCheckResponse_UNKNOWN
		}
		return resp.GetStatus()
	}

	require.Eventually(t, clk.HasWaiters, time.Second, time.Millisecond)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, serving())

	session.ready.Store(true)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, serving())

	clk.Step(readinessPoll)
	require.Eventually(t, func() bool { return serving() == healthpb.HealthCheckResponse_SERVING },
		time.Second, time.Millisecond)
}
