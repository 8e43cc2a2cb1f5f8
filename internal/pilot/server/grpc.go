package server

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"k8s.io/utils/clock"

	grpcmw "github.com/autopeer-io/dronecontrol/internal/pkg/middleware/grpc"
	"github.com/autopeer-io/dronecontrol/pkg/log"
	"github.com/autopeer-io/dronecontrol/pkg/options"
)

// VehicleService is the health service name tracking vehicle readiness.
const VehicleService = "dronecontrol.Vehicle"

const readinessPoll = 500 * time.Millisecond

type GRPCServer struct {
	server  *grpc.Server
	health  *health.Server
	session Session
	options *options.GrpcOptions
	clock   clock.WithTicker
}

// GRPCOption configures a GRPCServer.
type GRPCOption func(*GRPCServer)

// WithClock sets the clock driving the readiness poll.
func WithClock(clk clock.WithTicker) GRPCOption {
	return func(s *GRPCServer) { s.clock = clk }
}

// NewGRPCServer builds a gRPC server with the standard health service.
func NewGRPCServer(opts *options.GrpcOptions, b Backend, o ...GRPCOption) *GRPCServer {
	s := grpc.NewServer(grpc.UnaryInterceptor(grpcmw.UnaryTimeoutInterceptor))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s) // Enable grpc_cli support

	hs.SetServingStatus(VehicleService, healthpb.HealthCheckResponse_NOT_SERVING)
	gs := &GRPCServer{server: s, health: hs, session: b.Session, options: opts, clock: clock.RealClock{}}
	for _, fn := range o {
		fn(gs)
	}
	return gs
}

func (s *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}

	log.Info("Starting gRPC Server", "addr", s.options.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	s.syncHealth()
	ticker := s.clock.NewTicker(readinessPoll)
	defer ticker.Stop()

	for {
		select {
		case err := <-errCh:
			return err
		case <-ticker.C():
			s.syncHealth()
		case <-ctx.Done():
			s.health.Shutdown()
			s.server.GracefulStop()
			return nil
		}
	}
}

func (s *GRPCServer) syncHealth() {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if s.session != nil && s.session.IsReady() {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(VehicleService, st)
}
