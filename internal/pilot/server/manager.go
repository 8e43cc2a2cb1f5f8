// Package server exposes the pilot over HTTP and gRPC.
package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/dronecontrol/pkg/log"
	"github.com/autopeer-io/dronecontrol/pkg/options"
)

// Server defines the common interface for all sub-servers (grpc, http).
type Server interface {
	Start(ctx context.Context) error
}

// Manager manages the lifecycle of all protocol servers.
type Manager struct {
	servers []Server
}

// NewManager creates the enabled servers.
func NewManager(httpOpts *options.HttpOptions, grpcOpts *options.GrpcOptions, backend Backend) *Manager {
	var servers []Server
	if httpOpts != nil && httpOpts.Enabled {
		servers = append(servers, NewHTTPServer(httpOpts, backend))
	}
	if grpcOpts != nil && grpcOpts.Enabled {
		servers = append(servers, NewGRPCServer(grpcOpts, backend))
	}
	return &Manager{servers: servers}
}

// Len returns the number of enabled servers.
func (m *Manager) Len() int {
	return len(m.servers)
}

// Start launches all servers in parallel and waits for termination.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, s := range m.servers {
		srv := s // capture loop variable
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}
