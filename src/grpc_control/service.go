package grpc_control

import (
	"context"
	"fmt"
	"net"
	"sync"

	"stock-watch/src/logger"
	"stock-watch/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ControlService exposes grpc.health.v1.Health. The service named after the
// app follows the refresh loop: SERVING after a good pass, NOT_SERVING in backoff.
type ControlService struct {
	Name   string
	Addr   string
	Health *health.Server
	Logger *logger.Logger

	mu       sync.Mutex
	server   *grpc.Server
	listener net.Listener
}

// NewControlService creates a new instance of ControlService
func NewControlService(cfg *models.MConfig, log *logger.Logger) *ControlService {
	hs := health.NewServer()
	// unknown until the first pass completes
	hs.SetServingStatus(cfg.Name, healthpb.HealthCheckResponse_NOT_SERVING)

	return &ControlService{
		Name:   cfg.Name,
		Addr:   fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort),
		Health: hs,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// SetServing flips the app service status.
func (s *ControlService) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.Health.SetServingStatus(s.Name, status)
}

// -----------------------------------------------------------------------------

// Check answers a health check in-process.
func (s *ControlService) Check(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: s.Name})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// -----------------------------------------------------------------------------

// Listen binds the configured address; Serve then blocks on it.
func (s *ControlService) Listen() (net.Addr, error) {
	lis, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return nil, fmt.Errorf("grpc listen on %s: %w", s.Addr, err)
	}

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, s.Health)

	s.mu.Lock()
	s.server, s.listener = srv, lis
	s.mu.Unlock()

	return lis.Addr(), nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) Serve() error {
	s.mu.Lock()
	srv, lis := s.server, s.listener
	s.mu.Unlock()

	if srv == nil {
		return fmt.Errorf("grpc server not listening")
	}
	s.Logger.Info("gRPC health service listening on %s", lis.Addr())
	return srv.Serve(lis)
}

// -----------------------------------------------------------------------------

// Stop marks everything NOT_SERVING and drains the server.
func (s *ControlService) Stop() {
	s.Health.Shutdown()

	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv != nil {
		srv.GracefulStop()
	}
}
