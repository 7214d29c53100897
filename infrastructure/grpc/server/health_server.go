package server

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"social-chat/errors"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ChatServiceName is the health service whose status follows the storage probe.
const ChatServiceName = "social-chat.Chat"

// HealthServer exposes grpc.health.v1.Health for load balancers and orchestrators.
type HealthServer struct {
	log    *slog.Logger
	grpc   *grpc.Server
	health *health.Server
}

func NewHealthServer(log *slog.Logger) *HealthServer {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(log)))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	// Unknown until the first probe
	healthServer.SetServingStatus(ChatServiceName, grpc_health_v1.HealthCheckResponse_UNKNOWN)
	return &HealthServer{log: log, grpc: s, health: healthServer}
}

func (s *HealthServer) SetServingStatus(service string, status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus(service, status)
}

// Serve blocks until the listener fails or Stop is called.
func (s *HealthServer) Serve(listener net.Listener) error {
	s.log.Info("Starting gRPC health server", "address", listener.Addr().String(), "at", time.Now().UTC())
	for serviceName := range s.grpc.GetServiceInfo() {
		s.log.Debug("gRPC exposed services", "name", serviceName)
	}
	if err := s.grpc.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("gRPC server error: %w", err)
	}
	return nil
}

// Stop reports every service as NOT_SERVING, then lets active calls finish.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
