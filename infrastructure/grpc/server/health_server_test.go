package server

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startHealthServer(t *testing.T) (*HealthServer, grpc_health_v1.HealthClient) {
	t.Helper()
	listener := bufconn.Listen(1024 * 1024)
	server := NewHealthServer(logs.GetLoggerFromLevel(slog.LevelDebug))
	done := make(chan error, 1)
	go func() { done <- server.Serve(listener) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
		require.NoError(t, <-done)
	})
	return server, grpc_health_v1.NewHealthClient(conn)
}

func TestHealthServer_FollowsReportedStatus(t *testing.T) {
	req := require.New(t)
	server, client := startHealthServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	check := func() grpc_health_v1.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: ChatServiceName})
		req.NoError(err)
		return resp.GetStatus()
	}

	// Given no probe has run yet
	req.Equal(grpc_health_v1.HealthCheckResponse_UNKNOWN, check())

	// When the store is reachable
	server.SetServingStatus(ChatServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	req.Equal(grpc_health_v1.HealthCheckResponse_SERVING, check())

	// When the store goes down
	server.SetServingStatus(ChatServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	req.Equal(grpc_health_v1.HealthCheckResponse_NOT_SERVING, check())

	// The overall server health is always reported
	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	req.NoError(err)
	req.Equal(grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}
