package health

import (
	"context"
	"net"
	"testing"

	"github.com/mabitter/tractor-sub000/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestGRPCChecker(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	c, err := client.NewClient(lis.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	r := NewGRPCChecker(c, "").Check(context.Background())
	assert.True(t, r.Healthy, r.Message)
	assert.Equal(t, "SERVING", r.Message)

	hs.SetServingStatus("transport", healthpb.HealthCheckResponse_NOT_SERVING)
	r = NewGRPCChecker(c, "transport").Check(context.Background())
	assert.False(t, r.Healthy)
	assert.Equal(t, "NOT_SERVING", r.Message)

	r = NewGRPCChecker(c, "missing").Check(context.Background())
	assert.False(t, r.Healthy)
	assert.Equal(t, CheckTypeGRPC, NewGRPCChecker(c, "").Type())
}
