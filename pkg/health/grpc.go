package health

import (
	"context"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/client"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCChecker asks a console's gRPC health service for one service status
type GRPCChecker struct {
	Client  *client.Client
	Service string
}

// NewGRPCChecker probes service; the empty name is the whole console
func NewGRPCChecker(c *client.Client, service string) *GRPCChecker {
	return &GRPCChecker{Client: c, Service: service}
}

func (g *GRPCChecker) Check(ctx context.Context) Result {
	start := time.Now()

	st, err := g.Client.Check(ctx, g.Service)
	if err != nil {
		return result(start, false, "%v", err)
	}
	return result(start, st == healthpb.HealthCheckResponse_SERVING, "%s", st)
}

func (g *GRPCChecker) Type() CheckType {
	return CheckTypeGRPC
}
