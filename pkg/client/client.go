package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// DefaultTimeout bounds a single Check
const DefaultTimeout = 10 * time.Second

// ErrUnknownService is returned when the server has no status for a service
var ErrUnknownService = errors.New("unknown service")

// ServingStatus mirrors the gRPC health serving status
type ServingStatus = healthpb.HealthCheckResponse_ServingStatus

// Client talks to a console's gRPC health service
type Client struct {
	conn    *grpc.ClientConn
	health  healthpb.HealthClient
	Timeout time.Duration
}

// NewClient connects without transport security. The console API listens
// on loopback by default.
func NewClient(addr string) (*Client, error) {
	return dial(addr, insecure.NewCredentials())
}

// NewTLSClient verifies the server against the CA bundle in caFile
func NewTLSClient(addr, caFile string) (*Client, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}

	return dial(addr, credentials.NewTLS(&tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS13,
	}))
}

func dial(addr string, creds credentials.TransportCredentials) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &Client{
		conn:    conn,
		health:  healthpb.NewHealthClient(conn),
		Timeout: DefaultTimeout,
	}, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Check returns the serving status of a service. The empty service name is
// the console as a whole.
func (c *Client) Check(ctx context.Context, service string) (ServingStatus, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return healthpb.HealthCheckResponse_SERVICE_UNKNOWN, fmt.Errorf("%w: %q", ErrUnknownService, service)
		}
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check failed: %w", err)
	}
	return resp.GetStatus(), nil
}

// CheckAll checks each service in turn. Services the server does not know
// are reported as SERVICE_UNKNOWN; any other failure aborts.
func (c *Client) CheckAll(ctx context.Context, services ...string) (map[string]ServingStatus, error) {
	out := make(map[string]ServingStatus, len(services))
	for _, svc := range services {
		st, err := c.Check(ctx, svc)
		if err != nil && !errors.Is(err, ErrUnknownService) {
			return nil, err
		}
		out[svc] = st
	}
	return out, nil
}

// Watch calls fn with every status change of service until ctx is done or
// the server closes the stream
func (c *Client) Watch(ctx context.Context, service string, fn func(ServingStatus)) error {
	stream, err := c.health.Watch(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch failed: %w", err)
		}
		fn(resp.GetStatus())
	}
}
