package api

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SyncInterval is how often component health is copied into the gRPC
// health service
const SyncInterval = time.Second

// stopTimeout bounds GracefulStop; open Watch streams never end on their own
const stopTimeout = 5 * time.Second

// Server serves grpc.health.v1 for the console. The empty service name
// carries overall health and every component registered with
// metrics.UpdateComponent gets a service of the same name.
type Server struct {
	grpc   *grpc.Server
	health *health.Server

	stopCh   chan struct{}
	stopOnce sync.Once
	logger   zerolog.Logger
}

// NewServer creates a gRPC server with logging interceptors
func NewServer() *Server {
	logger := log.WithComponent("api")
	s := &Server{
		grpc: grpc.NewServer(
			grpc.ChainUnaryInterceptor(UnaryLoggingInterceptor(logger)),
			grpc.ChainStreamInterceptor(StreamLoggingInterceptor(logger)),
		),
		health: health.NewServer(),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s
}

// Start listens on addr and serves until Stop
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

// Serve serves on an existing listener until Stop
func (s *Server) Serve(lis net.Listener) error {
	metrics.UpdateComponent("api", true, "listening on "+lis.Addr().String())
	s.SyncHealth()
	go s.syncLoop()

	s.logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC API listening")
	err := s.grpc.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// SyncHealth copies component health from pkg/metrics into the gRPC health
// service
func (s *Server) SyncHealth() {
	h := metrics.GetHealth()

	s.health.SetServingStatus("", servingStatus(h.Status == metrics.StatusHealthy))
	for name, st := range h.Components {
		s.health.SetServingStatus(name, servingStatus(st == metrics.StatusHealthy))
	}
}

func (s *Server) syncLoop() {
	ticker := time.NewTicker(SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.SyncHealth()
		}
	}
}

// Stop marks every service NOT_SERVING and shuts the server down. It is
// safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.health.Shutdown()

		done := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(stopTimeout):
			s.logger.Warn().Msg("graceful stop timed out, closing connections")
			s.grpc.Stop()
		}
	})
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
