package api

import (
	"context"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryLoggingInterceptor logs every unary call and counts it in
// metrics.APIRequests
func UnaryLoggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		observe(logger, info.FullMethod, start, err)
		return resp, err
	}
}

// StreamLoggingInterceptor is the streaming counterpart, used by health Watch
func StreamLoggingInterceptor(logger zerolog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		err := handler(srv, ss)
		observe(logger, info.FullMethod, start, err)
		return err
	}
}

func observe(logger zerolog.Logger, method string, start time.Time, err error) {
	code := status.Code(err)
	metrics.APIRequests.WithLabelValues(method, code.String()).Inc()

	ev := logger.Debug()
	switch code {
	case codes.OK, codes.Canceled, codes.NotFound:
	default:
		ev = logger.Warn().Err(err)
	}
	ev.Str("method", method).
		Str("code", code.String()).
		Dur("duration", time.Since(start)).
		Msg("rpc")
}
