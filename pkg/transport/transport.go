package transport

import (
	"context"

	"github.com/mabitter/tractor-sub000/pkg/events"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/rs/zerolog"
)

// Transport is a bidirectional link to the vehicle
type Transport interface {
	events.Sender
	Close() error
}

// dispatch parses one binary message as an envelope and emits it. A
// malformed message is logged and dropped.
func dispatch(emitter *events.Emitter, data []byte, logger zerolog.Logger) {
	env := new(types.Envelope)
	if err := env.UnmarshalBinary(data); err != nil {
		metrics.DecodeFailures.WithLabelValues("malformed").Inc()
		logger.Warn().Err(err).Int("bytes", len(data)).Msg("Dropping malformed message")
		return
	}
	emitter.Emit(env)
}

func marshal(ctx context.Context, env *types.Envelope) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return env.MarshalBinary()
}
