package registry

import (
	"errors"
	"fmt"

	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"google.golang.org/protobuf/proto"
)

// ErrUnknownType is returned when a payload's TypeID has no codec
var ErrUnknownType = errors.New("unknown event type")

// DecodeError describes a payload that could not be decoded
type DecodeError struct {
	Name   string
	TypeID types.TypeID
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %q (%s): %v", e.Name, e.TypeID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode returns the typed payload of an envelope. An envelope without a
// payload decodes to nil with no error.
func (r *Registry) Decode(env *types.Envelope) (proto.Message, error) {
	if !env.HasPayload() {
		return nil, nil
	}

	codec, ok := r.Lookup(env.Data.TypeURL)
	if !ok {
		return nil, &DecodeError{Name: env.Name, TypeID: env.Data.TypeURL, Err: ErrUnknownType}
	}

	m, err := codec.Decode(env.Data.Value)
	if err != nil {
		return nil, &DecodeError{Name: env.Name, TypeID: env.Data.TypeURL, Err: err}
	}
	return m, nil
}

// DecodeEvent is Decode for ingestion paths: failures are logged and
// counted, and reported as a nil message.
func (r *Registry) DecodeEvent(env *types.Envelope) proto.Message {
	m, err := r.Decode(env)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, ErrUnknownType) {
			reason = "unknown_type"
		}
		metrics.DecodeFailures.WithLabelValues(reason).Inc()
		r.logger.Warn().
			Err(err).
			Str("stream", env.Name).
			Str("type_id", string(env.TypeID())).
			Msg("Dropping undecodable event")
		return nil
	}
	return m
}
