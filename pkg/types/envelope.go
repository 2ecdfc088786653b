package types

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Field numbers of the Event message:
//
//	message Event {
//	  google.protobuf.Timestamp stamp = 1;
//	  string name = 2;
//	  google.protobuf.Any data = 3;
//	}
const (
	envelopeStampField protowire.Number = 1
	envelopeNameField  protowire.Number = 2
	envelopeDataField  protowire.Number = 3
)

// ErrMalformedEnvelope is returned when envelope bytes cannot be parsed
var ErrMalformedEnvelope = errors.New("malformed envelope")

// NewEnvelope packs a message into an envelope
func NewEnvelope(name string, stamp time.Time, m proto.Message) (*Envelope, error) {
	a, err := anypb.New(m)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", name, err)
	}
	return &Envelope{
		Name:  name,
		Stamp: stamp,
		Data:  &Payload{TypeURL: TypeID(a.TypeUrl), Value: a.Value},
	}, nil
}

// Any converts the payload into a google.protobuf.Any
func (p *Payload) Any() *anypb.Any {
	return &anypb.Any{TypeUrl: string(p.TypeURL), Value: p.Value}
}

// MarshalBinary encodes the envelope as a serialized Event message
func (e *Envelope) MarshalBinary() ([]byte, error) {
	var b []byte

	if !e.Stamp.IsZero() {
		ts, err := proto.Marshal(timestamppb.New(e.Stamp))
		if err != nil {
			return nil, fmt.Errorf("failed to encode stamp: %w", err)
		}
		b = protowire.AppendTag(b, envelopeStampField, protowire.BytesType)
		b = protowire.AppendBytes(b, ts)
	}

	if e.Name != "" {
		b = protowire.AppendTag(b, envelopeNameField, protowire.BytesType)
		b = protowire.AppendString(b, e.Name)
	}

	if e.Data != nil {
		data, err := proto.Marshal(e.Data.Any())
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		b = protowire.AppendTag(b, envelopeDataField, protowire.BytesType)
		b = protowire.AppendBytes(b, data)
	}

	return b, nil
}

// UnmarshalBinary decodes a serialized Event message. Unknown fields are skipped.
func (e *Envelope) UnmarshalBinary(b []byte) error {
	*e = Envelope{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedEnvelope, protowire.ParseError(n))
		}
		b = b[n:]

		known := num == envelopeStampField || num == envelopeNameField || num == envelopeDataField
		if !known || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformedEnvelope, num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformedEnvelope, num, protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case envelopeStampField:
			var ts timestamppb.Timestamp
			if err := proto.Unmarshal(v, &ts); err != nil {
				return fmt.Errorf("%w: stamp: %v", ErrMalformedEnvelope, err)
			}
			if err := ts.CheckValid(); err != nil {
				return fmt.Errorf("%w: stamp: %v", ErrMalformedEnvelope, err)
			}
			e.Stamp = ts.AsTime()
		case envelopeNameField:
			e.Name = string(v)
		case envelopeDataField:
			var a anypb.Any
			if err := proto.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("%w: data: %v", ErrMalformedEnvelope, err)
			}
			e.Data = &Payload{TypeURL: TypeID(a.TypeUrl), Value: a.Value}
		}
	}

	return nil
}
