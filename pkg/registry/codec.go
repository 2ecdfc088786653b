package registry

import (
	"encoding/json"
	"fmt"

	"github.com/mabitter/tractor-sub000/pkg/types"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

// Codec decodes, encodes and JSON-converts one payload type
type Codec interface {
	// TypeID returns the type URL this codec handles
	TypeID() types.TypeID

	// New returns an empty message of the codec's type
	New() proto.Message

	Decode(data []byte) (proto.Message, error)
	Encode(m proto.Message) ([]byte, error)
	FromJSON(data []byte) (proto.Message, error)
	ToJSON(m proto.Message) ([]byte, error)

	// FromPartial builds a complete message from a subset of its fields,
	// keyed by JSON field name. Missing fields take their zero values.
	FromPartial(fields map[string]any) (proto.Message, error)
}

// messageCodec implements Codec over a protobuf message type, generated or dynamic
type messageCodec struct {
	id       types.TypeID
	mt       protoreflect.MessageType
	resolver *protoregistry.Types
}

func newMessageCodec(mt protoreflect.MessageType, resolver *protoregistry.Types) *messageCodec {
	return &messageCodec{
		id:       types.TypeIDForName(mt.Descriptor().FullName()),
		mt:       mt,
		resolver: resolver,
	}
}

func (c *messageCodec) TypeID() types.TypeID {
	return c.id
}

func (c *messageCodec) New() proto.Message {
	return c.mt.New().Interface()
}

func (c *messageCodec) Decode(data []byte) (proto.Message, error) {
	m := c.New()
	if err := proto.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.name(), err)
	}
	return m, nil
}

func (c *messageCodec) Encode(m proto.Message) ([]byte, error) {
	if err := c.check(m); err != nil {
		return nil, err
	}
	return proto.Marshal(m)
}

func (c *messageCodec) FromJSON(data []byte) (proto.Message, error) {
	m := c.New()
	opts := protojson.UnmarshalOptions{DiscardUnknown: true, Resolver: c.resolver}
	if err := opts.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse %s from JSON: %w", c.name(), err)
	}
	return m, nil
}

func (c *messageCodec) ToJSON(m proto.Message) ([]byte, error) {
	if err := c.check(m); err != nil {
		return nil, err
	}
	return protojson.MarshalOptions{Resolver: c.resolver}.Marshal(m)
}

func (c *messageCodec) FromPartial(fields map[string]any) (proto.Message, error) {
	if fields == nil {
		return c.New(), nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode partial %s: %w", c.name(), err)
	}
	return c.FromJSON(data)
}

func (c *messageCodec) name() protoreflect.FullName {
	return c.mt.Descriptor().FullName()
}

func (c *messageCodec) check(m proto.Message) error {
	if m == nil {
		return fmt.Errorf("nil message for %s", c.name())
	}
	if got := m.ProtoReflect().Descriptor().FullName(); got != c.name() {
		return fmt.Errorf("codec %s cannot encode %s", c.name(), got)
	}
	return nil
}
