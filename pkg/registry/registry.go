package registry

import (
	"fmt"
	"sort"

	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Registry maps TypeIDs to codecs. It is immutable once built and safe for
// concurrent use.
type Registry struct {
	codecs map[types.TypeID]Codec
	types  *protoregistry.Types
	logger zerolog.Logger
}

// Known returns the compiled-in payload schemas
func Known() []proto.Message {
	return []proto.Message{
		&structpb.Struct{},
		&structpb.Value{},
		&structpb.ListValue{},
		&timestamppb.Timestamp{},
		&durationpb.Duration{},
		&emptypb.Empty{},
		&fieldmaskpb.FieldMask{},
		&anypb.Any{},
		&wrapperspb.DoubleValue{},
		&wrapperspb.FloatValue{},
		&wrapperspb.Int64Value{},
		&wrapperspb.UInt64Value{},
		&wrapperspb.Int32Value{},
		&wrapperspb.UInt32Value{},
		&wrapperspb.BoolValue{},
		&wrapperspb.StringValue{},
		&wrapperspb.BytesValue{},
	}
}

// Default builds a registry of the Known schemas
func Default() *Registry {
	reg, err := NewBuilder().Add(Known()...).Build()
	if err != nil {
		// Known types never conflict
		panic(err)
	}
	return reg
}

// Lookup returns the codec for a TypeID. A miss is not an error: callers
// fall back to an opaque rendering of the payload.
func (r *Registry) Lookup(id types.TypeID) (Codec, bool) {
	c, ok := r.codecs[id]
	return c, ok
}

// TypeIDs returns every registered TypeID in sorted order
func (r *Registry) TypeIDs() []types.TypeID {
	ids := make([]types.TypeID, 0, len(r.codecs))
	for id := range r.codecs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of registered types
func (r *Registry) Len() int {
	return len(r.codecs)
}

// Builder accumulates schemas for a Registry
type Builder struct {
	codecs map[types.TypeID]Codec
	types  *protoregistry.Types
	err    error
}

// NewBuilder creates an empty registry builder
func NewBuilder() *Builder {
	return &Builder{
		codecs: make(map[types.TypeID]Codec),
		types:  new(protoregistry.Types),
	}
}

// Add registers generated message types. The first registration of a
// full name wins; later duplicates are ignored.
func (b *Builder) Add(msgs ...proto.Message) *Builder {
	for _, m := range msgs {
		b.AddType(m.ProtoReflect().Type())
	}
	return b
}

// AddType registers a message type
func (b *Builder) AddType(mt protoreflect.MessageType) *Builder {
	if b.err != nil {
		return b
	}
	id := types.TypeIDForName(mt.Descriptor().FullName())
	if _, exists := b.codecs[id]; exists {
		return b
	}
	if err := b.types.RegisterMessage(mt); err != nil {
		b.err = fmt.Errorf("failed to register %s: %w", id, err)
		return b
	}
	b.codecs[id] = newMessageCodec(mt, b.types)
	return b
}

// Build freezes the registry. The builder must not be reused.
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	reg := &Registry{
		codecs: b.codecs,
		types:  b.types,
		logger: log.WithComponent("registry"),
	}
	b.codecs = nil
	return reg, nil
}
