package registry

import (
	"testing"

	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestDefaultRegistry(t *testing.T) {
	reg := Default()
	assert.Equal(t, len(Known()), reg.Len())

	ids := reg.TypeIDs()
	require.Len(t, ids, reg.Len())
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}

	codec, ok := reg.Lookup(types.TypeIDOf(&structpb.Struct{}))
	require.True(t, ok)
	assert.Equal(t, types.TypeID("type.googleapis.com/google.protobuf.Struct"), codec.TypeID())

	_, ok = reg.Lookup("type.googleapis.com/farm_ng.Unknown")
	assert.False(t, ok)
}

func TestBuilderIgnoresDuplicates(t *testing.T) {
	reg, err := NewBuilder().
		Add(&wrapperspb.DoubleValue{}).
		Add(&wrapperspb.DoubleValue{}, &wrapperspb.BoolValue{}).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}

func TestCodecRoundTrip(t *testing.T) {
	reg := Default()
	codec, ok := reg.Lookup(types.TypeIDOf(&structpb.Struct{}))
	require.True(t, ok)

	value, err := structpb.NewStruct(map[string]any{"tag_id": 7.0, "family": "tag36h11"})
	require.NoError(t, err)

	b, err := codec.Encode(value)
	require.NoError(t, err)
	decoded, err := codec.Decode(b)
	require.NoError(t, err)
	assert.True(t, proto.Equal(value, decoded))

	js, err := codec.ToJSON(decoded)
	require.NoError(t, err)
	fromJSON, err := codec.FromJSON(js)
	require.NoError(t, err)
	assert.True(t, proto.Equal(value, fromJSON))
}

func TestCodecRejectsForeignMessage(t *testing.T) {
	codec, ok := Default().Lookup(types.TypeIDOf(&structpb.Struct{}))
	require.True(t, ok)

	_, err := codec.Encode(wrapperspb.Bool(true))
	assert.Error(t, err)
	_, err = codec.ToJSON(nil)
	assert.Error(t, err)
}

func TestCodecFromPartial(t *testing.T) {
	codec, ok := Default().Lookup(types.TypeIDOf(&structpb.Struct{}))
	require.True(t, ok)

	m, err := codec.FromPartial(map[string]any{"program": "calibrate"})
	require.NoError(t, err)
	assert.Equal(t, "calibrate", m.(*structpb.Struct).Fields["program"].GetStringValue())

	empty, err := codec.FromPartial(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.(*structpb.Struct).Fields)
}

func TestCodecDecodeMalformed(t *testing.T) {
	codec, ok := Default().Lookup(types.TypeIDOf(&wrapperspb.StringValue{}))
	require.True(t, ok)

	_, err := codec.Decode([]byte{0x0a, 0x10, 'x'})
	assert.Error(t, err)
}
