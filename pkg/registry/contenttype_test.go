package registry

import (
	"testing"

	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestParseContentType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ContentType
		wantErr bool
	}{
		{
			name:  "json",
			input: "application/json; type=type.googleapis.com/google.protobuf.Struct",
			want:  ContentType{Format: FormatJSON, TypeID: "type.googleapis.com/google.protobuf.Struct"},
		},
		{
			name:  "protobuf quoted",
			input: `application/protobuf;type="type.googleapis.com/farm_ng.Image"`,
			want:  ContentType{Format: FormatProtobuf, TypeID: "type.googleapis.com/farm_ng.Image"},
		},
		{
			name:  "extra params",
			input: "Application/JSON; charset=utf-8; type=x.Y",
			want:  ContentType{Format: FormatJSON, TypeID: "x.Y"},
		},
		{name: "unsupported format", input: "image/png; type=x.Y", wantErr: true},
		{name: "missing type", input: "application/json", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseContentType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentTypeString(t *testing.T) {
	ct := ContentType{Format: FormatJSON, TypeID: "x.Y"}
	parsed, err := ParseContentType(ct.String())
	require.NoError(t, err)
	assert.Equal(t, ct, parsed)
}

func TestDecodeContent(t *testing.T) {
	reg := Default()
	id := types.TypeIDOf(&structpb.Struct{})
	want, err := structpb.NewStruct(map[string]any{"rms": 0.25})
	require.NoError(t, err)

	m, err := reg.DecodeContent(ContentType{Format: FormatJSON, TypeID: id}, []byte(`{"rms": 0.25}`))
	require.NoError(t, err)
	assert.True(t, proto.Equal(want, m))

	b, err := proto.Marshal(want)
	require.NoError(t, err)
	m, err = reg.DecodeContent(ContentType{Format: FormatProtobuf, TypeID: id}, b)
	require.NoError(t, err)
	assert.True(t, proto.Equal(want, m))

	_, err = reg.DecodeContent(ContentType{Format: FormatJSON, TypeID: "nope"}, nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}
