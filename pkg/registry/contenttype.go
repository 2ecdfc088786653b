package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mabitter/tractor-sub000/pkg/types"
	"google.golang.org/protobuf/proto"
)

// Format is the serialization of an out-of-band resource
type Format string

const (
	FormatJSON     Format = "application/json"
	FormatProtobuf Format = "application/protobuf"
)

// ErrUnsupportedFormat is returned for resource formats other than JSON and protobuf
var ErrUnsupportedFormat = errors.New("unsupported resource format")

// ContentType is a parsed "<format>; type=<TypeID>" resource content type
type ContentType struct {
	Format Format
	TypeID types.TypeID
}

// ParseContentType parses strings such as
// "application/json; type=type.googleapis.com/google.protobuf.Struct".
// Type URLs contain '/', so parameters are split by hand rather than with
// mime.ParseMediaType, which rejects unquoted '/' in values.
func ParseContentType(s string) (ContentType, error) {
	parts := strings.Split(s, ";")
	ct := ContentType{Format: Format(strings.ToLower(strings.TrimSpace(parts[0])))}

	switch ct.Format {
	case FormatJSON, FormatProtobuf:
	default:
		return ContentType{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, parts[0])
	}

	for _, param := range parts[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), "type") {
			ct.TypeID = types.TypeID(strings.Trim(strings.TrimSpace(value), `"`))
		}
	}

	if ct.TypeID == "" {
		return ContentType{}, fmt.Errorf("content type %q has no type parameter", s)
	}
	return ct, nil
}

// String formats the content type back into its wire form
func (c ContentType) String() string {
	return fmt.Sprintf("%s; type=%s", c.Format, c.TypeID)
}

// DecodeContent decodes resource bytes according to a content type
func (r *Registry) DecodeContent(ct ContentType, data []byte) (proto.Message, error) {
	codec, ok := r.Lookup(ct.TypeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, ct.TypeID)
	}
	switch ct.Format {
	case FormatJSON:
		return codec.FromJSON(data)
	case FormatProtobuf:
		return codec.Decode(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ct.Format)
	}
}
