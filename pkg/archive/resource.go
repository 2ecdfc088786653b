package archive

import (
	"context"
	"fmt"

	"github.com/mabitter/tractor-sub000/pkg/registry"
	"google.golang.org/protobuf/proto"
)

// Resource references an artifact stored outside the event stream, such
// as the image behind a detection or a calibration result
type Resource struct {
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
}

// LoadResource fetches a resource and decodes it according to its content
// type: JSON through protojson, protobuf through the binary codec.
func LoadResource(ctx context.Context, a Archive, reg *registry.Registry, res Resource) (proto.Message, error) {
	ct, err := registry.ParseContentType(res.ContentType)
	if err != nil {
		return nil, err
	}
	data, err := a.GetBlob(ctx, res.Path)
	if err != nil {
		return nil, err
	}
	m, err := reg.DecodeContent(ct, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s as %s: %w", res.Path, ct, err)
	}
	return m, nil
}
