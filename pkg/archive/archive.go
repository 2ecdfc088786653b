package archive

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"time"
)

// ErrNotFound is returned when a path does not resolve to a resource
var ErrNotFound = errors.New("resource not found")

// FileInfo describes one entry of an archive listing
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	IsDir   bool      `json:"isDir,omitempty"`
	ModTime time.Time `json:"modTime,omitempty"`
}

// Archive resolves paths to out-of-band artifacts referenced by events
type Archive interface {
	// GetBlob returns the raw bytes at path
	GetBlob(ctx context.Context, path string) ([]byte, error)

	// GetJSON decodes the JSON document at path into v
	GetJSON(ctx context.Context, path string, v any) error

	// GetDataURL returns the resource at path as a base64 data: URL
	GetDataURL(ctx context.Context, path string) (string, error)

	// GetFileInfo lists the archive's entries
	GetFileInfo(ctx context.Context) ([]FileInfo, error)
}

// IsNotFound reports whether err means the resource does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func getJSON(ctx context.Context, a Archive, p string, v any) error {
	data, err := a.GetBlob(ctx, p)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", p, err)
	}
	return nil
}

func getDataURL(ctx context.Context, a Archive, p string) (string, error) {
	data, err := a.GetBlob(ctx, p)
	if err != nil {
		return "", err
	}
	return DataURL(p, data), nil
}

// DataURL encodes data as a base64 data: URL. The media type comes from
// the path's extension, or is sniffed from the content when unknown.
func DataURL(p string, data []byte) string {
	mt := mime.TypeByExtension(path.Ext(p))
	if mt == "" {
		mt = http.DetectContentType(data)
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
}
