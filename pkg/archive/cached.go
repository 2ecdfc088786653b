package archive

import (
	"context"

	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/rs/zerolog"
)

// BlobCache stores fetched resources by path
type BlobCache interface {
	GetBlob(key string) ([]byte, error)
	PutBlob(key string, data []byte) error
}

// CachedArchive serves blobs from a cache, fetching from the underlying
// archive on a miss. Listings are never cached.
type CachedArchive struct {
	archive Archive
	cache   BlobCache
	prefix  string
	logger  zerolog.Logger
}

// NewCachedArchive wraps a. Keys are namespaced by prefix so several
// archives can share one cache.
func NewCachedArchive(a Archive, cache BlobCache, prefix string) *CachedArchive {
	return &CachedArchive{
		archive: a,
		cache:   cache,
		prefix:  prefix,
		logger:  log.WithComponent("archive").With().Str("backend", "cache").Logger(),
	}
}

func (c *CachedArchive) GetBlob(ctx context.Context, path string) ([]byte, error) {
	key := c.prefix + path
	if data, err := c.cache.GetBlob(key); err == nil {
		return data, nil
	}

	data, err := c.archive.GetBlob(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := c.cache.PutBlob(key, data); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("Failed to cache resource")
	}
	return data, nil
}

func (c *CachedArchive) GetJSON(ctx context.Context, path string, v any) error {
	return getJSON(ctx, c, path, v)
}

func (c *CachedArchive) GetDataURL(ctx context.Context, path string) (string, error) {
	return getDataURL(ctx, c, path)
}

func (c *CachedArchive) GetFileInfo(ctx context.Context) ([]FileInfo, error) {
	return c.archive.GetFileInfo(ctx)
}
