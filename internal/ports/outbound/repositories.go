// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/newmanyatta/manyatta/internal/domain/catalog"
)

var (
	// ErrCacheMiss is returned by CacheRepository.Get for absent or expired keys
	ErrCacheMiss = errors.New("cache miss")
	// ErrBlobNotFound is returned for unknown or revoked blob references
	ErrBlobNotFound = errors.New("blob not found")
	// ErrUnsupportedSource is returned by fetchers that cannot serve a source
	ErrUnsupportedSource = errors.New("unsupported image source")
)

// CatalogRepository defines the interface for property and album persistence
type CatalogRepository interface {
	SaveProperty(ctx context.Context, property *catalog.Property) error
	FindPropertyBySlug(ctx context.Context, slug string) (*catalog.Property, error)
	// ListProperties returns every property of kind, or all when kind is empty
	ListProperties(ctx context.Context, kind catalog.Kind) ([]*catalog.Property, error)

	SaveAlbum(ctx context.Context, album *catalog.Album) error
	FindAlbumBySlug(ctx context.Context, slug string) (*catalog.Album, error)
	ListAlbums(ctx context.Context) ([]*catalog.Album, error)
	CountAlbums(ctx context.Context) (int64, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Blob is an in-memory byte payload tagged with its media type
type Blob struct {
	Data        []byte
	ContentType string
}

// Size is the payload length in bytes
func (b *Blob) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// ImageFetcher retrieves the raw bytes of an image source
type ImageFetcher interface {
	Fetch(ctx context.Context, src string) (*Blob, error)
}

// BlobStore publishes compressed images under opaque "blob:" references
// that can be substituted for the original source.
type BlobStore interface {
	Put(ctx context.Context, blob *Blob) (string, error)
	Get(ctx context.Context, ref string) (*Blob, error)
	Revoke(ctx context.Context, ref string) error
}

// Preloader warms the client cache for one image source
type Preloader interface {
	Preload(ctx context.Context, src string) error
}
