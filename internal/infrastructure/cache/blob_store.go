package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

// BlobRefPrefix marks references minted by BlobStore
const BlobRefPrefix = "blob:"

// BlobStore publishes compressed images under "blob:<uuid>" references.
// Reads go to the local tier first and fall through to the shared tier,
// repopulating the local one.
type BlobStore struct {
	local  outbound.CacheRepository
	shared outbound.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewBlobStore creates a blob store. shared may be nil.
func NewBlobStore(local, shared outbound.CacheRepository, ttl time.Duration, logger *zap.Logger) *BlobStore {
	return &BlobStore{
		local:  local,
		shared: shared,
		ttl:    ttl,
		logger: logger.Named("blobstore"),
	}
}

var _ outbound.BlobStore = (*BlobStore)(nil)

// IsBlobRef reports whether ref was minted by a BlobStore
func IsBlobRef(ref string) bool {
	return strings.HasPrefix(ref, BlobRefPrefix)
}

// Put stores blob under a fresh reference. Every call mints a new
// reference, even for identical bytes.
func (s *BlobStore) Put(ctx context.Context, blob *outbound.Blob) (string, error) {
	if blob.Size() == 0 {
		return "", fmt.Errorf("empty blob")
	}

	ref := BlobRefPrefix + uuid.NewString()
	payload := encodeBlob(blob)

	if err := s.local.Set(ctx, ref, payload, s.ttl); err != nil {
		return "", fmt.Errorf("store blob: %w", err)
	}
	if s.shared != nil {
		if err := s.shared.Set(ctx, ref, payload, s.ttl); err != nil {
			s.logger.Warn("Shared blob tier unavailable", zap.String("ref", ref), zap.Error(err))
		}
	}
	return ref, nil
}

// Get resolves a reference. Unknown and revoked references yield
// outbound.ErrBlobNotFound.
func (s *BlobStore) Get(ctx context.Context, ref string) (*outbound.Blob, error) {
	if !IsBlobRef(ref) {
		return nil, outbound.ErrBlobNotFound
	}

	payload, err := s.local.Get(ctx, ref)
	if err == nil {
		return decodeBlob(payload)
	}
	if !errors.Is(err, outbound.ErrCacheMiss) {
		return nil, err
	}
	if s.shared == nil {
		return nil, outbound.ErrBlobNotFound
	}

	payload, err = s.shared.Get(ctx, ref)
	if errors.Is(err, outbound.ErrCacheMiss) {
		return nil, outbound.ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}

	_ = s.local.Set(ctx, ref, payload, s.ttl)
	return decodeBlob(payload)
}

// Revoke releases a reference in both tiers. Revoking twice is a no-op.
func (s *BlobStore) Revoke(ctx context.Context, ref string) error {
	if !IsBlobRef(ref) {
		return nil
	}
	if err := s.local.Delete(ctx, ref); err != nil {
		return err
	}
	if s.shared != nil {
		if err := s.shared.Delete(ctx, ref); err != nil {
			s.logger.Warn("Shared blob revoke failed", zap.String("ref", ref), zap.Error(err))
		}
	}
	return nil
}

// encodeBlob prefixes the payload with its content type and a newline
func encodeBlob(blob *outbound.Blob) []byte {
	buf := make([]byte, 0, len(blob.ContentType)+1+len(blob.Data))
	buf = append(buf, blob.ContentType...)
	buf = append(buf, '\n')
	return append(buf, blob.Data...)
}

func decodeBlob(payload []byte) (*outbound.Blob, error) {
	i := bytes.IndexByte(payload, '\n')
	if i < 0 {
		return nil, fmt.Errorf("corrupt blob payload")
	}
	return &outbound.Blob{ContentType: string(payload[:i]), Data: payload[i+1:]}, nil
}
