// Package testutils provides mock implementations and fixtures for testing
package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/newmanyatta/manyatta/internal/domain/catalog"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

// MockCatalogRepository provides a mock implementation of CatalogRepository
type MockCatalogRepository struct {
	mock.Mock
}

// NewMockCatalogRepository creates a new mock catalog repository
func NewMockCatalogRepository() *MockCatalogRepository {
	return &MockCatalogRepository{}
}

// SaveProperty saves a property
func (m *MockCatalogRepository) SaveProperty(ctx context.Context, p *catalog.Property) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// FindPropertyBySlug finds a property by slug
func (m *MockCatalogRepository) FindPropertyBySlug(ctx context.Context, slug string) (*catalog.Property, error) {
	args := m.Called(ctx, slug)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Property), nil
}

// ListProperties lists properties of a kind
func (m *MockCatalogRepository) ListProperties(ctx context.Context, kind catalog.Kind) ([]*catalog.Property, error) {
	args := m.Called(ctx, kind)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*catalog.Property), nil
}

// SaveAlbum saves an album
func (m *MockCatalogRepository) SaveAlbum(ctx context.Context, a *catalog.Album) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

// FindAlbumBySlug finds an album by slug
func (m *MockCatalogRepository) FindAlbumBySlug(ctx context.Context, slug string) (*catalog.Album, error) {
	args := m.Called(ctx, slug)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Album), nil
}

// ListAlbums lists every album
func (m *MockCatalogRepository) ListAlbums(ctx context.Context) ([]*catalog.Album, error) {
	args := m.Called(ctx)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*catalog.Album), nil
}

// CountAlbums returns the number of albums
func (m *MockCatalogRepository) CountAlbums(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// SetupStandardMockBehavior sets up common mock behaviors
func (m *MockCatalogRepository) SetupStandardMockBehavior() {
	m.On("SaveProperty", mock.Anything, mock.AnythingOfType("*catalog.Property")).
		Return(nil)
	m.On("SaveAlbum", mock.Anything, mock.AnythingOfType("*catalog.Album")).
		Return(nil)

	m.On("FindPropertyBySlug", mock.Anything, mock.AnythingOfType("string")).
		Return((*catalog.Property)(nil), catalog.ErrPropertyNotFound)
	m.On("FindAlbumBySlug", mock.Anything, mock.AnythingOfType("string")).
		Return((*catalog.Album)(nil), catalog.ErrAlbumNotFound)

	m.On("ListProperties", mock.Anything, mock.Anything).
		Return([]*catalog.Property{}, nil)
	m.On("ListAlbums", mock.Anything).
		Return([]*catalog.Album{}, nil)
	m.On("CountAlbums", mock.Anything).
		Return(int64(0), nil)
}

// MockPreloader provides a mock implementation of Preloader
type MockPreloader struct {
	mock.Mock
}

// Preload warms src
func (m *MockPreloader) Preload(ctx context.Context, src string) error {
	args := m.Called(ctx, src)
	return args.Error(0)
}

// MockImageFetcher provides a mock implementation of ImageFetcher
type MockImageFetcher struct {
	mock.Mock
}

// Fetch returns the original bytes for src
func (m *MockImageFetcher) Fetch(ctx context.Context, src string) (*outbound.Blob, error) {
	args := m.Called(ctx, src)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbound.Blob), nil
}

// MemoryBlobStore is a map-backed BlobStore for tests that need real
// put/get/revoke behaviour rather than expectations
type MemoryBlobStore struct {
	mu      sync.Mutex
	blobs   map[string]*outbound.Blob
	revoked []string
	next    int
}

// NewMemoryBlobStore creates an empty store
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string]*outbound.Blob)}
}

// Put stores blob and returns its reference
func (s *MemoryBlobStore) Put(_ context.Context, blob *outbound.Blob) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	ref := fmt.Sprintf("blob:test-%d", s.next)
	s.blobs[ref] = blob
	return ref, nil
}

// Get returns a stored blob
func (s *MemoryBlobStore) Get(_ context.Context, ref string) (*outbound.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[ref]
	if !ok {
		return nil, outbound.ErrBlobNotFound
	}
	return blob, nil
}

// Revoke removes a stored blob
func (s *MemoryBlobStore) Revoke(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, ref)
	s.revoked = append(s.revoked, ref)
	return nil
}

// Revoked lists references passed to Revoke, in order
func (s *MemoryBlobStore) Revoked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.revoked))
	copy(out, s.revoked)
	return out
}

// Len is the number of live blobs
func (s *MemoryBlobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

var (
	_ outbound.CatalogRepository = (*MockCatalogRepository)(nil)
	_ outbound.Preloader         = (*MockPreloader)(nil)
	_ outbound.ImageFetcher      = (*MockImageFetcher)(nil)
	_ outbound.BlobStore         = (*MemoryBlobStore)(nil)
)
