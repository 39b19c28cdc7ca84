//go:build integration

// Package integration runs the persistence adapters against real servers
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/domain/catalog"
	gormRepo "github.com/newmanyatta/manyatta/internal/infrastructure/persistence/gorm"
	"github.com/newmanyatta/manyatta/internal/infrastructure/persistence/migrations"
	"github.com/newmanyatta/manyatta/internal/infrastructure/persistence/seed"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
	"github.com/newmanyatta/manyatta/test/testutils"
)

// CatalogRepositoryTestSuite exercises the GORM repository on a migrated
// PostgreSQL schema
type CatalogRepositoryTestSuite struct {
	suite.Suite
	testDB     *testutils.TestDatabase
	repository outbound.CatalogRepository
	factory    *testutils.CatalogFactory
	assertions *testutils.CatalogAssertions
	ctx        context.Context
}

func (s *CatalogRepositoryTestSuite) SetupSuite() {
	s.ctx = context.Background()
	s.testDB = testutils.SetupTestDatabase(s.T())
	s.repository = gormRepo.NewCatalogRepository(s.testDB.GormDB)
	s.factory = testutils.NewCatalogFactory(time.Now().UnixNano())
	s.assertions = testutils.NewCatalogAssertions(s.T())
}

func (s *CatalogRepositoryTestSuite) SetupTest() {
	s.testDB.TruncateAll()
}

func (s *CatalogRepositoryTestSuite) TestMigrationsAreClean() {
	m, err := migrations.New(s.testDB.DB, "manyatta_test", zap.NewNop())
	s.Require().NoError(err)

	version, dirty, err := m.Version()

	s.Require().NoError(err)
	s.False(dirty)
	s.NotZero(version)

	// Up on an applied schema is a no-op
	s.NoError(m.Up())
}

func (s *CatalogRepositoryTestSuite) TestPropertyRoundTrip() {
	// Arrange
	property, err := s.factory.Property()
	s.Require().NoError(err)

	// Act
	s.Require().NoError(s.repository.SaveProperty(s.ctx, property))
	got, err := s.repository.FindPropertyBySlug(s.ctx, property.Slug())

	// Assert
	s.Require().NoError(err)
	s.assertions.SameProperty(property, got)

	_, err = s.repository.FindPropertyBySlug(s.ctx, "missing-property")
	s.ErrorIs(err, catalog.ErrPropertyNotFound)
}

func (s *CatalogRepositoryTestSuite) TestListPropertiesByKind() {
	for i := 0; i < 6; i++ {
		p, err := s.factory.Property()
		s.Require().NoError(err)
		s.Require().NoError(s.repository.SaveProperty(s.ctx, p))
	}

	all, err := s.repository.ListProperties(s.ctx, "")
	s.Require().NoError(err)
	s.Len(all, 6)

	total := 0
	for _, kind := range []catalog.Kind{catalog.KindMountainVilla, catalog.KindSafari, catalog.KindApartment} {
		props, err := s.repository.ListProperties(s.ctx, kind)
		s.Require().NoError(err)
		for _, p := range props {
			s.Equal(kind, p.Kind())
		}
		total += len(props)
	}
	s.Equal(6, total)
}

func (s *CatalogRepositoryTestSuite) TestAlbumKeepsImageOrder() {
	// Arrange
	album, err := s.factory.Album("", 7)
	s.Require().NoError(err)

	// Act
	s.Require().NoError(s.repository.SaveAlbum(s.ctx, album))
	got, err := s.repository.FindAlbumBySlug(s.ctx, album.Slug())

	// Assert
	s.Require().NoError(err)
	s.assertions.SameAlbum(album, got)
	s.Equal(7, got.Len())

	_, err = s.repository.FindAlbumBySlug(s.ctx, "missing-album")
	s.ErrorIs(err, catalog.ErrAlbumNotFound)
}

func (s *CatalogRepositoryTestSuite) TestSaveAlbumReplacesImages() {
	album, err := s.factory.Album("", 5)
	s.Require().NoError(err)
	s.Require().NoError(s.repository.SaveAlbum(s.ctx, album))

	smaller, err := catalog.NewAlbum(album.Slug(), album.Title(), "", album.Images()[:2])
	s.Require().NoError(err)
	s.Require().NoError(s.repository.SaveAlbum(s.ctx, smaller))

	got, err := s.repository.FindAlbumBySlug(s.ctx, album.Slug())
	s.Require().NoError(err)
	s.Equal(album.ID(), got.ID())
	s.Equal(2, got.Len())

	count, err := s.repository.CountAlbums(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, count)
}

func (s *CatalogRepositoryTestSuite) TestSeedIsIdempotent() {
	s.Require().NoError(seed.Catalog(s.ctx, s.repository, zap.NewNop()))
	first, err := s.repository.CountAlbums(s.ctx)
	s.Require().NoError(err)
	s.Positive(first)

	s.Require().NoError(seed.Catalog(s.ctx, s.repository, zap.NewNop()))
	second, err := s.repository.CountAlbums(s.ctx)
	s.Require().NoError(err)
	s.Equal(first, second)
}

func TestCatalogRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	suite.Run(t, new(CatalogRepositoryTestSuite))
}
