package gorm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/newmanyatta/manyatta/internal/domain/catalog"
	gormrepo "github.com/newmanyatta/manyatta/internal/infrastructure/persistence/gorm"
	"github.com/newmanyatta/manyatta/internal/infrastructure/persistence/sqlite"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

type CatalogRepositoryTestSuite struct {
	suite.Suite
	repo outbound.CatalogRepository
	ctx  context.Context
}

func (s *CatalogRepositoryTestSuite) SetupTest() {
	db, err := sqlite.SetupDatabase("", nil)
	s.Require().NoError(err)
	s.repo = gormrepo.NewCatalogRepository(db)
	s.ctx = context.Background()
}

func (s *CatalogRepositoryTestSuite) property(slug string, kind catalog.Kind) *catalog.Property {
	p, err := catalog.NewProperty(catalog.PropertyFields{
		Slug: slug,
		Kind: kind,
		Name: "Property " + slug,
	})
	s.Require().NoError(err)
	return p
}

func (s *CatalogRepositoryTestSuite) album(slug string, srcs ...string) *catalog.Album {
	images := make([]catalog.AlbumImage, len(srcs))
	for i, src := range srcs {
		images[i] = catalog.AlbumImage{Src: src, SortOrder: i}
	}
	a, err := catalog.NewAlbum(slug, "Album "+slug, "", images)
	s.Require().NoError(err)
	return a
}

func (s *CatalogRepositoryTestSuite) TestSaveAndFindProperty() {
	// Arrange
	p := s.property("alba-gardens", catalog.KindApartment)

	// Act
	s.Require().NoError(s.repo.SaveProperty(s.ctx, p))
	found, err := s.repo.FindPropertyBySlug(s.ctx, "alba-gardens")

	// Assert
	s.Require().NoError(err)
	s.Equal(p.ID(), found.ID())
	s.Equal(catalog.KindApartment, found.Kind())
	s.Equal("Property alba-gardens", found.Name())
}

func (s *CatalogRepositoryTestSuite) TestSaveProperty_UpsertsBySlug() {
	s.Require().NoError(s.repo.SaveProperty(s.ctx, s.property("alba-gardens", catalog.KindApartment)))

	renamed, err := catalog.NewProperty(catalog.PropertyFields{
		Slug: "alba-gardens",
		Kind: catalog.KindApartment,
		Name: "Alba Gardens B1702",
	})
	s.Require().NoError(err)
	s.Require().NoError(s.repo.SaveProperty(s.ctx, renamed))

	all, err := s.repo.ListProperties(s.ctx, "")
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal("Alba Gardens B1702", all[0].Name())
}

func (s *CatalogRepositoryTestSuite) TestFindProperty_NotFound() {
	_, err := s.repo.FindPropertyBySlug(s.ctx, "missing")
	s.ErrorIs(err, catalog.ErrPropertyNotFound)
}

func (s *CatalogRepositoryTestSuite) TestListProperties_FiltersByKind() {
	s.Require().NoError(s.repo.SaveProperty(s.ctx, s.property("burguret", catalog.KindMountainVilla)))
	s.Require().NoError(s.repo.SaveProperty(s.ctx, s.property("alba", catalog.KindApartment)))
	s.Require().NoError(s.repo.SaveProperty(s.ctx, s.property("laurel", catalog.KindApartment)))

	apartments, err := s.repo.ListProperties(s.ctx, catalog.KindApartment)
	s.Require().NoError(err)
	s.Require().Len(apartments, 2)
	s.Equal("alba", apartments[0].Slug())
	s.Equal("laurel", apartments[1].Slug())

	all, err := s.repo.ListProperties(s.ctx, "")
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *CatalogRepositoryTestSuite) TestSaveAndFindAlbum_PreservesOrder() {
	a := s.album("laurel", "/assets/c.jpg", "/assets/a.jpg", "/assets/b.jpg")

	s.Require().NoError(s.repo.SaveAlbum(s.ctx, a))
	found, err := s.repo.FindAlbumBySlug(s.ctx, "laurel")

	s.Require().NoError(err)
	s.Equal(a.ID(), found.ID())
	images := found.Images()
	s.Require().Len(images, 3)
	s.Equal("/assets/c.jpg", images[0].Src)
	s.Equal("/assets/a.jpg", images[1].Src)
	s.Equal("/assets/b.jpg", images[2].Src)
	s.Equal("c", images[0].Alt)
}

func (s *CatalogRepositoryTestSuite) TestSaveAlbum_ReplacesImages() {
	original := s.album("home", "/assets/a.jpg", "/assets/b.jpg")
	s.Require().NoError(s.repo.SaveAlbum(s.ctx, original))

	s.Require().NoError(s.repo.SaveAlbum(s.ctx, s.album("home", "/assets/z.jpg")))

	found, err := s.repo.FindAlbumBySlug(s.ctx, "home")
	s.Require().NoError(err)
	s.Equal(original.ID(), found.ID())
	s.Require().Equal(1, found.Len())
	s.Equal("/assets/z.jpg", found.Cover().Src)

	count, err := s.repo.CountAlbums(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *CatalogRepositoryTestSuite) TestFindAlbum_NotFound() {
	_, err := s.repo.FindAlbumBySlug(s.ctx, "missing")
	s.ErrorIs(err, catalog.ErrAlbumNotFound)
}

func (s *CatalogRepositoryTestSuite) TestListAlbums() {
	s.Require().NoError(s.repo.SaveAlbum(s.ctx, s.album("laurel", "/assets/l.jpg")))
	s.Require().NoError(s.repo.SaveAlbum(s.ctx, s.album("alba", "/assets/a1.jpg", "/assets/a2.jpg")))

	albums, err := s.repo.ListAlbums(s.ctx)

	s.Require().NoError(err)
	s.Require().Len(albums, 2)
	s.Equal("alba", albums[0].Slug())
	s.Equal(2, albums[0].Len())
	s.Equal("laurel", albums[1].Slug())
}

func TestCatalogRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogRepositoryTestSuite))
}

func TestMappers_RoundTripAlbum(t *testing.T) {
	a, err := catalog.NewAlbum("alba", "Alba", "alba-gardens", []catalog.AlbumImage{
		{Src: "/assets/x.jpg", Alt: "X", SortOrder: 5},
		{Src: "/assets/y.jpg", SortOrder: 1},
	})
	require.NoError(t, err)

	model := gormrepo.AlbumToModel(a)
	assert.Equal(t, 0, model.Images[0].SortOrder)
	assert.Equal(t, "/assets/y.jpg", model.Images[0].Src)

	back, err := gormrepo.ModelToAlbum(model)
	require.NoError(t, err)
	assert.Equal(t, a.Images()[0].Src, back.Images()[0].Src)
	assert.Equal(t, "alba-gardens", back.PropertySlug())
}
