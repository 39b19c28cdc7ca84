package gorm

import (
	"github.com/newmanyatta/manyatta/internal/domain/catalog"
)

// PropertyToModel converts a domain property to a GORM model
func PropertyToModel(p *catalog.Property) *PropertyModel {
	return &PropertyModel{
		ID:          p.ID(),
		Slug:        p.Slug(),
		Kind:        string(p.Kind()),
		Name:        p.Name(),
		Location:    p.Location(),
		Description: p.Description(),
		CoverImage:  p.CoverImage(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}

// ModelToProperty converts a GORM model to a domain property
func ModelToProperty(m *PropertyModel) (*catalog.Property, error) {
	return catalog.RestoreProperty(m.ID, catalog.PropertyFields{
		Slug:        m.Slug,
		Kind:        catalog.Kind(m.Kind),
		Name:        m.Name,
		Location:    m.Location,
		Description: m.Description,
		CoverImage:  m.CoverImage,
	}, m.CreatedAt, m.UpdatedAt)
}

// AlbumToModel converts a domain album to a GORM model with its images
func AlbumToModel(a *catalog.Album) *AlbumModel {
	images := a.Images()
	rows := make([]AlbumImageModel, 0, len(images))
	for i, img := range images {
		rows = append(rows, AlbumImageModel{
			AlbumID:   a.ID(),
			Src:       img.Src,
			Alt:       img.Alt,
			SortOrder: i,
		})
	}

	return &AlbumModel{
		ID:           a.ID(),
		Slug:         a.Slug(),
		Title:        a.Title(),
		PropertySlug: a.PropertySlug(),
		CreatedAt:    a.CreatedAt(),
		Images:       rows,
	}
}

// ModelToAlbum converts a GORM model to a domain album
func ModelToAlbum(m *AlbumModel) (*catalog.Album, error) {
	images := make([]catalog.AlbumImage, 0, len(m.Images))
	for _, row := range m.Images {
		images = append(images, catalog.AlbumImage{
			Src:       row.Src,
			Alt:       row.Alt,
			SortOrder: row.SortOrder,
		})
	}
	return catalog.RestoreAlbum(m.ID, m.Slug, m.Title, m.PropertySlug, images, m.CreatedAt)
}
