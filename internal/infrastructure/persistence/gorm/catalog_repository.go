package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/newmanyatta/manyatta/internal/domain/catalog"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

// CatalogRepository implements the catalog repository interface using GORM
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) outbound.CatalogRepository {
	return &CatalogRepository{db: db}
}

// SaveProperty inserts a property or updates the one with the same slug
func (r *CatalogRepository) SaveProperty(ctx context.Context, property *catalog.Property) error {
	model := PropertyToModel(property)

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "name", "location", "description", "cover_image", "updated_at"}),
	}).Create(model)
	if result.Error != nil {
		return fmt.Errorf("save property %s: %w", property.Slug(), result.Error)
	}
	return nil
}

// FindPropertyBySlug finds a property by slug
func (r *CatalogRepository) FindPropertyBySlug(ctx context.Context, slug string) (*catalog.Property, error) {
	var model PropertyModel

	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrPropertyNotFound
		}
		return nil, err
	}

	return ModelToProperty(&model)
}

// ListProperties lists properties of kind, or all of them when kind is empty
func (r *CatalogRepository) ListProperties(ctx context.Context, kind catalog.Kind) ([]*catalog.Property, error) {
	var models []PropertyModel

	query := r.db.WithContext(ctx).Model(&PropertyModel{})
	if kind != "" {
		query = query.Where("kind = ?", string(kind))
	}
	if err := query.Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	properties := make([]*catalog.Property, 0, len(models))
	for i := range models {
		p, err := ModelToProperty(&models[i])
		if err != nil {
			return nil, fmt.Errorf("restore property %s: %w", models[i].Slug, err)
		}
		properties = append(properties, p)
	}
	return properties, nil
}

// SaveAlbum writes an album and replaces its image rows in one transaction.
// An existing album with the same slug keeps its identity.
func (r *CatalogRepository) SaveAlbum(ctx context.Context, album *catalog.Album) error {
	model := AlbumToModel(album)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing AlbumModel
		err := tx.Where("slug = ?", model.Slug).First(&existing).Error
		switch {
		case err == nil:
			model.ID = existing.ID
			model.CreatedAt = existing.CreatedAt
			for i := range model.Images {
				model.Images[i].AlbumID = existing.ID
			}
			if err := tx.Where("album_id = ?", existing.ID).Delete(&AlbumImageModel{}).Error; err != nil {
				return fmt.Errorf("clear album images: %w", err)
			}
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"title":         model.Title,
				"property_slug": model.PropertySlug,
			}).Error; err != nil {
				return fmt.Errorf("update album: %w", err)
			}
			if len(model.Images) > 0 {
				if err := tx.Create(&model.Images).Error; err != nil {
					return fmt.Errorf("insert album images: %w", err)
				}
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(model).Error; err != nil {
				return fmt.Errorf("create album: %w", err)
			}
			return nil
		default:
			return err
		}
	})
}

// FindAlbumBySlug finds an album and its ordered images
func (r *CatalogRepository) FindAlbumBySlug(ctx context.Context, slug string) (*catalog.Album, error) {
	var model AlbumModel

	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("slug = ?", slug).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrAlbumNotFound
		}
		return nil, err
	}

	return ModelToAlbum(&model)
}

// ListAlbums lists every album ordered by slug
func (r *CatalogRepository) ListAlbums(ctx context.Context) ([]*catalog.Album, error) {
	var models []AlbumModel

	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Order("slug ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	albums := make([]*catalog.Album, 0, len(models))
	for i := range models {
		a, err := ModelToAlbum(&models[i])
		if err != nil {
			return nil, fmt.Errorf("restore album %s: %w", models[i].Slug, err)
		}
		albums = append(albums, a)
	}
	return albums, nil
}

// CountAlbums counts stored albums
func (r *CatalogRepository) CountAlbums(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&AlbumModel{}).Count(&count).Error
	return count, err
}
