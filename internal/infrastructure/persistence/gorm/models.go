// Package gorm provides GORM model definitions and repositories for the catalog
package gorm

import (
	"time"

	"github.com/google/uuid"
)

// PropertyModel represents the GORM model for properties
type PropertyModel struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	Slug        string    `gorm:"type:varchar(100);uniqueIndex;not null"`
	Kind        string    `gorm:"type:varchar(30);index;not null"`
	Name        string    `gorm:"type:varchar(255);not null"`
	Location    string    `gorm:"type:varchar(255)"`
	Description string    `gorm:"type:text"`
	CoverImage  string    `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the table name
func (PropertyModel) TableName() string {
	return "properties"
}

// AlbumModel represents the GORM model for albums
type AlbumModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	Slug         string    `gorm:"type:varchar(100);uniqueIndex;not null"`
	Title        string    `gorm:"type:varchar(255);not null"`
	PropertySlug string    `gorm:"type:varchar(100);index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Relationships
	Images []AlbumImageModel `gorm:"foreignKey:AlbumID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name
func (AlbumModel) TableName() string {
	return "albums"
}

// AlbumImageModel is one photograph row of an album
type AlbumImageModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	AlbumID   uuid.UUID `gorm:"type:char(36);index;not null"`
	Src       string    `gorm:"type:text;not null"`
	Alt       string    `gorm:"type:varchar(255)"`
	SortOrder int       `gorm:"not null;default:0"`
}

// TableName overrides the table name
func (AlbumImageModel) TableName() string {
	return "album_images"
}

// Models lists every catalog model for AutoMigrate
func Models() []interface{} {
	return []interface{}{
		&PropertyModel{},
		&AlbumModel{},
		&AlbumImageModel{},
	}
}
