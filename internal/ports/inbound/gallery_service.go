package inbound

import (
	"context"

	"github.com/newmanyatta/manyatta/internal/domain/gallery"
)

// GalleryService exposes the photo albums and opens slideshows over them
type GalleryService interface {
	ListAlbums(ctx context.Context) ([]AlbumDTO, error)
	GetAlbum(ctx context.Context, slug string) (*AlbumDTO, error)
	ListProperties(ctx context.Context, kind string) ([]PropertyDTO, error)
	// NewSlideshow returns a closed slideshow holding lock while open
	NewSlideshow(lock *gallery.ScrollLock) Slideshow
}

// Slideshow is the full-screen viewer for one visitor
type Slideshow interface {
	Open(images []gallery.Image, title string) error
	Close()
	IsOpen() bool

	Next()
	Previous()
	ToggleAutoplay()
	// HandleKey dispatches a KeyboardEvent.key value and reports whether it was consumed
	HandleKey(key string) bool

	TouchStart(x float64)
	// TouchMove reports whether page scrolling should be suppressed
	TouchMove(x float64) bool
	TouchEnd(x float64)
	TouchCancel()

	Snapshot() (gallery.Snapshot, bool)
	Subscribe(fn func(SlideshowUpdate)) (unsubscribe func())
}

// SlideshowUpdateKind distinguishes state pushes from preload notices
type SlideshowUpdateKind string

const (
	UpdateState   SlideshowUpdateKind = "state"
	UpdatePreload SlideshowUpdateKind = "preload"
	UpdateClosed  SlideshowUpdateKind = "closed"
)

// SlideshowUpdate is delivered to subscribers after every change
type SlideshowUpdate struct {
	Kind     SlideshowUpdateKind `json:"type"`
	Snapshot *gallery.Snapshot   `json:"snapshot,omitempty"`
	Preload  *PreloadResult      `json:"preload,omitempty"`
}

// PreloadResult reports the outcome of one preload
type PreloadResult struct {
	Index int    `json:"index"`
	Src   string `json:"src"`
	OK    bool   `json:"ok"`
}

// DTOs

type AlbumImageDTO struct {
	Src    string `json:"src"`
	Alt    string `json:"alt"`
	SrcSet string `json:"srcset"`
	Sizes  string `json:"sizes"`
}

type AlbumDTO struct {
	Slug         string          `json:"slug"`
	Title        string          `json:"title"`
	PropertySlug string          `json:"property_slug,omitempty"`
	Cover        AlbumImageDTO   `json:"cover"`
	Count        int             `json:"count"`
	Images       []AlbumImageDTO `json:"images,omitempty"`
}

type PropertyDTO struct {
	Slug        string `json:"slug"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
	CoverImage  string `json:"cover_image,omitempty"`
}
