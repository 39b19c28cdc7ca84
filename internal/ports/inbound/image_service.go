// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/newmanyatta/manyatta/internal/domain/imagery"
)

// ImageService answers the stateless questions a page asks about an image:
// which candidates to offer, which sizes hint to use, what to show while
// loading, and which bytes to send.
type ImageService interface {
	SrcSet(query SrcSetQuery) (*SrcSetDTO, error)
	MultiFormatSrcSet(query SrcSetQuery) (*MultiFormatSrcSetDTO, error)
	Sizes(usageContext string) (*SizesDTO, error)
	Picture(query PictureQuery) (string, error)
	Placeholder(query PlaceholderQuery) (*PlaceholderDTO, error)
	Optimize(ctx context.Context, cmd OptimizeCommand) (*OptimizedImageDTO, error)
}

// ImageDeliveryService mounts images and drives their delivery state
type ImageDeliveryService interface {
	Render(req imagery.ImageRequest, onLoad func()) ImageHandle
}

// ImageHandle is one mounted image instance
type ImageHandle interface {
	// Intersect feeds a layout observation; it reports whether the image is visible
	Intersect(element, viewport imagery.Rect) bool
	NativeLoad()
	NativeError()
	ChangeSource(req imagery.ImageRequest) error
	Unmount()
	Element() imagery.Element
	Snapshot() imagery.Snapshot
	// Wait blocks until in-flight compression attempts have settled
	Wait()
}

// Query objects

// SrcSetQuery selects candidates for one base path. Widths arrive as a
// single comma-separated parameter and are parsed by the handler.
type SrcSetQuery struct {
	Base   string `form:"base" validate:"required,image_source"`
	Format string `form:"format" validate:"omitempty,oneof=webp jpg jpeg png avif"`
	Widths []int  `form:"-" validate:"omitempty,max=16,dive,gt=0,lte=8192"`
}

type PictureQuery struct {
	Base  string `form:"base" validate:"required,image_source"`
	Alt   string `form:"alt" validate:"max=300,no_xss"`
	Class string `form:"class" validate:"max=200,no_xss"`
}

type PlaceholderQuery struct {
	Width  int    `form:"width" validate:"omitempty,gt=0,lte=8192"`
	Height int    `form:"height" validate:"omitempty,gt=0,lte=8192"`
	Color  string `form:"color" validate:"omitempty,hexcolor"`
}

type OptimizeCommand struct {
	Source   string `form:"src" validate:"required,image_source"`
	Priority bool   `form:"priority"`
}

// DTOs

type SrcSetDTO struct {
	Base   string `json:"base"`
	Format string `json:"format"`
	Widths []int  `json:"widths"`
	SrcSet string `json:"srcset"`
}

type MultiFormatSrcSetDTO struct {
	Base   string `json:"base"`
	Widths []int  `json:"widths"`
	WebP   string `json:"webp"`
	JPEG   string `json:"jpg"`
}

type SizesDTO struct {
	Context string `json:"context"`
	Sizes   string `json:"sizes"`
}

type PlaceholderDTO struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Color       string `json:"color"`
	Placeholder string `json:"placeholder"`
}

// OptimizedImageDTO is the result of a compression request. When Fallback
// is set, Data is empty and the caller should use Source unchanged.
type OptimizedImageDTO struct {
	Source        string `json:"source"`
	Ref           string `json:"ref,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	Data          []byte `json:"-"`
	OriginalBytes int    `json:"original_bytes"`
	Bytes         int    `json:"bytes"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Fallback      bool   `json:"fallback"`
}
