// Package gallery provides the application layer for photo albums and the
// slideshow coordinator that drives one visitor's full-screen viewer.
package gallery

import (
	"context"
	stderrors "errors"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/domain/catalog"
	"github.com/newmanyatta/manyatta/internal/domain/gallery"
	"github.com/newmanyatta/manyatta/internal/domain/imagery"
	"github.com/newmanyatta/manyatta/internal/infrastructure/performance"
	"github.com/newmanyatta/manyatta/internal/ports/inbound"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
	"github.com/newmanyatta/manyatta/pkg/errors"
)

// Recorder observes slideshow activity. Implementations must be safe for
// concurrent use.
type Recorder interface {
	SessionOpened()
	SessionClosed(duration time.Duration)
	RecordPreload(ok bool)
}

// Options tunes slideshows and album listings
type Options struct {
	PreloadDebounce  time.Duration
	AutoplayInterval time.Duration
	Swipe            gallery.SwipeConfig
	Widths           []int
}

// DefaultOptions returns a 100ms preload debounce and a 4s autoplay interval
func DefaultOptions() Options {
	return Options{
		PreloadDebounce:  100 * time.Millisecond,
		AutoplayInterval: 4 * time.Second,
		Swipe:            gallery.DefaultSwipeConfig(),
		Widths:           performance.DefaultWidths(),
	}
}

// Service implements inbound.GalleryService
type Service struct {
	repo      outbound.CatalogRepository
	preloader outbound.Preloader
	options   Options
	recorder  Recorder
	logger    *zap.Logger
}

// NewService creates the gallery service. recorder may be nil.
func NewService(repo outbound.CatalogRepository, preloader outbound.Preloader, options Options, recorder Recorder, logger *zap.Logger) *Service {
	def := DefaultOptions()
	if options.PreloadDebounce <= 0 {
		options.PreloadDebounce = def.PreloadDebounce
	}
	if options.AutoplayInterval <= 0 {
		options.AutoplayInterval = def.AutoplayInterval
	}
	if len(options.Widths) == 0 {
		options.Widths = def.Widths
	}

	return &Service{
		repo:      repo,
		preloader: preloader,
		options:   options,
		recorder:  recorder,
		logger:    logger.Named("gallery-service"),
	}
}

// ListAlbums lists every album with its cover and image count
func (s *Service) ListAlbums(ctx context.Context) ([]inbound.AlbumDTO, error) {
	albums, err := s.repo.ListAlbums(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("list albums", err)
	}

	out := make([]inbound.AlbumDTO, 0, len(albums))
	for _, a := range albums {
		out = append(out, s.albumToDTO(a, false))
	}
	return out, nil
}

// GetAlbum returns one album with every image
func (s *Service) GetAlbum(ctx context.Context, slug string) (*inbound.AlbumDTO, error) {
	album, err := s.repo.FindAlbumBySlug(ctx, slug)
	if err != nil {
		if stderrors.Is(err, catalog.ErrAlbumNotFound) {
			return nil, errors.NewAlbumNotFoundError(slug)
		}
		return nil, errors.NewDatabaseError("find album", err)
	}

	dto := s.albumToDTO(album, true)
	return &dto, nil
}

// ListProperties lists properties, optionally of one kind
func (s *Service) ListProperties(ctx context.Context, kind string) ([]inbound.PropertyDTO, error) {
	k := catalog.Kind(kind)
	if kind != "" && !k.Valid() {
		return nil, errors.NewBadRequestError("unknown property kind").WithMetadata("kind", kind)
	}

	props, err := s.repo.ListProperties(ctx, k)
	if err != nil {
		return nil, errors.NewDatabaseError("list properties", err)
	}

	out := make([]inbound.PropertyDTO, 0, len(props))
	for _, p := range props {
		out = append(out, inbound.PropertyDTO{
			Slug:        p.Slug(),
			Kind:        string(p.Kind()),
			Name:        p.Name(),
			Location:    p.Location(),
			Description: p.Description(),
			CoverImage:  p.CoverImage(),
		})
	}
	return out, nil
}

// NewSlideshow returns a closed slideshow that holds lock while open
func (s *Service) NewSlideshow(lock *gallery.ScrollLock) inbound.Slideshow {
	return newSlideshow(s.options, s.preloader, s.recorder, lock, s.logger)
}

// Images converts an album DTO to slides
func Images(album *inbound.AlbumDTO) []gallery.Image {
	out := make([]gallery.Image, 0, len(album.Images))
	for _, img := range album.Images {
		out = append(out, gallery.Image{Src: img.Src, Alt: img.Alt})
	}
	return out
}

func (s *Service) albumToDTO(a *catalog.Album, withImages bool) inbound.AlbumDTO {
	dto := inbound.AlbumDTO{
		Slug:         a.Slug(),
		Title:        a.Title(),
		PropertySlug: a.PropertySlug(),
		Cover:        s.imageToDTO(a.Cover(), imagery.ContextHero),
		Count:        a.Len(),
	}
	if withImages {
		images := a.Images()
		dto.Images = make([]inbound.AlbumImageDTO, 0, len(images))
		for _, img := range images {
			dto.Images = append(dto.Images, s.imageToDTO(img, imagery.ContextThumbnail))
		}
	}
	return dto
}

// imageToDTO offers JPEG width variants of the photograph. Paths are
// escaped because srcset candidates are separated by whitespace.
func (s *Service) imageToDTO(img catalog.AlbumImage, ctx imagery.UsageContext) inbound.AlbumImageDTO {
	base := performance.StripExtension(img.Src)
	dto := inbound.AlbumImageDTO{
		Src:   img.Src,
		Alt:   img.Alt,
		Sizes: performance.SizesFor(ctx),
	}
	if !performance.IsExternal(img.Src) && !imagery.IsDataURI(img.Src) {
		dto.SrcSet = performance.GenerateSrcSet(escapePath(base), performance.FormatJPEG, s.options.Widths)
	}
	return dto
}

func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

var _ inbound.GalleryService = (*Service)(nil)
