// Package delivery provides the application layer for adaptive image
// delivery: candidate lists and size hints for pages, compression on
// demand, and the per-image delivery state of mounted images.
package delivery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/domain/imagery"
	"github.com/newmanyatta/manyatta/internal/domain/shared"
	"github.com/newmanyatta/manyatta/internal/infrastructure/performance"
	"github.com/newmanyatta/manyatta/internal/ports/inbound"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
	"github.com/newmanyatta/manyatta/pkg/errors"
)

// Compressor runs one compression attempt. *performance.Pipeline satisfies it.
type Compressor interface {
	Compress(ctx context.Context, src string, priority bool) performance.Result
}

// Options tunes the service
type Options struct {
	RootMargin        float64
	Widths            []int
	PlaceholderColor  string
	PlaceholderWidth  int
	PlaceholderHeight int
}

// Service implements inbound.ImageService and inbound.ImageDeliveryService
type Service struct {
	compressor Compressor
	store      outbound.BlobStore
	options    Options
	events     shared.EventHandler
	logger     *zap.Logger
}

// NewService creates the delivery service. events may be nil.
func NewService(compressor Compressor, store outbound.BlobStore, options Options, events shared.EventHandler, logger *zap.Logger) *Service {
	if len(options.Widths) == 0 {
		options.Widths = performance.DefaultWidths()
	}
	if options.RootMargin < 0 {
		options.RootMargin = performance.DefaultRootMargin
	}
	if options.PlaceholderWidth <= 0 {
		options.PlaceholderWidth = imagery.DefaultPlaceholderWidth
	}
	if options.PlaceholderHeight <= 0 {
		options.PlaceholderHeight = imagery.DefaultPlaceholderHeight
	}
	if options.PlaceholderColor == "" {
		options.PlaceholderColor = imagery.DefaultPlaceholderColor
	}

	return &Service{
		compressor: compressor,
		store:      store,
		options:    options,
		events:     events,
		logger:     logger.Named("delivery-service"),
	}
}

// SrcSet builds a single-format candidate list
func (s *Service) SrcSet(query inbound.SrcSetQuery) (*inbound.SrcSetDTO, error) {
	if query.Base == "" {
		return nil, errors.NewBadRequestError("base is required")
	}
	format := query.Format
	if format == "" {
		format = performance.FormatWebP
	}
	if format == "jpeg" {
		format = performance.FormatJPEG
	}
	widths := s.widths(query.Widths)

	return &inbound.SrcSetDTO{
		Base:   query.Base,
		Format: format,
		Widths: widths,
		SrcSet: performance.GenerateSrcSet(query.Base, format, widths),
	}, nil
}

// MultiFormatSrcSet builds WebP and JPEG candidate lists over the same widths
func (s *Service) MultiFormatSrcSet(query inbound.SrcSetQuery) (*inbound.MultiFormatSrcSetDTO, error) {
	if query.Base == "" {
		return nil, errors.NewBadRequestError("base is required")
	}
	widths := s.widths(query.Widths)
	set := performance.GenerateMultiFormatSrcSet(query.Base, widths)

	return &inbound.MultiFormatSrcSetDTO{
		Base:   query.Base,
		Widths: widths,
		WebP:   set.WebP,
		JPEG:   set.JPEG,
	}, nil
}

// Sizes returns the sizes hint for a usage context name
func (s *Service) Sizes(usageContext string) (*inbound.SizesDTO, error) {
	ctx, err := imagery.ParseUsageContext(usageContext)
	if err != nil {
		return nil, errors.NewUnknownUsageContextError(usageContext)
	}
	return &inbound.SizesDTO{Context: ctx.String(), Sizes: performance.SizesFor(ctx)}, nil
}

// Picture renders the <picture> fragment for a base path
func (s *Service) Picture(query inbound.PictureQuery) (string, error) {
	if query.Base == "" {
		return "", errors.NewBadRequestError("base is required")
	}
	html, err := performance.PictureHTML(query.Base, query.Alt, query.Class)
	if err != nil {
		return "", errors.Wrap(err, "failed to render picture")
	}
	return html, nil
}

// Placeholder renders a solid-colour SVG placeholder
func (s *Service) Placeholder(query inbound.PlaceholderQuery) (*inbound.PlaceholderDTO, error) {
	w, h, color := query.Width, query.Height, query.Color
	if w <= 0 {
		w = s.options.PlaceholderWidth
	}
	if h <= 0 {
		h = s.options.PlaceholderHeight
	}
	if color == "" {
		color = s.options.PlaceholderColor
	}

	return &inbound.PlaceholderDTO{
		Width:       w,
		Height:      h,
		Color:       color,
		Placeholder: imagery.BlurPlaceholder(w, h, color),
	}, nil
}

// Optimize compresses a source on demand. Failures are reported through
// Fallback rather than an error so callers can serve the original.
func (s *Service) Optimize(ctx context.Context, cmd inbound.OptimizeCommand) (*inbound.OptimizedImageDTO, error) {
	if cmd.Source == "" {
		return nil, errors.NewBadRequestError("src is required")
	}

	res := s.compressor.Compress(ctx, cmd.Source, cmd.Priority)
	if res.Fallback || res.Skipped || res.Blob == nil {
		if res.Err != nil {
			s.logger.Debug("Serving original",
				zap.String("source", cmd.Source),
				zap.Error(res.Err),
			)
		}
		return &inbound.OptimizedImageDTO{Source: cmd.Source, Fallback: true}, nil
	}

	return &inbound.OptimizedImageDTO{
		Source:        cmd.Source,
		Ref:           res.Ref,
		ContentType:   res.Blob.ContentType,
		Data:          res.Blob.Data,
		OriginalBytes: res.OriginalBytes,
		Bytes:         res.Blob.Size(),
		Width:         res.Width,
		Height:        res.Height,
	}, nil
}

// Blob returns a published compressed image by reference
func (s *Service) Blob(ctx context.Context, ref string) (*outbound.Blob, error) {
	blob, err := s.store.Get(ctx, ref)
	if err != nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("blob %s", ref)).WithCause(err)
	}
	return blob, nil
}

// Render mounts an image and returns its handle. Priority images start
// compressing at once; the rest wait for the visibility gate.
func (s *Service) Render(req imagery.ImageRequest, onLoad func()) inbound.ImageHandle {
	h := &Handle{
		service: s,
		onLoad:  onLoad,
	}
	h.mount(req)
	return h
}

func (s *Service) placeholderFor(req imagery.ImageRequest) string {
	w, h := req.Width(), req.Height()
	if w <= 0 || h <= 0 {
		w, h = s.options.PlaceholderWidth, s.options.PlaceholderHeight
	}
	return imagery.BlurPlaceholder(w, h, s.options.PlaceholderColor)
}

func (s *Service) widths(requested []int) []int {
	if len(requested) > 0 {
		return requested
	}
	out := make([]int, len(s.options.Widths))
	copy(out, s.options.Widths)
	return out
}

func (s *Service) publish(events []shared.DomainEvent) {
	if s.events == nil {
		return
	}
	for _, e := range events {
		s.events(e)
	}
}

var (
	_ inbound.ImageService         = (*Service)(nil)
	_ inbound.ImageDeliveryService = (*Service)(nil)
)
