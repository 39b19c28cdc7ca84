package performance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	// decoders beyond the ones imaging registers
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/newmanyatta/manyatta/internal/domain/imagery"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
	apperrors "github.com/newmanyatta/manyatta/pkg/errors"
)

const (
	ProfilePriority = "priority"
	ProfileLazy     = "lazy"

	OutcomeCompressed = "compressed"
	OutcomeOriginal   = "original"
	OutcomeSkipped    = "skipped"
	OutcomeFallback   = "fallback"
)

// ErrPixelLimit is returned for sources whose declared dimensions exceed
// the configured pixel budget. They are rejected before decoding.
var ErrPixelLimit = errors.New("image exceeds pixel limit")

// CompressionConfig holds the re-encoding policy
type CompressionConfig struct {
	Quality          float64 // 0-1
	MinQuality       float64 // lowest quality tried before scaling down
	QualityStep      float64
	MaxWidth         int   // priority max dimension
	LazyMaxDimension int   // capped by MaxWidth
	PriorityMaxBytes int64 // 0.5 MiB
	LazyMaxBytes     int64 // 0.3 MiB
	MinDimension     int   // scale-down floor
	MaxPixels        int64 // width*height accepted for decoding
	Timeout          time.Duration
}

// DefaultCompressionConfig returns quality 0.8, 1920px/0.5MiB for priority
// images and 1024px/0.3MiB for lazy ones.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Quality:          0.8,
		MinQuality:       0.4,
		QualityStep:      0.1,
		MaxWidth:         1920,
		LazyMaxDimension: 1024,
		PriorityMaxBytes: 512 << 10,
		LazyMaxBytes:     314572,
		MinDimension:     160,
		MaxPixels:        40_000_000,
		Timeout:          30 * time.Second,
	}
}

// Profile parameterises one compression run
type Profile struct {
	Name         string
	MaxDimension int
	MaxBytes     int64
	Quality      float64
}

// ProfileFor returns the priority or lazy profile
func (c CompressionConfig) ProfileFor(priority bool) Profile {
	if priority {
		return Profile{
			Name:         ProfilePriority,
			MaxDimension: c.MaxWidth,
			MaxBytes:     c.PriorityMaxBytes,
			Quality:      c.Quality,
		}
	}
	dim := c.LazyMaxDimension
	if c.MaxWidth > 0 && c.MaxWidth < dim {
		dim = c.MaxWidth
	}
	return Profile{
		Name:         ProfileLazy,
		MaxDimension: dim,
		MaxBytes:     c.LazyMaxBytes,
		Quality:      c.Quality,
	}
}

func (p Profile) key() string {
	return p.Name + ":" + strconv.Itoa(p.MaxDimension) + ":" + strconv.FormatInt(p.MaxBytes, 10) + ":" + strconv.FormatFloat(p.Quality, 'f', 2, 64)
}

// CompressionRecorder receives one observation per compression attempt
type CompressionRecorder interface {
	RecordCompression(profile, outcome string, originalBytes, outputBytes int, duration time.Duration)
}

// Result is the outcome of one attempt. On failure Ref is the original
// source verbatim, Fallback is set and Err says why.
type Result struct {
	Source        string
	Ref           string
	Blob          *outbound.Blob
	OriginalBytes int
	Width         int
	Height        int
	Skipped       bool
	Fallback      bool
	Err           error
}

// Pipeline fetches an image, re-encodes it under a size budget and
// publishes the result in a blob store. It never fails hard.
type Pipeline struct {
	fetcher  outbound.ImageFetcher
	store    outbound.BlobStore
	config   CompressionConfig
	recorder CompressionRecorder
	logger   *zap.Logger
	tracer   trace.Tracer
	group    singleflight.Group
}

// NewPipeline creates a compression pipeline. recorder may be nil.
func NewPipeline(fetcher outbound.ImageFetcher, store outbound.BlobStore, config CompressionConfig, recorder CompressionRecorder, logger *zap.Logger) *Pipeline {
	def := DefaultCompressionConfig()
	if config.Quality <= 0 || config.Quality > 1 {
		config.Quality = def.Quality
	}
	if config.MinQuality <= 0 || config.MinQuality > config.Quality {
		config.MinQuality = def.MinQuality
		if config.MinQuality > config.Quality {
			config.MinQuality = config.Quality
		}
	}
	if config.QualityStep <= 0 {
		config.QualityStep = def.QualityStep
	}
	if config.MinDimension <= 0 {
		config.MinDimension = def.MinDimension
	}
	if config.MaxPixels <= 0 {
		config.MaxPixels = def.MaxPixels
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		fetcher:  fetcher,
		store:    store,
		config:   config,
		recorder: recorder,
		logger:   logger.Named("compression"),
		tracer:   otel.Tracer("github.com/newmanyatta/manyatta/performance"),
	}
}

// Config returns the effective policy
func (p *Pipeline) Config() CompressionConfig {
	return p.config
}

type encoded struct {
	data          []byte
	contentType   string
	originalBytes int
	width         int
	height        int
	kept          bool
}

// Compress runs one attempt for src with the priority or lazy profile.
// Inline data: sources are returned untouched.
//
// Concurrent calls for the same source and profile share one fetch and
// encode. The shared work is detached from every caller and bounded by
// the configured timeout; ctx only decides how long this caller waits.
func (p *Pipeline) Compress(ctx context.Context, src string, priority bool) Result {
	profile := p.config.ProfileFor(priority)
	start := time.Now()

	if imagery.IsDataURI(src) {
		p.record(profile.Name, OutcomeSkipped, 0, 0, start)
		return Result{Source: src, Ref: src, Skipped: true}
	}

	ctx, span := p.tracer.Start(ctx, "image.compress", trace.WithAttributes(
		attribute.String("image.source", src),
		attribute.String("image.profile", profile.Name),
	))
	defer span.End()

	flight := p.group.DoChan(src+"|"+profile.key(), func() (interface{}, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.Timeout)
		defer cancel()
		return p.produce(sctx, src, profile)
	})

	var v interface{}
	var err error
	var shared bool
	select {
	case res := <-flight:
		v, err, shared = res.Val, res.Err, res.Shared
	case <-ctx.Done():
		err = apperrors.NewImageFetchError(src, ctx.Err())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compression failed")
		return p.fallback(src, profile, err, start)
	}

	enc := v.(*encoded)
	blob := &outbound.Blob{Data: enc.data, ContentType: enc.contentType}

	ref, err := p.store.Put(ctx, blob)
	if err != nil {
		err = apperrors.NewImageTransformError(src, fmt.Errorf("publish blob: %w", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return p.fallback(src, profile, err, start)
	}

	outcome := OutcomeCompressed
	if enc.kept {
		outcome = OutcomeOriginal
	}
	span.SetAttributes(
		attribute.Int("image.original_bytes", enc.originalBytes),
		attribute.Int("image.output_bytes", len(enc.data)),
		attribute.Bool("image.shared", shared),
	)
	p.record(profile.Name, outcome, enc.originalBytes, len(enc.data), start)

	p.logger.Debug("Image compressed",
		zap.String("source", src),
		zap.String("profile", profile.Name),
		zap.Int("original_bytes", enc.originalBytes),
		zap.Int("output_bytes", len(enc.data)),
		zap.String("ref", ref),
	)

	return Result{
		Source:        src,
		Ref:           ref,
		Blob:          blob,
		OriginalBytes: enc.originalBytes,
		Width:         enc.width,
		Height:        enc.height,
	}
}

func (p *Pipeline) fallback(src string, profile Profile, err error, start time.Time) Result {
	p.logger.Warn("Image compression failed, using original",
		zap.String("source", src),
		zap.String("profile", profile.Name),
		zap.Error(err),
	)
	p.record(profile.Name, OutcomeFallback, 0, 0, start)
	return Result{Source: src, Ref: src, Fallback: true, Err: err}
}

func (p *Pipeline) record(profile, outcome string, originalBytes, outputBytes int, start time.Time) {
	if p.recorder != nil {
		p.recorder.RecordCompression(profile, outcome, originalBytes, outputBytes, time.Since(start))
	}
}

func (p *Pipeline) produce(ctx context.Context, src string, profile Profile) (*encoded, error) {
	blob, err := p.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, apperrors.NewImageFetchError(src, err)
	}
	if blob.Size() == 0 {
		return nil, apperrors.NewImageFetchError(src, fmt.Errorf("empty body"))
	}
	if err := checkPixels(blob, p.config.MaxPixels); err != nil {
		return nil, apperrors.NewImageTransformError(src, err)
	}

	enc, err := encodeImage(blob, profile, p.config)
	if err != nil {
		return nil, apperrors.NewImageTransformError(src, err)
	}
	return enc, nil
}

// checkPixels reads only the image header so oversized images are refused
// before any pixel buffer is allocated.
func checkPixels(blob *outbound.Blob, limit int64) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(blob.Data))
	if err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if limit > 0 && int64(cfg.Width)*int64(cfg.Height) > limit {
		return fmt.Errorf("%w: %dx%d", ErrPixelLimit, cfg.Width, cfg.Height)
	}
	return nil
}

// encodeImage decodes blob and re-encodes it under profile. Quality is stepped
// down first, then the image is scaled down; the smallest attempt wins.
// When no attempt beats an original that already fits the profile, the
// original bytes are kept.
func encodeImage(blob *outbound.Blob, profile Profile, cfg CompressionConfig) (*encoded, error) {
	img, format, err := image.Decode(bytes.NewReader(blob.Data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW == 0 || origH == 0 {
		return nil, fmt.Errorf("decode: empty image")
	}

	maxDim := profile.MaxDimension
	if maxDim <= 0 {
		maxDim = max(origW, origH)
	}
	alpha := format == "png" && hasAlpha(img)

	var best []byte
	var bestW, bestH int
	dim := maxDim
	for {
		resized := imaging.Fit(img, dim, dim, imaging.Lanczos)
		data, err := encodeLadder(resized, alpha, profile, cfg)
		if err != nil {
			return nil, err
		}
		if best == nil || len(data) < len(best) {
			best = data
			bestW, bestH = resized.Bounds().Dx(), resized.Bounds().Dy()
		}
		if profile.MaxBytes <= 0 || int64(len(best)) <= profile.MaxBytes {
			break
		}

		next := dim * 3 / 4
		if next < cfg.MinDimension || next >= dim {
			break
		}
		dim = next
	}

	contentType := "image/jpeg"
	if alpha {
		contentType = "image/png"
	}

	fits := origW <= maxDim && origH <= maxDim && (profile.MaxBytes <= 0 || int64(len(blob.Data)) <= profile.MaxBytes)
	if fits && len(blob.Data) <= len(best) {
		return &encoded{
			data:          blob.Data,
			contentType:   sniffContentType(blob),
			originalBytes: len(blob.Data),
			width:         origW,
			height:        origH,
			kept:          true,
		}, nil
	}

	return &encoded{
		data:          best,
		contentType:   contentType,
		originalBytes: len(blob.Data),
		width:         bestW,
		height:        bestH,
	}, nil
}

// encodeLadder encodes at decreasing JPEG quality until the budget is met.
// PNG output has no quality knob and is encoded once.
func encodeLadder(img image.Image, alpha bool, profile Profile, cfg CompressionConfig) ([]byte, error) {
	if alpha {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), nil
	}

	var best []byte
	for q := profile.Quality; ; q -= cfg.QualityStep {
		if q < cfg.MinQuality {
			q = cfg.MinQuality
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality(q))); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		if best == nil || buf.Len() < len(best) {
			best = buf.Bytes()
		}
		if profile.MaxBytes <= 0 || int64(len(best)) <= profile.MaxBytes || q <= cfg.MinQuality {
			return best, nil
		}
	}
}

func jpegQuality(q float64) int {
	v := int(q*100 + 0.5)
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}

func sniffContentType(blob *outbound.Blob) string {
	if blob.ContentType != "" {
		return blob.ContentType
	}
	return http.DetectContentType(blob.Data)
}
