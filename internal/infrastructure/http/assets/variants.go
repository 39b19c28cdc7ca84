package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/newmanyatta/manyatta/internal/infrastructure/performance"
)

// Variant outcomes reported to the Recorder
const (
	OutcomeHit      = "hit"
	OutcomeRendered = "rendered"
	OutcomeMissing  = "missing"
	OutcomeFailed   = "failed"
)

// MaxVariantWidth bounds the widths the origin will render
const MaxVariantWidth = 4096

var (
	// ErrNoOriginal is returned when no original exists for a variant base
	ErrNoOriginal = errors.New("no original for variant")
	// ErrUnsupportedVariant is returned for widths or formats the origin does not render
	ErrUnsupportedVariant = errors.New("unsupported variant")
)

// originalExtensions are tried in order when resolving a variant's base
var originalExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".JPG", ".JPEG", ".PNG", ".WEBP"}

type variant struct {
	data        []byte
	contentType string
	modTime     time.Time
}

func (s *Server) serveVariant(w http.ResponseWriter, r *http.Request, name string) {
	v, ok := performance.ParseVariantPath(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	rendered, outcome, err := s.variant(name, v)
	switch {
	case errors.Is(err, ErrNoOriginal), errors.Is(err, ErrUnsupportedVariant):
		s.record(OutcomeMissing, 0)
		http.NotFound(w, r)
		return
	case err != nil:
		s.record(OutcomeFailed, 0)
		s.logger.Warn("Failed to render variant", zap.String("variant", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", rendered.contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Variant", outcome)
	http.ServeContent(w, r, "", rendered.modTime, bytes.NewReader(rendered.data))
}

// variant returns a cached rendering of name or renders it once, however
// many requests ask concurrently
func (s *Server) variant(name string, v performance.Variant) (*variant, string, error) {
	if v.Width <= 0 || v.Width > MaxVariantWidth {
		return nil, "", fmt.Errorf("%w: width %d", ErrUnsupportedVariant, v.Width)
	}
	if _, _, ok := encoderFor(v.Format); !ok {
		return nil, "", fmt.Errorf("%w: format %s", ErrUnsupportedVariant, v.Format)
	}

	if cached, ok := s.variants.Get(name); ok {
		s.record(OutcomeHit, 0)
		return cached, OutcomeHit, nil
	}

	res, err, _ := s.group.Do(name, func() (interface{}, error) {
		// a render that finished between the Get above and Do
		if cached, ok := s.variants.Get(name); ok {
			s.record(OutcomeHit, 0)
			return cached, nil
		}
		start := time.Now()
		rendered, err := s.render(v)
		if err != nil {
			return nil, err
		}
		s.variants.Add(name, rendered)
		s.record(OutcomeRendered, time.Since(start))
		return rendered, nil
	})
	if err != nil {
		return nil, "", err
	}
	return res.(*variant), OutcomeRendered, nil
}

func (s *Server) render(v performance.Variant) (*variant, error) {
	original, info, err := s.findOriginal(v.Base)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Open(original, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", original, err)
	}
	// never upscale
	if img.Bounds().Dx() > v.Width {
		img = imaging.Resize(img, v.Width, 0, imaging.Lanczos)
	}

	data, contentType, err := s.encode(img, v.Format)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", original, err)
	}

	return &variant{data: data, contentType: contentType, modTime: info.ModTime()}, nil
}

func (s *Server) findOriginal(base string) (string, os.FileInfo, error) {
	for _, ext := range originalExtensions {
		full := filepath.Join(s.root, filepath.FromSlash(base+ext))
		info, err := os.Stat(full)
		if err == nil && info.Mode().IsRegular() {
			return full, info, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrNoOriginal, base)
}

// encoderFor maps a requested format onto what the origin can encode.
// There is no pure-Go WebP encoder, so webp requests are answered as JPEG.
func encoderFor(format string) (imaging.Format, string, bool) {
	switch strings.ToLower(format) {
	case "jpg", "jpeg", "webp":
		return imaging.JPEG, "image/jpeg", true
	case "png":
		return imaging.PNG, "image/png", true
	default:
		return 0, "", false
	}
}

func (s *Server) encode(img image.Image, format string) ([]byte, string, error) {
	f, contentType, _ := encoderFor(format)

	var buf bytes.Buffer
	var err error
	if f == imaging.PNG {
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	} else {
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.opts.JPEGQuality))
	}
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), contentType, nil
}

// Invalidate drops every cached variant of the original at file, an
// absolute path under root. It returns the original's public path, e.g.
// "/assets/villa/1.jpg", and the number of variants dropped.
func (s *Server) Invalidate(file string) (string, int) {
	rel, err := filepath.Rel(s.root, file)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", 0
	}
	rel = filepath.ToSlash(rel)
	base := performance.StripExtension(rel)

	removed := 0
	for _, key := range s.variants.Keys() {
		if v, ok := performance.ParseVariantPath(key); ok && v.Base == base {
			if s.variants.Remove(key) {
				removed++
			}
		}
	}
	if removed > 0 {
		s.logger.Debug("Invalidated variants", zap.String("original", rel), zap.Int("variants", removed))
	}
	return s.opts.Prefix + "/" + rel, removed
}

// CachedVariants is the number of rendered variants held in memory
func (s *Server) CachedVariants() int {
	return s.variants.Len()
}

func (s *Server) record(outcome string, duration time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordVariant(outcome, duration)
	}
}
