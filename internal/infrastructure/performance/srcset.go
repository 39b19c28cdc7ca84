// Package performance implements responsive image selection, lazy-load
// gating and on-the-fly image compression.
package performance

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Device breakpoints used for variant widths
const (
	WidthMobile       = 480
	WidthTablet       = 768
	WidthDesktop      = 1024
	WidthLargeDesktop = 1440
	WidthUltrawide    = 1920
)

var (
	extensionPattern = regexp.MustCompile(`\.[^/.]+$`)
	variantPattern   = regexp.MustCompile(`^(.+)-([0-9]+)w\.([A-Za-z0-9]+)$`)
)

// DefaultWidths returns the device breakpoints in ascending order
func DefaultWidths() []int {
	return []int{WidthMobile, WidthTablet, WidthDesktop, WidthLargeDesktop, WidthUltrawide}
}

// Image formats a srcset can name
const (
	FormatJPEG = "jpg"
	FormatWebP = "webp"
	FormatAVIF = "avif"
	FormatPNG  = "png"
)

// MultiFormatSrcSet holds parallel candidate lists for two encodings
type MultiFormatSrcSet struct {
	WebP string `json:"webp"`
	JPEG string `json:"jpg"`
}

// GenerateSrcSet builds "{base}-{w}w.{format} {w}w" candidates joined by
// ", " in input order. Empty widths yield an empty string.
func GenerateSrcSet(basePath, format string, widths []int) string {
	if len(widths) == 0 {
		return ""
	}

	var b strings.Builder
	for i, w := range widths {
		if i > 0 {
			b.WriteString(", ")
		}
		ws := strconv.Itoa(w)
		b.WriteString(basePath)
		b.WriteString("-")
		b.WriteString(ws)
		b.WriteString("w.")
		b.WriteString(format)
		b.WriteString(" ")
		b.WriteString(ws)
		b.WriteString("w")
	}
	return b.String()
}

// GenerateMultiFormatSrcSet builds WebP and JPEG candidate lists over the same widths
func GenerateMultiFormatSrcSet(basePath string, widths []int) MultiFormatSrcSet {
	return MultiFormatSrcSet{
		WebP: GenerateSrcSet(basePath, FormatWebP, widths),
		JPEG: GenerateSrcSet(basePath, FormatJPEG, widths),
	}
}

// StripExtension removes the final file extension, if any
func StripExtension(path string) string {
	return extensionPattern.ReplaceAllString(path, "")
}

// FormatImagePath turns "/a/b.jpg" into "/a/b-{width}w.{format}"
func FormatImagePath(path string, width int, format string) string {
	if path == "" {
		return ""
	}
	return StripExtension(path) + "-" + strconv.Itoa(width) + "w." + format
}

// Variant is a parsed "{base}-{w}w.{format}" path
type Variant struct {
	Base   string
	Width  int
	Format string
}

// ParseVariantPath is the inverse of FormatImagePath
func ParseVariantPath(path string) (Variant, bool) {
	m := variantPattern.FindStringSubmatch(path)
	if m == nil {
		return Variant{}, false
	}
	w, err := strconv.Atoi(m[2])
	if err != nil || w <= 0 {
		return Variant{}, false
	}
	return Variant{Base: m[1], Width: w, Format: strings.ToLower(m[3])}, true
}

// IsExternal reports whether src is an absolute http(s) URL
func IsExternal(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// NextImageWidth returns the smallest device width larger than current,
// or the largest device width when none is.
func NextImageWidth(current int) int {
	widths := DefaultWidths()
	for _, w := range widths {
		if w > current {
			return w
		}
	}
	return widths[len(widths)-1]
}

// CalculateResponsiveDimensions scales width down to maxWidth keeping the
// aspect ratio. Images already narrower are returned unchanged.
func CalculateResponsiveDimensions(width, height, maxWidth int) (int, int) {
	if width <= maxWidth || width == 0 {
		return width, height
	}
	ratio := float64(height) / float64(width)
	return maxWidth, int(math.Round(float64(maxWidth) * ratio))
}
