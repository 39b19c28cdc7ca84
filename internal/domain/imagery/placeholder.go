package imagery

import (
	"fmt"
	"strings"
)

const (
	DefaultPlaceholderWidth  = 400
	DefaultPlaceholderHeight = 300
	DefaultPlaceholderColor  = "#e5e7eb"
)

// BlurPlaceholder renders a solid-colour SVG data URI sized to the image's
// aspect ratio. Non-positive dimensions and an empty colour use the defaults.
func BlurPlaceholder(width, height int, color string) string {
	if width <= 0 {
		width = DefaultPlaceholderWidth
	}
	if height <= 0 {
		height = DefaultPlaceholderHeight
	}
	if color == "" {
		color = DefaultPlaceholderColor
	}
	color = strings.TrimPrefix(color, "#")

	return fmt.Sprintf(
		`data:image/svg+xml,%%3Csvg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d"%%3E%%3Crect fill="%%23%s" width="%d" height="%d"/%%3E%%3C/svg%%3E`,
		width, height, color, width, height,
	)
}

// DefaultPlaceholder is the 400x300 grey placeholder shown before an image loads
func DefaultPlaceholder() string {
	return BlurPlaceholder(DefaultPlaceholderWidth, DefaultPlaceholderHeight, DefaultPlaceholderColor)
}

// IsDataURI reports whether src carries its bytes inline
func IsDataURI(src string) bool {
	return strings.HasPrefix(src, "data:")
}
