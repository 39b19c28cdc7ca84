package performance

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/newmanyatta/manyatta/internal/domain/imagery"
)

// pictureWidths stops at 1440; the 1920 variant is only offered through
// GenerateSrcSet defaults.
var pictureWidths = []int{WidthMobile, WidthTablet, WidthDesktop, WidthLargeDesktop}

var pictureTemplate = template.Must(template.New("picture").Parse(`<picture>
  <source type="image/webp" srcset="{{.WebP}}" sizes="{{.Sizes}}" />
  <source type="image/jpeg" srcset="{{.JPEG}}" sizes="{{.Sizes}}" />
  <img src="{{.Fallback}}" alt="{{.Alt}}" class="{{.Class}}" loading="lazy" />
</picture>`))

type pictureData struct {
	WebP     string
	JPEG     string
	Sizes    string
	Fallback string
	Alt      string
	Class    string
}

// PictureHTML renders a <picture> with WebP and JPEG sources at hero sizes
// and a lazy 1024w JPEG <img> fallback. Attribute values are escaped.
func PictureHTML(basePath, alt, class string) (string, error) {
	set := GenerateMultiFormatSrcSet(basePath, pictureWidths)

	var buf bytes.Buffer
	err := pictureTemplate.Execute(&buf, pictureData{
		WebP:     set.WebP,
		JPEG:     set.JPEG,
		Sizes:    SizesFor(imagery.ContextHero),
		Fallback: fmt.Sprintf("%s-%dw.%s", basePath, WidthDesktop, FormatJPEG),
		Alt:      alt,
		Class:    class,
	})
	if err != nil {
		return "", fmt.Errorf("render picture: %w", err)
	}
	return buf.String(), nil
}

// TemplateFuncs exposes the srcset helpers to html/template pages
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"srcset": func(base, format string) string {
			return GenerateSrcSet(base, format, DefaultWidths())
		},
		"sizes": func(ctx string) string {
			c, err := imagery.ParseUsageContext(ctx)
			if err != nil {
				return ""
			}
			return SizesFor(c)
		},
		"placeholder": imagery.BlurPlaceholder,
	}
}
