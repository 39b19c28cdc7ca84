package performance

import "github.com/newmanyatta/manyatta/internal/domain/imagery"

var sizesByContext = map[imagery.UsageContext]string{
	imagery.ContextHero:      "(max-width: 640px) 100vw, (max-width: 1024px) 90vw, 80vw",
	imagery.ContextCard:      "(max-width: 640px) 100vw, (max-width: 1024px) 50vw, 33vw",
	imagery.ContextThumbnail: "(max-width: 640px) 100vw, (max-width: 1024px) 25vw, 20vw",
	imagery.ContextLogo:      "(max-width: 640px) 80px, 120px",
	imagery.ContextIcon:      "40px",
}

// SizesFor returns the sizes hint for a parsed usage context. Contexts are
// validated by imagery.ParseUsageContext; an unvalidated value gets the card
// hint.
func SizesFor(ctx imagery.UsageContext) string {
	if s, ok := sizesByContext[ctx]; ok {
		return s
	}
	return sizesByContext[imagery.ContextCard]
}
