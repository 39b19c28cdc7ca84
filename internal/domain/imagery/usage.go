// Package imagery contains the per-image delivery model: what a page asked
// for (ImageRequest) and what the visitor currently sees (Record).
package imagery

import "strings"

// UsageContext is the layout role an image plays on a page
type UsageContext string

const (
	ContextHero      UsageContext = "hero"
	ContextCard      UsageContext = "card"
	ContextThumbnail UsageContext = "thumbnail"
	ContextLogo      UsageContext = "logo"
	ContextIcon      UsageContext = "icon"
)

// UsageContexts lists every supported context in declaration order
func UsageContexts() []UsageContext {
	return []UsageContext{ContextHero, ContextCard, ContextThumbnail, ContextLogo, ContextIcon}
}

// ParseUsageContext validates a context name at the boundary
func ParseUsageContext(s string) (UsageContext, error) {
	c := UsageContext(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrUnknownContext
	}
	return c, nil
}

// Valid reports whether c is one of the supported contexts
func (c UsageContext) Valid() bool {
	switch c {
	case ContextHero, ContextCard, ContextThumbnail, ContextLogo, ContextIcon:
		return true
	}
	return false
}

func (c UsageContext) String() string {
	return string(c)
}
