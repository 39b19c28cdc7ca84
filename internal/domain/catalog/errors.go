package catalog

import "errors"

var (
	ErrInvalidSlug     = errors.New("slug must be lower-case letters, digits and hyphens")
	ErrNameRequired    = errors.New("name is required")
	ErrUnknownKind     = errors.New("unknown property kind")
	ErrEmptyAlbum      = errors.New("album must have at least one image")
	ErrImageSrcMissing = errors.New("album image source is required")

	ErrPropertyNotFound = errors.New("property not found")
	ErrAlbumNotFound    = errors.New("album not found")
)
