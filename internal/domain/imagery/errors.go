package imagery

import "errors"

var (
	ErrEmptySource    = errors.New("image source must not be empty")
	ErrUnknownContext = errors.New("unknown usage context")
	ErrInvalidSize    = errors.New("image width and height must not be negative")

	// Raised by the record when the native element fails twice
	ErrLoadFailed = errors.New("image failed to load from original source")
)
