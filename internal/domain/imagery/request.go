package imagery

import "strings"

// ImageRequest is an immutable description of one image a page wants to
// show. A new request is issued whenever the source changes.
type ImageRequest struct {
	source   string
	alt      string
	context  UsageContext
	priority bool
	fill     bool
	width    int
	height   int
	srcSet   string
}

// RequestOption customises a request at construction
type RequestOption func(*ImageRequest)

// WithPriority marks the image as above the fold
func WithPriority() RequestOption {
	return func(r *ImageRequest) { r.priority = true }
}

// WithSize sets explicit intrinsic dimensions
func WithSize(width, height int) RequestOption {
	return func(r *ImageRequest) {
		r.width = width
		r.height = height
	}
}

// WithSrcSet passes a caller-supplied candidate list through unchanged
func WithSrcSet(srcSet string) RequestOption {
	return func(r *ImageRequest) { r.srcSet = srcSet }
}

// WithFill renders the image as two stacked layers filling its container
func WithFill() RequestOption {
	return func(r *ImageRequest) { r.fill = true }
}

// NewImageRequest validates and builds a request
func NewImageRequest(source, alt string, context UsageContext, opts ...RequestOption) (ImageRequest, error) {
	if strings.TrimSpace(source) == "" {
		return ImageRequest{}, ErrEmptySource
	}
	if !context.Valid() {
		return ImageRequest{}, ErrUnknownContext
	}

	req := ImageRequest{
		source:  source,
		alt:     alt,
		context: context,
	}
	for _, opt := range opts {
		opt(&req)
	}

	if req.width < 0 || req.height < 0 {
		return ImageRequest{}, ErrInvalidSize
	}

	return req, nil
}

func (r ImageRequest) Source() string        { return r.source }
func (r ImageRequest) Alt() string           { return r.alt }
func (r ImageRequest) Context() UsageContext { return r.context }
func (r ImageRequest) Priority() bool        { return r.priority }
func (r ImageRequest) Fill() bool            { return r.fill }
func (r ImageRequest) Width() int            { return r.width }
func (r ImageRequest) Height() int           { return r.height }
func (r ImageRequest) SrcSet() string        { return r.srcSet }

// Inline reports whether the source is a data: URI, which is never compressed
func (r ImageRequest) Inline() bool {
	return IsDataURI(r.source)
}

// WithSource returns a copy of the request pointing at a new source
func (r ImageRequest) WithSource(source string) (ImageRequest, error) {
	if strings.TrimSpace(source) == "" {
		return ImageRequest{}, ErrEmptySource
	}
	next := r
	next.source = source
	return next, nil
}
