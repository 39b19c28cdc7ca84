// Package testutils provides custom assertions and testing utilities
package testutils

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newmanyatta/manyatta/internal/domain/catalog"
	"github.com/newmanyatta/manyatta/internal/domain/gallery"
)

// HTTPAssertions provides HTTP-specific assertion methods
type HTTPAssertions struct {
	t *testing.T
}

// NewHTTPAssertions creates a new HTTP assertions helper
func NewHTTPAssertions(t *testing.T) *HTTPAssertions {
	return &HTTPAssertions{t: t}
}

// StatusCode asserts the HTTP status code
func (ha *HTTPAssertions) StatusCode(resp *http.Response, expectedCode int, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	assert.Equal(ha.t, expectedCode, resp.StatusCode, msgAndArgs...)
}

// JSONResponse asserts that the response is valid JSON and unmarshals it
func (ha *HTTPAssertions) JSONResponse(resp *http.Response, target interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	contentType := resp.Header.Get("Content-Type")
	assert.True(ha.t, strings.Contains(contentType, "application/json"),
		"Response should have JSON content type, got: %s", contentType)

	require.NoError(ha.t, json.NewDecoder(resp.Body).Decode(target), "Response should be valid JSON")
}

// ErrorResponse asserts the error envelope carries code
func (ha *HTTPAssertions) ErrorResponse(resp *http.Response, expectedCode string) {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	ha.JSONResponse(resp, &body)
	assert.Equal(ha.t, expectedCode, body.Error.Code)
	assert.NotEmpty(ha.t, body.Error.Message, "Error should carry a message")
}

// Header asserts that a header exists with expected value
func (ha *HTTPAssertions) Header(resp *http.Response, headerName, expectedValue string, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	assert.Equal(ha.t, expectedValue, resp.Header.Get(headerName), msgAndArgs...)
}

// SecurityHeaders asserts the headers every API response carries
func (ha *HTTPAssertions) SecurityHeaders(resp *http.Response) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	ha.Header(resp, "X-Content-Type-Options", "nosniff")
	ha.Header(resp, "X-Frame-Options", "DENY")
	ha.Header(resp, "Referrer-Policy", "strict-origin-when-cross-origin")
	assert.NotEmpty(ha.t, resp.Header.Get("X-Request-ID"), "Response should carry a request ID")
}

// CatalogAssertions compares catalog entities by value
type CatalogAssertions struct {
	t *testing.T
}

// NewCatalogAssertions creates a new catalog assertions helper
func NewCatalogAssertions(t *testing.T) *CatalogAssertions {
	return &CatalogAssertions{t: t}
}

// SameProperty asserts two properties carry the same identity and fields
func (ca *CatalogAssertions) SameProperty(want, got *catalog.Property) {
	require.NotNil(ca.t, got, "Property should not be nil")
	assert.Equal(ca.t, want.ID(), got.ID())
	assert.Equal(ca.t, want.Slug(), got.Slug())
	assert.Equal(ca.t, want.Kind(), got.Kind())
	assert.Equal(ca.t, want.Name(), got.Name())
	assert.Equal(ca.t, want.Location(), got.Location())
	assert.Equal(ca.t, want.CoverImage(), got.CoverImage())
	assert.WithinDuration(ca.t, want.CreatedAt(), got.CreatedAt(), time.Second)
}

// SameAlbum asserts two albums carry the same identity and ordered images
func (ca *CatalogAssertions) SameAlbum(want, got *catalog.Album) {
	require.NotNil(ca.t, got, "Album should not be nil")
	assert.Equal(ca.t, want.ID(), got.ID())
	assert.Equal(ca.t, want.Slug(), got.Slug())
	assert.Equal(ca.t, want.Title(), got.Title())
	assert.Equal(ca.t, want.PropertySlug(), got.PropertySlug())
	assert.Equal(ca.t, want.Images(), got.Images())
}

// GalleryAssertions checks slideshow snapshots
type GalleryAssertions struct {
	t *testing.T
}

// NewGalleryAssertions creates a new gallery assertions helper
func NewGalleryAssertions(t *testing.T) *GalleryAssertions {
	return &GalleryAssertions{t: t}
}

// AtSlide asserts the snapshot shows slide index of total
func (ga *GalleryAssertions) AtSlide(s gallery.Snapshot, index, total int) {
	assert.Equal(ga.t, index, s.Index, "slide index")
	assert.Equal(ga.t, total, s.Total, "slide count")
	assert.True(ga.t, s.Index >= 0 && s.Index < s.Total, "index %d out of range", s.Index)
}

// Loaded asserts every listed index finished with state
func (ga *GalleryAssertions) Loaded(s gallery.Snapshot, state gallery.LoadState, indices ...int) {
	for _, i := range indices {
		got, ok := s.Loads[i]
		if assert.True(ga.t, ok, "index %d was never preloaded", i) {
			assert.Equal(ga.t, state, got, "load state of %d", i)
		}
	}
}

// MeasureTime measures execution time of a function
func MeasureTime(fn func()) time.Duration {
	start := time.Now()
	fn()
	return time.Since(start)
}
