package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_StatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"bad request", NewBadRequestError("bad"), http.StatusBadRequest},
		{"unknown context", NewUnknownUsageContextError("banner"), http.StatusBadRequest},
		{"album not found", NewAlbumNotFoundError("laurel-hill"), http.StatusNotFound},
		{"fetch failed", NewImageFetchError("/assets/a.jpg", stderrors.New("dial")), http.StatusBadGateway},
		{"transform failed", NewImageTransformError("/assets/a.jpg", stderrors.New("decode")), http.StatusUnprocessableEntity},
		{"session closed", NewSessionClosedError("s-1"), http.StatusGone},
		{"rate limited", NewTooManyRequestsError(), http.StatusTooManyRequests},
		{"internal", NewInternalError(""), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestWrap_PreservesAppErrorThroughWrapping(t *testing.T) {
	original := NewAlbumNotFoundError("alba-gardens")
	wrapped := fmt.Errorf("load album: %w", original)

	got := Wrap(wrapped, "ignored")

	require.NotNil(t, got)
	assert.Same(t, original, got)
	assert.True(t, Is(wrapped, CodeAlbumNotFound))
	assert.Equal(t, CodeAlbumNotFound, GetCode(wrapped))
}

func TestWrap_PlainErrorBecomesInternal(t *testing.T) {
	cause := stderrors.New("boom")

	got := Wrap(cause, "compress failed")

	require.NotNil(t, got)
	assert.Equal(t, CodeInternal, got.Code)
	assert.Equal(t, "compress failed", got.Message)
	assert.ErrorIs(t, got, cause)
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestToErrorResponse(t *testing.T) {
	err := NewUnknownUsageContextError("banner")

	resp := ToErrorResponse(err, "req-42")

	assert.Equal(t, CodeUnknownUsageContext, resp.Error.Code)
	assert.Equal(t, "req-42", resp.Error.RequestID)
	assert.Equal(t, "banner", resp.Error.Metadata["context"])
	assert.NotEmpty(t, resp.Error.Timestamp)
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "name", Message: "name is required"},
		{Field: "value", Message: "value must be >= 0"},
	}

	assert.Equal(t, "name is required; value must be >= 0", errs.Error())
	assert.Equal(t, "validation failed", ValidationErrors{}.Error())
}
