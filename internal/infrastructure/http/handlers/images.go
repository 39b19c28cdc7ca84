package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/ports/inbound"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
	"github.com/newmanyatta/manyatta/pkg/errors"
)

// BlobReader serves published compressed images by reference
type BlobReader interface {
	Blob(ctx context.Context, ref string) (*outbound.Blob, error)
}

// ImageHandlers serves candidate lists, size hints, placeholders and
// compressed bytes
type ImageHandlers struct {
	service   inbound.ImageService
	blobs     BlobReader
	validator Validator
	origin    *url.URL
	logger    *zap.Logger
}

// NewImageHandlers creates the image handlers. Relative sources are
// redirected against originURL when compression falls back.
func NewImageHandlers(service inbound.ImageService, blobs BlobReader, validator Validator, originURL string, logger *zap.Logger) (*ImageHandlers, error) {
	var origin *url.URL
	if originURL != "" {
		u, err := url.Parse(originURL)
		if err != nil {
			return nil, err
		}
		origin = u
	}

	return &ImageHandlers{
		service:   service,
		blobs:     blobs,
		validator: validator,
		origin:    origin,
		logger:    logger.Named("image-handlers"),
	}, nil
}

// Register mounts the routes under group
func (h *ImageHandlers) Register(group *gin.RouterGroup) {
	images := group.Group("/images")
	images.GET("/srcset", h.SrcSet)
	images.GET("/srcset/multi", h.MultiFormatSrcSet)
	images.GET("/sizes/:context", h.Sizes)
	images.GET("/picture", h.Picture)
	images.GET("/placeholder", h.Placeholder)
	images.GET("/optimized", h.Optimized)
	images.GET("/blobs/:ref", h.Blob)
}

func (h *ImageHandlers) srcSetQuery(c *gin.Context) (inbound.SrcSetQuery, bool) {
	var q inbound.SrcSetQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(errors.NewBadRequestError("Malformed query").WithCause(err))
		return q, false
	}
	widths, err := parseWidths(c.Query("widths"))
	if err != nil {
		_ = c.Error(err)
		return q, false
	}
	q.Widths = widths
	if err := h.validator.Struct(q); err != nil {
		_ = c.Error(err)
		return q, false
	}
	return q, true
}

// SrcSet handles GET /api/v1/images/srcset
func (h *ImageHandlers) SrcSet(c *gin.Context) {
	q, ok := h.srcSetQuery(c)
	if !ok {
		return
	}

	dto, err := h.service.SrcSet(q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// MultiFormatSrcSet handles GET /api/v1/images/srcset/multi
func (h *ImageHandlers) MultiFormatSrcSet(c *gin.Context) {
	q, ok := h.srcSetQuery(c)
	if !ok {
		return
	}

	dto, err := h.service.MultiFormatSrcSet(q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// Sizes handles GET /api/v1/images/sizes/:context
func (h *ImageHandlers) Sizes(c *gin.Context) {
	dto, err := h.service.Sizes(c.Param("context"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// Picture handles GET /api/v1/images/picture and answers an HTML fragment
func (h *ImageHandlers) Picture(c *gin.Context) {
	var q inbound.PictureQuery
	if !bindQuery(c, h.validator, &q) {
		return
	}

	fragment, err := h.service.Picture(q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fragment))
}

// Placeholder handles GET /api/v1/images/placeholder
func (h *ImageHandlers) Placeholder(c *gin.Context) {
	var q inbound.PlaceholderQuery
	if !bindQuery(c, h.validator, &q) {
		return
	}

	dto, err := h.service.Placeholder(q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// Optimized handles GET /api/v1/images/optimized. A failed compression is
// answered with a temporary redirect to the original.
func (h *ImageHandlers) Optimized(c *gin.Context) {
	var cmd inbound.OptimizeCommand
	if !bindQuery(c, h.validator, &cmd) {
		return
	}

	dto, err := h.service.Optimize(c.Request.Context(), cmd)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if dto.Fallback {
		h.logger.Debug("Redirecting to original", zap.String("source", dto.Source))
		c.Header("X-Image-Fallback", "true")
		c.Redirect(http.StatusTemporaryRedirect, h.originalURL(dto.Source))
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("X-Original-Bytes", strconv.Itoa(dto.OriginalBytes))
	if dto.Ref != "" {
		c.Header("X-Blob-Ref", dto.Ref)
	}
	c.Data(http.StatusOK, dto.ContentType, dto.Data)
}

// Blob handles GET /api/v1/images/blobs/:ref
func (h *ImageHandlers) Blob(c *gin.Context) {
	blob, err := h.blobs.Blob(c.Request.Context(), c.Param("ref"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, blob.ContentType, blob.Data)
}

func (h *ImageHandlers) originalURL(src string) string {
	if h.origin == nil {
		return src
	}
	u, err := url.Parse(src)
	if err != nil || u.IsAbs() {
		return src
	}
	return h.origin.ResolveReference(u).String()
}
