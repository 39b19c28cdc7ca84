package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/domain/gallery"
	"github.com/newmanyatta/manyatta/internal/ports/inbound"
	"github.com/newmanyatta/manyatta/pkg/errors"
)

// SessionOptions tunes the slideshow socket
type SessionOptions struct {
	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration
	SendBuffer int
	// CheckOrigin decides cross-origin upgrades; nil allows same-origin only
	CheckOrigin func(r *http.Request) bool
}

// DefaultSessionOptions returns the keepalive settings used in production
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		WriteWait:  10 * time.Second,
		PongWait:   60 * time.Second,
		PingPeriod: 54 * time.Second,
		SendBuffer: 32,
	}
}

// GalleryHandlers serves albums, properties and slideshow sessions
type GalleryHandlers struct {
	service  inbound.GalleryService
	upgrader websocket.Upgrader
	options  SessionOptions
	logger   *zap.Logger
}

// NewGalleryHandlers creates the gallery handlers
func NewGalleryHandlers(service inbound.GalleryService, options SessionOptions, logger *zap.Logger) *GalleryHandlers {
	def := DefaultSessionOptions()
	if options.WriteWait <= 0 {
		options.WriteWait = def.WriteWait
	}
	if options.PongWait <= 0 {
		options.PongWait = def.PongWait
	}
	if options.PingPeriod <= 0 || options.PingPeriod >= options.PongWait {
		options.PingPeriod = options.PongWait * 9 / 10
	}
	if options.SendBuffer <= 0 {
		options.SendBuffer = def.SendBuffer
	}

	return &GalleryHandlers{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     options.CheckOrigin,
		},
		options: options,
		logger:  logger.Named("gallery-handlers"),
	}
}

// Register mounts the routes under group
func (h *GalleryHandlers) Register(group *gin.RouterGroup) {
	group.GET("/galleries", h.ListAlbums)
	group.GET("/galleries/:slug", h.GetAlbum)
	group.GET("/galleries/:slug/session", h.Session)
	group.GET("/properties", h.ListProperties)
}

// ListAlbums handles GET /api/v1/galleries
func (h *GalleryHandlers) ListAlbums(c *gin.Context) {
	albums, err := h.service.ListAlbums(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"albums": albums, "count": len(albums)})
}

// GetAlbum handles GET /api/v1/galleries/:slug
func (h *GalleryHandlers) GetAlbum(c *gin.Context) {
	album, err := h.service.GetAlbum(c.Request.Context(), c.Param("slug"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, album)
}

// ListProperties handles GET /api/v1/properties?kind=
func (h *GalleryHandlers) ListProperties(c *gin.Context) {
	properties, err := h.service.ListProperties(c.Request.Context(), c.Query("kind"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"properties": properties, "count": len(properties)})
}

// Session handles GET /api/v1/galleries/:slug/session. The album is
// resolved before the upgrade so a bad slug is an ordinary 404.
func (h *GalleryHandlers) Session(c *gin.Context) {
	album, err := h.service.GetAlbum(c.Request.Context(), c.Param("slug"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if len(album.Images) == 0 {
		_ = c.Error(errors.NewBadRequestError("Album has no images").WithMetadata("slug", album.Slug))
		return
	}

	images := make([]gallery.Image, len(album.Images))
	for i, img := range album.Images {
		images[i] = gallery.Image{Src: img.Src, Alt: img.Alt}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already answered
		h.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	s := newSession(conn, h.options, h.logger.With(zap.String("album", album.Slug)))
	show := h.service.NewSlideshow(gallery.NewScrollLock(s.scrollLockChanged))
	s.serve(show, images, album.Title)
}
