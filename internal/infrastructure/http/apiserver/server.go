// Package apiserver provides the public JSON API server
package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/infrastructure/config"
	"github.com/newmanyatta/manyatta/internal/infrastructure/http/handlers"
	"github.com/newmanyatta/manyatta/internal/infrastructure/http/middleware"
	"github.com/newmanyatta/manyatta/internal/infrastructure/security"
	"github.com/newmanyatta/manyatta/pkg/healthcheck"
)

// Routes groups everything the server mounts
type Routes struct {
	Images     *handlers.ImageHandlers
	Galleries  *handlers.GalleryHandlers
	Vitals     *handlers.VitalsHandlers
	Health     *healthcheck.HealthCheck
	Metrics    http.Handler
	Validation *security.ValidationService
}

// Server is the gin API server
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	engine  *gin.Engine
	server  *http.Server
	openAPI *OpenAPIHandler
}

// NewServer builds the router and the underlying http.Server
func NewServer(cfg *config.Config, logger *zap.Logger, mw *middleware.Middleware, routes Routes) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:  cfg,
		logger:  logger.Named("api-server"),
		openAPI: NewOpenAPIHandler(logger),
	}

	engine, err := s.setupRoutes(mw, routes)
	if err != nil {
		return nil, err
	}
	s.engine = engine

	s.server = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return s, nil
}

func (s *Server) setupRoutes(mw *middleware.Middleware, routes Routes) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(s.config.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	// Global middleware
	r.Use(mw.Recovery())
	r.Use(mw.RequestID())
	r.Use(mw.Tracing())
	r.Use(mw.Logger())
	r.Use(mw.Security())
	r.Use(mw.CORS())
	r.Use(mw.ErrorHandler())

	// Health and metrics stay outside the rate limiter
	monitoring := s.config.Monitoring
	if routes.Health != nil {
		health := monitoring.HealthCheckPath
		r.GET(health, routes.Health.Handler())
		r.GET(strings.TrimSuffix(health, "/")+"/live", routes.Health.LivenessHandler())
		r.GET(monitoring.ReadinessPath, routes.Health.ReadinessHandler())
	}
	if monitoring.EnableMetrics && routes.Metrics != nil {
		r.GET(monitoring.MetricsPath, gin.WrapH(routes.Metrics))
	}

	r.GET("/api/v1/openapi.yaml", s.openAPI.ServeOpenAPISpec)
	r.GET("/api/v1/docs", s.openAPI.ServeDocs)

	v1 := r.Group("/api/v1")
	v1.Use(mw.RateLimit())
	v1.Use(mw.Timeout(s.config.Server.RequestTimeout))
	v1.Use(mw.Compression())
	if routes.Validation != nil {
		v1.Use(routes.Validation.ValidationMiddleware())
	}

	if routes.Images != nil {
		routes.Images.Register(v1)
	}
	if routes.Galleries != nil {
		routes.Galleries.Register(v1)
	}
	if routes.Vitals != nil {
		routes.Vitals.Register(v1)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found", "path": c.Request.URL.Path})
	})

	return r, nil
}

// Handler exposes the router, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start serves until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.server.Shutdown(ctx)
}
