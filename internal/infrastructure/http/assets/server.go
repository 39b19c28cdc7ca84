// Package assets provides the asset origin: a chi server that serves the
// original photographs from disk and renders the "{base}-{w}w.{fmt}" width
// variants that generated srcsets point at.
package assets

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/singleflight"

	"github.com/newmanyatta/manyatta/internal/infrastructure/config"
	"github.com/newmanyatta/manyatta/internal/infrastructure/http/middleware"
)

// Recorder observes variant requests. *monitoring.MetricsCollector
// satisfies it.
type Recorder interface {
	RecordVariant(outcome string, duration time.Duration)
}

// Options configures the asset origin
type Options struct {
	Addr        string
	Root        string
	Prefix      string
	CacheSize   int
	JPEGQuality int
	EnableH2C   bool
}

// OptionsFromConfig maps the assets section onto Options
func OptionsFromConfig(cfg *config.Config) Options {
	quality := int(cfg.Images.Quality * 100)
	return Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Assets.Host, cfg.Assets.Port),
		Root:        cfg.Assets.Root,
		Prefix:      cfg.Assets.URLPrefix,
		CacheSize:   cfg.Assets.VariantCache,
		JPEGQuality: quality,
		EnableH2C:   cfg.Assets.EnableH2C,
	}
}

// Server is the asset origin
type Server struct {
	opts     Options
	root     string
	logger   *zap.Logger
	recorder Recorder

	variants *lru.Cache[string, *variant]
	group    singleflight.Group

	router *chi.Mux
	server *http.Server
}

// NewServer creates the asset origin. recorder may be nil.
func NewServer(opts Options, recorder Recorder, logger *zap.Logger) (*Server, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("asset root: %w", err)
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 80
	}
	opts.Prefix = "/" + strings.Trim(opts.Prefix, "/")
	if opts.Prefix == "/" {
		opts.Prefix = ""
	}

	variants, err := lru.New[string, *variant](opts.CacheSize)
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:     opts,
		root:     root,
		logger:   logger.Named("assets"),
		recorder: recorder,
		variants: variants,
	}
	s.router = s.setupRouter()

	var handler http.Handler = s.router
	if opts.EnableH2C {
		handler = h2c.NewHandler(s.router, &http2.Server{})
	}

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Compress(middleware.DefaultCompressionConfig()))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Get(s.opts.Prefix+"/*", s.serveAsset)
	r.Head(s.opts.Prefix+"/*", s.serveAsset)

	return r
}

// Handler exposes the router, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown
func (s *Server) Start() error {
	s.logger.Info("Starting asset origin",
		zap.String("address", s.server.Addr),
		zap.String("root", s.root),
		zap.Bool("h2c", s.opts.EnableH2C),
	)

	if !s.opts.EnableH2C {
		if err := http2.ConfigureServer(s.server, nil); err != nil {
			s.logger.Error("Failed to configure HTTP/2", zap.Error(err))
		}
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down asset origin")
	return s.server.Shutdown(ctx)
}

// Root is the absolute asset directory
func (s *Server) Root() string {
	return s.root
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	name, ok := s.assetName(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	full := filepath.Join(s.root, filepath.FromSlash(name))
	if info, err := os.Stat(full); err == nil {
		if !info.Mode().IsRegular() {
			http.NotFound(w, r)
			return
		}
		s.serveFile(w, r, full, info)
		return
	}

	s.serveVariant(w, r, name)
}

// assetName strips the prefix and rejects anything that could leave root
func (s *Server) assetName(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, s.opts.Prefix+"/")
	if rel == "" || (rel == urlPath && s.opts.Prefix != "") {
		return "", false
	}
	if strings.Contains(rel, "..") || strings.ContainsRune(rel, '\\') {
		return "", false
	}
	name := strings.TrimPrefix(path.Clean("/"+rel), "/")
	if name == "" || strings.HasPrefix(path.Base(name), ".") {
		return "", false
	}
	return name, true
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, full string, info os.FileInfo) {
	f, err := os.Open(full)
	if err != nil {
		s.logger.Warn("Failed to open asset", zap.String("path", full), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("Asset request",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("latency", time.Since(start)),
		)
	})
}
