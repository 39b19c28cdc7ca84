package fetch

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/newmanyatta/manyatta/internal/domain/imagery"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

// Router dispatches sources to the fetcher for their scheme. s3:// goes to
// the S3 fetcher when one is configured; everything else goes over HTTP.
type Router struct {
	http outbound.ImageFetcher
	s3   outbound.ImageFetcher
}

// NewRouter creates a router. s3 may be nil.
func NewRouter(httpFetcher, s3Fetcher outbound.ImageFetcher) *Router {
	return &Router{http: httpFetcher, s3: s3Fetcher}
}

// Fetch implements outbound.ImageFetcher
func (r *Router) Fetch(ctx context.Context, src string) (*outbound.Blob, error) {
	switch {
	case imagery.IsDataURI(src):
		return nil, outbound.ErrUnsupportedSource
	case strings.HasPrefix(src, "s3://"):
		if r.s3 == nil {
			return nil, outbound.ErrUnsupportedSource
		}
		return r.s3.Fetch(ctx, src)
	default:
		return r.http.Fetch(ctx, src)
	}
}

// CachingFetcher keeps recently fetched originals in memory so the
// compression pipeline and gallery preloads share one download.
type CachingFetcher struct {
	next    outbound.ImageFetcher
	cache   *lru.Cache[string, *outbound.Blob]
	group   singleflight.Group
	timeout time.Duration
}

// NewCachingFetcher caches up to size originals. A shared download runs
// for at most timeout whichever caller started it.
func NewCachingFetcher(next outbound.ImageFetcher, size int, timeout time.Duration) (*CachingFetcher, error) {
	if size <= 0 {
		size = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cache, err := lru.New[string, *outbound.Blob](size)
	if err != nil {
		return nil, err
	}
	return &CachingFetcher{next: next, cache: cache, timeout: timeout}, nil
}

// Fetch implements outbound.ImageFetcher. A caller whose ctx ends stops
// waiting; the download continues for the others.
func (f *CachingFetcher) Fetch(ctx context.Context, src string) (*outbound.Blob, error) {
	if blob, ok := f.cache.Get(src); ok {
		return blob, nil
	}

	flight := f.group.DoChan(src, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()

		blob, err := f.next.Fetch(fctx, src)
		if err != nil {
			return nil, err
		}
		f.cache.Add(src, blob)
		return blob, nil
	})

	select {
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*outbound.Blob), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Preload implements outbound.Preloader by warming the cache
func (f *CachingFetcher) Preload(ctx context.Context, src string) error {
	_, err := f.Fetch(ctx, src)
	return err
}

// Invalidate drops a cached original, e.g. after the asset changed on disk
func (f *CachingFetcher) Invalidate(src string) {
	f.cache.Remove(src)
}

var (
	_ outbound.ImageFetcher = (*Router)(nil)
	_ outbound.ImageFetcher = (*CachingFetcher)(nil)
	_ outbound.Preloader    = (*CachingFetcher)(nil)
)
