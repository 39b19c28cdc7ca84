package fetch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newmanyatta/manyatta/internal/ports/outbound"
	"github.com/newmanyatta/manyatta/pkg/healthcheck"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

type fetchRecord struct {
	origin string
	err    error
}

type fakeRecorder struct {
	records []fetchRecord
}

func (f *fakeRecorder) RecordFetch(origin string, _ time.Duration, err error) {
	f.records = append(f.records, fetchRecord{origin, err})
}

func newOrigin(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/assets/hero.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	})
	mux.HandleFunc("/assets/untyped", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(pngMagic)
	})
	mux.HandleFunc("/assets/big.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte{1}, 2048))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	// Arrange
	srv := newOrigin(t)
	rec := &fakeRecorder{}
	f, err := NewHTTPFetcher(srv.URL, time.Second, 1024, nil, rec)
	require.NoError(t, err)

	// Act
	blob, err := f.Fetch(context.Background(), "/assets/hero.jpg")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", blob.ContentType)
	assert.Equal(t, 4, blob.Size())
	require.Len(t, rec.records, 1)
	assert.Equal(t, "http", rec.records[0].origin)
	assert.NoError(t, rec.records[0].err)
}

func TestHTTPFetcher_SniffsGenericContentType(t *testing.T) {
	srv := newOrigin(t)
	f, err := NewHTTPFetcher("", time.Second, 0, []string{srv.Listener.Addr().String()}, nil)
	require.NoError(t, err)

	blob, err := f.Fetch(context.Background(), srv.URL+"/assets/untyped")

	require.NoError(t, err)
	assert.Equal(t, "image/png", blob.ContentType)
}

func TestHTTPFetcher_Errors(t *testing.T) {
	srv := newOrigin(t)
	rec := &fakeRecorder{}
	f, err := NewHTTPFetcher(srv.URL, time.Second, 1024, nil, rec)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = f.Fetch(ctx, "/assets/missing.jpg")
	assert.ErrorContains(t, err, "unexpected status 404")

	_, err = f.Fetch(ctx, "/assets/big.jpg")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = f.Fetch(ctx, "ftp://example.com/a.jpg")
	assert.ErrorIs(t, err, outbound.ErrUnsupportedSource)

	require.Len(t, rec.records, 3)
	for _, r := range rec.records {
		assert.Error(t, r.err)
	}
}

func TestHTTPFetcher_RelativeWithoutBase(t *testing.T) {
	f, err := NewHTTPFetcher("", time.Second, 0, nil, nil)
	require.NoError(t, err)

	_, err = f.Resolve("/assets/hero.jpg")
	assert.ErrorIs(t, err, outbound.ErrUnsupportedSource)
}

func TestHTTPFetcher_AllowedHosts(t *testing.T) {
	f, err := NewHTTPFetcher("https://newmanyatta.co.ke", time.Second, 0,
		[]string{"cdn.example.com", " Images.Example.org:8443 ", "*.cloudfront.net"}, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		src     string
		allowed bool
	}{
		{"relative path", "/assets/pool.jpg", true},
		{"base host", "https://newmanyatta.co.ke/assets/pool.jpg", true},
		{"listed host", "https://cdn.example.com/pool.jpg", true},
		{"listed host any port", "http://cdn.example.com:8080/pool.jpg", true},
		{"listed host and port", "https://images.example.org:8443/pool.jpg", true},
		{"listed port only", "https://images.example.org/pool.jpg", false},
		{"wildcard", "https://d111.cloudfront.net/pool.jpg", true},
		{"wildcard apex", "https://cloudfront.net/pool.jpg", false},
		{"loopback", "http://127.0.0.1:6379/", false},
		{"metadata service", "http://169.254.169.254/latest/meta-data/", false},
		{"lookalike", "https://newmanyatta.co.ke.evil.com/pool.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Resolve(tt.src)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrHostNotAllowed)
			assert.ErrorIs(t, err, outbound.ErrUnsupportedSource)
			assert.False(t, OriginFault(err))
		})
	}
}

func TestHTTPFetcher_RedirectOutsideAllowedHosts(t *testing.T) {
	// Arrange
	internal := newOrigin(t)
	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, internal.URL+"/assets/hero.jpg", http.StatusFound)
	}))
	t.Cleanup(public.Close)

	f, err := NewHTTPFetcher(public.URL, time.Second, 0, nil, nil)
	require.NoError(t, err)

	// Act
	_, err = f.Fetch(context.Background(), "/assets/hero.jpg")

	// Assert
	assert.ErrorIs(t, err, ErrHostNotAllowed)
}

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	input   *s3.GetObjectInput
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.input = in
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("image/jpeg"),
	}, nil
}

func TestS3Fetcher(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{
		"manyatta-media/villas/burguret/pool.jpg": {0xff, 0xd8},
		"manyatta-media/big.jpg":                  bytes.Repeat([]byte{1}, 100),
	}}
	rec := &fakeRecorder{}
	f := NewS3FetcherFrom(api, 10, rec)

	blob, err := f.Fetch(context.Background(), "s3://manyatta-media/villas/burguret/pool.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", blob.ContentType)
	assert.Equal(t, "villas/burguret/pool.jpg", aws.StringValue(api.input.Key))

	_, err = f.Fetch(context.Background(), "s3://manyatta-media/big.jpg")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = f.Fetch(context.Background(), "s3://manyatta-media/none.jpg")
	assert.Error(t, err)

	assert.Len(t, rec.records, 3)
	assert.Equal(t, "s3", rec.records[0].origin)
}

func TestParseS3Source(t *testing.T) {
	bucket, key, err := ParseS3Source("s3://b/k/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "b", bucket)
	assert.Equal(t, "k/x.jpg", key)

	_, _, err = ParseS3Source("s3://b/")
	assert.ErrorIs(t, err, outbound.ErrUnsupportedSource)
	_, _, err = ParseS3Source("https://b/k")
	assert.ErrorIs(t, err, outbound.ErrUnsupportedSource)
}

type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (c *countingFetcher) Fetch(_ context.Context, src string) (*outbound.Blob, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &outbound.Blob{Data: []byte(src), ContentType: "image/jpeg"}, nil
}

func TestRouter(t *testing.T) {
	httpF := &countingFetcher{}
	s3F := &countingFetcher{}
	r := NewRouter(httpF, s3F)
	ctx := context.Background()

	_, err := r.Fetch(ctx, "s3://bucket/key.jpg")
	require.NoError(t, err)
	_, err = r.Fetch(ctx, "/assets/a.jpg")
	require.NoError(t, err)
	_, err = r.Fetch(ctx, "data:image/svg+xml,abc")
	assert.ErrorIs(t, err, outbound.ErrUnsupportedSource)

	assert.Equal(t, int32(1), s3F.calls.Load())
	assert.Equal(t, int32(1), httpF.calls.Load())

	_, err = NewRouter(httpF, nil).Fetch(ctx, "s3://bucket/key.jpg")
	assert.ErrorIs(t, err, outbound.ErrUnsupportedSource)
}

func TestCachingFetcher(t *testing.T) {
	next := &countingFetcher{}
	f, err := NewCachingFetcher(next, 2, time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, f.Preload(ctx, "/assets/a.jpg"))
	blob, err := f.Fetch(ctx, "/assets/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("/assets/a.jpg"), blob.Data)
	assert.Equal(t, int32(1), next.calls.Load())

	f.Invalidate("/assets/a.jpg")
	_, err = f.Fetch(ctx, "/assets/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachingFetcher_ErrorsAreNotCached(t *testing.T) {
	next := &countingFetcher{err: errors.New("boom")}
	f, err := NewCachingFetcher(next, 2, time.Second)
	require.NoError(t, err)

	assert.Error(t, f.Preload(context.Background(), "/a.jpg"))
	assert.Error(t, f.Preload(context.Background(), "/a.jpg"))
	assert.Equal(t, int32(2), next.calls.Load())
}

// slowFetcher blocks until release is closed or its context ends
type slowFetcher struct {
	release   chan struct{}
	started   chan struct{}
	once      sync.Once
	cancelled atomic.Int32
}

func (f *slowFetcher) Fetch(ctx context.Context, src string) (*outbound.Blob, error) {
	f.once.Do(func() { close(f.started) })
	select {
	case <-f.release:
		return &outbound.Blob{Data: []byte(src), ContentType: "image/jpeg"}, nil
	case <-ctx.Done():
		f.cancelled.Add(1)
		return nil, ctx.Err()
	}
}

func TestCachingFetcher_CancelledPreloadKeepsSharedDownload(t *testing.T) {
	// Arrange
	next := &slowFetcher{release: make(chan struct{}), started: make(chan struct{})}
	f, err := NewCachingFetcher(next, 2, time.Second)
	require.NoError(t, err)

	preloadCtx, cancelPreload := context.WithCancel(context.Background())
	preloadErr := make(chan error, 1)
	go func() { preloadErr <- f.Preload(preloadCtx, "/assets/pool.jpg") }()
	<-next.started

	fetched := make(chan error, 1)
	go func() {
		_, err := f.Fetch(context.Background(), "/assets/pool.jpg")
		fetched <- err
	}()

	// Act
	cancelPreload()
	require.ErrorIs(t, <-preloadErr, context.Canceled)
	close(next.release)

	// Assert
	require.NoError(t, <-fetched)
	assert.Zero(t, next.cancelled.Load())
	blob, err := f.Fetch(context.Background(), "/assets/pool.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("/assets/pool.jpg"), blob.Data)
}

func TestCachingFetcher_SharedDownloadTimesOut(t *testing.T) {
	next := &slowFetcher{release: make(chan struct{}), started: make(chan struct{})}
	f, err := NewCachingFetcher(next, 2, 20*time.Millisecond)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "/assets/pool.jpg")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, next.cancelled.Load())
}

func TestOriginFault(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", &StatusError{URL: "u", StatusCode: 404}, false},
		{"server error", &StatusError{URL: "u", StatusCode: 502}, true},
		{"throttled", &StatusError{URL: "u", StatusCode: 429}, true},
		{"too large", ErrTooLarge, false},
		{"unsupported", outbound.ErrUnsupportedSource, false},
		{"canceled", context.Canceled, false},
		{"network", errors.New("connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OriginFault(tt.err))
		})
	}
}

func TestBreakerFetcher(t *testing.T) {
	// Arrange
	next := &countingFetcher{err: &StatusError{URL: "u", StatusCode: 503}}
	breaker := healthcheck.NewCircuitBreaker("origin", healthcheck.CircuitBreakerConfig{
		FailureThreshold: 2,
		Timeout:          time.Hour,
	})
	f := NewBreakerFetcher(next, breaker)
	ctx := context.Background()

	// Act
	_, err1 := f.Fetch(ctx, "/a.jpg")
	_, err2 := f.Fetch(ctx, "/a.jpg")
	_, err3 := f.Fetch(ctx, "/a.jpg")

	// Assert
	var status *StatusError
	require.ErrorAs(t, err1, &status)
	assert.Equal(t, 503, status.StatusCode)
	assert.Error(t, err2)
	assert.ErrorIs(t, err3, healthcheck.ErrCircuitOpen)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestBreakerFetcher_MissingImagesKeepCircuitClosed(t *testing.T) {
	next := &countingFetcher{err: &StatusError{URL: "u", StatusCode: 404}}
	breaker := healthcheck.NewCircuitBreaker("origin", healthcheck.CircuitBreakerConfig{FailureThreshold: 1})
	f := NewBreakerFetcher(next, breaker)

	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), "/missing.jpg")
		assert.Error(t, err)
	}

	assert.Equal(t, healthcheck.StateClosed, breaker.State())
	assert.Equal(t, int32(3), next.calls.Load())
}
