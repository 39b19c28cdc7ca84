// Package fetch retrieves original image bytes from HTTP and S3 origins.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

var (
	// ErrTooLarge is returned when a source exceeds the configured byte limit
	ErrTooLarge = errors.New("image source exceeds size limit")
	// ErrHostNotAllowed is returned for absolute sources, and redirects, that
	// point outside the base URL host and the allow list
	ErrHostNotAllowed = fmt.Errorf("%w: host not allowed", outbound.ErrUnsupportedSource)
)

// StatusError reports a non-200 answer from an HTTP origin
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("get %s: unexpected status %d", e.URL, e.StatusCode)
}

// Recorder observes one fetch per call
type Recorder interface {
	RecordFetch(origin string, duration time.Duration, err error)
}

// HTTPFetcher downloads images over HTTP. Relative sources such as
// "/assets/a.jpg" are resolved against the base URL. Absolute sources must
// name the base URL host or one of the allowed hosts.
type HTTPFetcher struct {
	client   *http.Client
	base     *url.URL
	allowed  []string
	maxBytes int64
	recorder Recorder
}

// NewHTTPFetcher creates a fetcher with an otelhttp-instrumented transport.
// allowedHosts entries are host names, host:port pairs or "*.domain"
// wildcards. recorder may be nil.
func NewHTTPFetcher(baseURL string, timeout time.Duration, maxBytes int64, allowedHosts []string, recorder Recorder) (*HTTPFetcher, error) {
	var base *url.URL
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		base = u
	}

	allowed := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed = append(allowed, h)
		}
	}

	f := &HTTPFetcher{
		base:     base,
		allowed:  allowed,
		maxBytes: maxBytes,
		recorder: recorder,
	}
	f.client = &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("stopped after 5 redirects")
			}
			if !f.hostAllowed(req.URL) {
				return fmt.Errorf("redirect to %s: %w", req.URL.Host, ErrHostNotAllowed)
			}
			return nil
		},
	}
	return f, nil
}

// Resolve turns src into an absolute URL
func (f *HTTPFetcher) Resolve(src string) (string, error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse source: %w", err)
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", outbound.ErrUnsupportedSource
		}
		if !f.hostAllowed(u) {
			return "", fmt.Errorf("%s: %w", u.Host, ErrHostNotAllowed)
		}
		return u.String(), nil
	}
	if f.base == nil {
		return "", fmt.Errorf("relative source %q without base url: %w", src, outbound.ErrUnsupportedSource)
	}
	return f.base.ResolveReference(u).String(), nil
}

func (f *HTTPFetcher) hostAllowed(u *url.URL) bool {
	host := strings.ToLower(u.Host)
	name := strings.ToLower(u.Hostname())
	if f.base != nil && strings.EqualFold(f.base.Host, u.Host) {
		return true
	}
	for _, a := range f.allowed {
		switch {
		case a == host || a == name:
			return true
		case strings.HasPrefix(a, "*.") && strings.HasSuffix(name, a[1:]):
			return true
		}
	}
	return false
}

// Fetch implements outbound.ImageFetcher
func (f *HTTPFetcher) Fetch(ctx context.Context, src string) (blob *outbound.Blob, err error) {
	start := time.Now()
	defer func() {
		if f.recorder != nil {
			f.recorder.RecordFetch("http", time.Since(start), err)
		}
	}()

	target, err := f.Resolve(src)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	data, err := readLimited(resp.Body, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}

	return newBlob(data, resp.Header.Get("Content-Type")), nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

// newBlob tags data with its declared type, sniffing when the origin sent
// none or a generic one.
func newBlob(data []byte, contentType string) *outbound.Blob {
	ct := strings.TrimSpace(strings.Split(contentType, ";")[0])
	if ct == "" || ct == "application/octet-stream" || ct == "binary/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return &outbound.Blob{Data: data, ContentType: ct}
}
