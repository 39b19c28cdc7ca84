package middleware

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

const (
	encodingBrotli = "br"
	encodingGzip   = "gzip"
)

// CompressionConfig configures response compression
type CompressionConfig struct {
	BrotliLevel       int // 0-11
	GzipLevel         int // 1-9
	MinSizeBytes      int
	CompressibleTypes []string
}

// DefaultCompressionConfig compresses text payloads over 1KiB. Image
// bodies are already compressed and pass through untouched.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		BrotliLevel:  6,
		GzipLevel:    6,
		MinSizeBytes: 1024,
		CompressibleTypes: []string{
			"text/html",
			"text/css",
			"text/plain",
			"text/javascript",
			"application/javascript",
			"application/json",
			"image/svg+xml",
		},
	}
}

// Compression encodes buffered responses with brotli or gzip, whichever
// the client prefers.
func (m *Middleware) Compression() gin.HandlerFunc {
	cfg := m.compression
	return func(c *gin.Context) {
		if !m.config.Server.EnableCompression || c.IsWebsocket() || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		encoding := NegotiateEncoding(c.GetHeader("Accept-Encoding"))
		if encoding == "" {
			c.Next()
			return
		}

		buffered := &bufferedWriter{ResponseWriter: c.Writer}
		c.Writer = buffered
		defer func() { c.Writer = buffered.ResponseWriter }()

		c.Next()

		buffered.flush(cfg, encoding)
	}
}

// Compress is the net/http form of Compression, for chi routers
func Compress(cfg CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := NegotiateEncoding(r.Header.Get("Accept-Encoding"))
			if encoding == "" || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			buffered := &bufferedHTTPWriter{ResponseWriter: w}
			next.ServeHTTP(buffered, r)
			writeEncoded(w, buffered.status, buffered.buf.Bytes(), cfg, encoding)
		})
	}
}

// NegotiateEncoding picks br over gzip from an Accept-Encoding header.
// Encodings with q=0 are refused; "*" accepts either.
func NegotiateEncoding(header string) string {
	if header == "" {
		return ""
	}

	encodings := parseAcceptEncoding(header)
	wildcard, hasWildcard := encodings["*"]

	for _, enc := range []string{encodingBrotli, encodingGzip} {
		if q, ok := encodings[enc]; ok {
			if q > 0 {
				return enc
			}
			continue
		}
		if hasWildcard && wildcard > 0 {
			return enc
		}
	}
	return ""
}

func parseAcceptEncoding(header string) map[string]float64 {
	encodings := make(map[string]float64)

	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		name := strings.ToLower(strings.TrimSpace(fields[0]))
		if name == "" {
			continue
		}

		quality := 1.0
		for _, param := range fields[1:] {
			param = strings.TrimSpace(param)
			if v, ok := strings.CutPrefix(param, "q="); ok {
				if q, err := strconv.ParseFloat(v, 64); err == nil {
					quality = q
				}
			}
		}
		encodings[name] = quality
	}

	return encodings
}

func isCompressibleType(types []string, contentType string) bool {
	if contentType == "" {
		return false
	}
	mainType := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	for _, t := range types {
		if mainType == t {
			return true
		}
	}
	return false
}

func encode(encoding string, cfg CompressionConfig, content []byte) ([]byte, error) {
	var buf bytes.Buffer

	switch encoding {
	case encodingBrotli:
		w := brotli.NewWriterLevel(&buf, cfg.BrotliLevel)
		if _, err := w.Write(content); err != nil {
			w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case encodingGzip:
		w, err := gzip.NewWriterLevel(&buf, cfg.GzipLevel)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(content); err != nil {
			w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}

	return buf.Bytes(), nil
}

// writeEncoded writes content to w, compressed when the type and size
// qualify. Compression errors fall back to the identity encoding.
func writeEncoded(w http.ResponseWriter, status int, content []byte, cfg CompressionConfig, encoding string) {
	header := w.Header()
	if status == 0 {
		status = http.StatusOK
	}

	eligible := len(content) >= cfg.MinSizeBytes &&
		header.Get("Content-Encoding") == "" &&
		isCompressibleType(cfg.CompressibleTypes, header.Get("Content-Type"))

	if eligible {
		if compressed, err := encode(encoding, cfg, content); err == nil {
			header.Set("Content-Encoding", encoding)
			header.Set("Content-Length", strconv.Itoa(len(compressed)))
			header.Add("Vary", "Accept-Encoding")
			content = compressed
		}
	}

	w.WriteHeader(status)
	if len(content) > 0 {
		_, _ = w.Write(content)
	}
}

// bufferedWriter holds a gin response until the handler chain returns
type bufferedWriter struct {
	gin.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *bufferedWriter) WriteHeader(code int) {
	w.status = code
}

func (w *bufferedWriter) WriteHeaderNow() {}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}

func (w *bufferedWriter) Status() int {
	if w.status != 0 {
		return w.status
	}
	return w.ResponseWriter.Status()
}

func (w *bufferedWriter) Size() int {
	return w.buf.Len()
}

func (w *bufferedWriter) Written() bool {
	return w.status != 0 || w.buf.Len() > 0
}

func (w *bufferedWriter) Flush() {}

func (w *bufferedWriter) flush(cfg CompressionConfig, encoding string) {
	if !w.Written() {
		return
	}
	writeEncoded(w.ResponseWriter, w.Status(), w.buf.Bytes(), cfg, encoding)
}

type bufferedHTTPWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *bufferedHTTPWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *bufferedHTTPWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.buf.Write(b)
}
