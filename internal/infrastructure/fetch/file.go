package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

// FileFetcher reads sources from local disk. Site paths such as
// "/assets/a.jpg" are resolved under root after stripping prefix; other
// paths are read as given.
type FileFetcher struct {
	root     string
	prefix   string
	maxBytes int64
	recorder Recorder
}

// NewFileFetcher creates a fetcher for files under root
func NewFileFetcher(root, prefix string, maxBytes int64, recorder Recorder) *FileFetcher {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	return &FileFetcher{root: root, prefix: prefix, maxBytes: maxBytes, recorder: recorder}
}

// Path maps src onto the local file it names
func (f *FileFetcher) Path(src string) string {
	src = strings.TrimPrefix(src, "file://")
	if f.root != "" && f.prefix != "" && strings.HasPrefix(src, f.prefix+"/") {
		return filepath.Join(f.root, filepath.FromSlash(strings.TrimPrefix(src, f.prefix+"/")))
	}
	return filepath.FromSlash(src)
}

// Fetch implements outbound.ImageFetcher
func (f *FileFetcher) Fetch(ctx context.Context, src string) (blob *outbound.Blob, err error) {
	start := time.Now()
	defer func() {
		if f.recorder != nil {
			f.recorder.RecordFetch("file", time.Since(start), err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if IsRemote(src) {
		return nil, outbound.ErrUnsupportedSource
	}

	file, err := os.Open(f.Path(src))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	defer file.Close()

	data, err := readLimited(file, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	return newBlob(data, ""), nil
}

// IsRemote reports whether src names a network origin
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") ||
		strings.HasPrefix(src, "https://") ||
		strings.HasPrefix(src, "s3://")
}
