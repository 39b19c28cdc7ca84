package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

func TestFileFetcher_Path(t *testing.T) {
	f := NewFileFetcher("/srv/public", "/assets/", 0, nil)

	tests := []struct {
		src  string
		want string
	}{
		{"/assets/villa/1.jpg", filepath.Join("/srv/public", "villa", "1.jpg")},
		{"file:///tmp/a.jpg", filepath.FromSlash("/tmp/a.jpg")},
		{"photos/a.jpg", filepath.FromSlash("photos/a.jpg")},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Path(tt.src))
		})
	}
}

func TestFileFetcher_Fetch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Laurel Hill Suites"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Laurel Hill Suites", "L6 Sauna.png"), pngMagic, 0o644))
	recorder := &fakeRecorder{}
	f := NewFileFetcher(root, "/assets", 0, recorder)

	blob, err := f.Fetch(context.Background(), "/assets/Laurel Hill Suites/L6 Sauna.png")

	require.NoError(t, err)
	assert.Equal(t, "image/png", blob.ContentType)
	assert.Equal(t, len(pngMagic), blob.Size())
	require.Len(t, recorder.records, 1)
	assert.Equal(t, "file", recorder.records[0].origin)
	assert.NoError(t, recorder.records[0].err)
}

func TestFileFetcher_Errors(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.png"), pngMagic, 0o644))
	f := NewFileFetcher(root, "/assets", 4, nil)

	_, err := f.Fetch(context.Background(), "/assets/big.png")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = f.Fetch(context.Background(), "/assets/missing.png")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = f.Fetch(context.Background(), "https://example.com/a.png")
	assert.ErrorIs(t, err, outbound.ErrUnsupportedSource)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, "/assets/big.png")
	assert.ErrorIs(t, err, context.Canceled)
}
