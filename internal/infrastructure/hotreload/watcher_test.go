package hotreload

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type changeLog struct {
	mu      sync.Mutex
	changes []Change
}

func (l *changeLog) record(c Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, c)
}

func (l *changeLog) snapshot() []Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Change(nil), l.changes...)
}

func (l *changeLog) paths() []string {
	var out []string
	for _, c := range l.snapshot() {
		out = append(out, c.Path)
	}
	return out
}

func startWatcher(t *testing.T, root string) (*FileWatcher, *changeLog) {
	t.Helper()
	fw, err := NewFileWatcher(50*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, fw.AddTree(root))

	log := &changeLog{}
	fw.OnChange(log.record)
	fw.Start()
	t.Cleanup(func() { _ = fw.Stop() })
	return fw, log
}

func TestChange_Removed(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want bool
	}{
		{fsnotify.Write, false},
		{fsnotify.Create | fsnotify.Write, false},
		{fsnotify.Remove, true},
		{fsnotify.Rename, true},
		{fsnotify.Write | fsnotify.Remove, true},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Change{Op: tt.op}.Removed())
		})
	}
}

func TestIgnored(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/assets/villa/1.jpg", false},
		{"/assets/Laurel Hill Suites/L6 Sauna.jpg", false},
		{"/assets/.DS_Store", true},
		{"/assets/villa/1.jpg~", true},
		{"/assets/villa/1.jpg.tmp", true},
		{"/assets/villa/.1.jpg.swp", true},
		{"/assets/villa/1.jpg.part", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ignored(tt.path))
		})
	}
}

func TestFileWatcher_DebouncesBursts(t *testing.T) {
	// Arrange
	root := t.TempDir()
	_, log := startWatcher(t, root)
	path := filepath.Join(root, "1.jpg")

	// Act
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0o644))
	}

	// Assert
	assert.Eventually(t, func() bool { return len(log.snapshot()) > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)

	changes := log.snapshot()
	require.Len(t, changes, 1)
	assert.Equal(t, path, changes[0].Path)
	assert.True(t, changes[0].Op.Has(fsnotify.Create))
	assert.False(t, changes[0].Removed())
	assert.False(t, changes[0].Timestamp.IsZero())
}

func TestFileWatcher_ReportsRemoval(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "1.jpg")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, log := startWatcher(t, root)

	require.NoError(t, os.Remove(path))

	assert.Eventually(t, func() bool {
		changes := log.snapshot()
		return len(changes) == 1 && changes[0].Removed()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFileWatcher_SkipsIgnoredFiles(t *testing.T) {
	root := t.TempDir()
	_, log := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "upload.part"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2.jpg"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool { return len(log.snapshot()) > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{filepath.Join(root, "2.jpg")}, log.paths())
}

func TestFileWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	_, log := startWatcher(t, root)

	dir := filepath.Join(root, "Laurel Hill Suites")
	require.NoError(t, os.Mkdir(dir, 0o755))
	// the directory joins the watch on the event loop
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(dir, "L6 Sauna.jpg")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		for _, p := range log.paths() {
			if p == path {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, log.paths(), dir)
}

func TestFileWatcher_AddTreeMissingRoot(t *testing.T) {
	fw, err := NewFileWatcher(0, zap.NewNop())
	require.NoError(t, err)
	defer fw.Stop()

	assert.Equal(t, DefaultDebounce, fw.debounce)
	assert.Error(t, fw.AddTree(filepath.Join(t.TempDir(), "missing")))
}

func TestFileWatcher_StopCancelsPending(t *testing.T) {
	root := t.TempDir()
	fw, err := NewFileWatcher(time.Second, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, fw.AddTree(root))
	log := &changeLog{}
	fw.OnChange(log.record)
	fw.Start()

	require.NoError(t, os.WriteFile(filepath.Join(root, "1.jpg"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, fw.Stop())
	require.NoError(t, fw.Stop())

	time.Sleep(1200 * time.Millisecond)
	assert.Empty(t, log.snapshot())
}
