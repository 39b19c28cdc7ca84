// Package hotreload watches directory trees and reports settled file changes
package hotreload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a path must stay quiet before its change is reported
const DefaultDebounce = 250 * time.Millisecond

// Change is one settled file change
type Change struct {
	Path      string
	Op        fsnotify.Op
	Timestamp time.Time
}

// Removed reports whether the file is gone
func (c Change) Removed() bool {
	return c.Op.Has(fsnotify.Remove) || c.Op.Has(fsnotify.Rename)
}

// Handler receives settled changes. Handlers run on the watcher's timer
// goroutines and must be safe for concurrent use.
type Handler func(Change)

// FileWatcher watches directory trees. Bursts of events on one path (an
// editor's write-rename-chmod, a copy in progress) collapse into a single
// Change carrying the union of the operations.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration

	mu       sync.Mutex
	handlers []Handler
	pending  map[string]*pendingChange
	stopped  bool

	done chan struct{}
	wg   sync.WaitGroup
}

type pendingChange struct {
	op    fsnotify.Op
	timer *time.Timer
}

// NewFileWatcher creates a watcher. debounce <= 0 uses DefaultDebounce.
func NewFileWatcher(debounce time.Duration, logger *zap.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &FileWatcher{
		watcher:  watcher,
		logger:   logger.Named("watcher"),
		debounce: debounce,
		pending:  make(map[string]*pendingChange),
		done:     make(chan struct{}),
	}, nil
}

// OnChange registers a handler
func (fw *FileWatcher) OnChange(h Handler) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.handlers = append(fw.handlers, h)
}

// AddTree watches root and every directory below it. Hidden directories
// are skipped.
func (fw *FileWatcher) AddTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Warn("Failed to watch directory", zap.String("path", path), zap.Error(err))
			return nil
		}
		fw.logger.Debug("Watching directory", zap.String("path", path))
		return nil
	})
}

// Start runs the event loop until Stop
func (fw *FileWatcher) Start() {
	fw.wg.Add(1)
	go fw.watchLoop()
}

// Stop ends the event loop and cancels pending changes
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.stopped {
		fw.mu.Unlock()
		return nil
	}
	fw.stopped = true
	for path, p := range fw.pending {
		p.timer.Stop()
		delete(fw.pending, path)
	}
	fw.mu.Unlock()

	close(fw.done)
	err := fw.watcher.Close()
	fw.wg.Wait()
	return err
}

func (fw *FileWatcher) watchLoop() {
	defer fw.wg.Done()
	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("File watcher error", zap.Error(err))
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if ignored(event.Name) {
		return
	}

	// New directories join the watch so files copied into them are seen
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.AddTree(event.Name); err != nil {
				fw.logger.Warn("Failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.stopped {
		return
	}

	if p, ok := fw.pending[event.Name]; ok {
		p.op |= event.Op
		p.timer.Reset(fw.debounce)
		return
	}

	path := event.Name
	p := &pendingChange{op: event.Op}
	p.timer = time.AfterFunc(fw.debounce, func() { fw.fire(path) })
	fw.pending[path] = p
}

func (fw *FileWatcher) fire(path string) {
	fw.mu.Lock()
	p, ok := fw.pending[path]
	if !ok || fw.stopped {
		fw.mu.Unlock()
		return
	}
	delete(fw.pending, path)
	handlers := make([]Handler, len(fw.handlers))
	copy(handlers, fw.handlers)
	fw.mu.Unlock()

	change := Change{Path: path, Op: p.op, Timestamp: time.Now()}
	fw.logger.Debug("File changed", zap.String("path", path), zap.String("op", p.op.String()))

	for _, h := range handlers {
		h(change)
	}
}

// ignored skips editor droppings and partial downloads
func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".tmp") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".part")
}
