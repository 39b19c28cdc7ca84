package gallery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/domain/gallery"
	"github.com/newmanyatta/manyatta/internal/ports/inbound"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

type subscriber struct {
	id uint64
	fn func(inbound.SlideshowUpdate)
}

// Slideshow coordinates one full-screen viewer: navigation, preloading,
// autoplay, gestures, keyboard and the scroll lock. State lives in a
// gallery.Session that exists only while the slideshow is open.
//
// Updates are delivered in order and carry their own snapshot. Subscribers
// must not call back into the slideshow synchronously.
type Slideshow struct {
	options   Options
	preloader outbound.Preloader
	recorder  Recorder
	lock      *gallery.ScrollLock
	logger    *zap.Logger
	now       func() time.Time

	mu           sync.Mutex
	session      *gallery.Session
	holdsLock    bool
	ctx          context.Context
	cancel       context.CancelFunc
	debounce     *time.Timer
	stopAutoplay chan struct{}
	subscribers  []subscriber
	nextID       uint64

	deliver  sync.Mutex
	inflight sync.WaitGroup
}

func newSlideshow(options Options, preloader outbound.Preloader, recorder Recorder, lock *gallery.ScrollLock, logger *zap.Logger) *Slideshow {
	if lock == nil {
		lock = gallery.NewScrollLock(nil)
	}
	return &Slideshow{
		options:   options,
		preloader: preloader,
		recorder:  recorder,
		lock:      lock,
		logger:    logger,
		now:       time.Now,
	}
}

// Open starts a session at index 0 with nothing preloaded. Opening an open
// slideshow replaces its session.
func (s *Slideshow) Open(images []gallery.Image, title string) error {
	session, err := gallery.NewSession(images, title, s.options.Swipe)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.session != nil {
		s.stopLocked()
	}
	s.session = session
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if !s.holdsLock {
		s.lock.Acquire()
		s.holdsLock = true
	}
	s.schedulePreloadLocked()

	if s.recorder != nil {
		s.recorder.SessionOpened()
	}
	s.logger.Debug("Slideshow opened",
		zap.String("session_id", session.ID()),
		zap.String("title", title),
		zap.Int("images", session.Len()),
	)

	s.unlockAndNotify(s.stateLocked())
	return nil
}

// Close ends the session, stops timers and releases the scroll lock.
// Closing a closed slideshow does nothing.
func (s *Slideshow) Close() {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return
	}
	s.closeLocked()
	s.unlockAndNotify(inbound.SlideshowUpdate{Kind: inbound.UpdateClosed})
}

func (s *Slideshow) closeLocked() {
	session := s.session
	s.stopLocked()
	s.session = nil
	if s.holdsLock {
		s.lock.Release()
		s.holdsLock = false
	}

	if s.recorder != nil {
		s.recorder.SessionClosed(s.now().Sub(session.Snapshot().OpenedAt))
	}
	s.logger.Debug("Slideshow closed", zap.String("session_id", session.ID()))
}

// stopLocked cancels preloads, the debounce timer and the autoplay ticker
func (s *Slideshow) stopLocked() {
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.stopAutoplayLocked()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// IsOpen reports whether a session is active
func (s *Slideshow) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// Next advances with wraparound
func (s *Slideshow) Next() {
	s.navigate(gallery.CommandNext)
}

// Previous steps back with wraparound
func (s *Slideshow) Previous() {
	s.navigate(gallery.CommandPrevious)
}

func (s *Slideshow) navigate(cmd gallery.Command) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return
	}
	s.navigateLocked(cmd)
	s.unlockAndNotify(s.stateLocked())
}

func (s *Slideshow) navigateLocked(cmd gallery.Command) {
	switch cmd {
	case gallery.CommandNext:
		s.session.Next()
	case gallery.CommandPrevious:
		s.session.Previous()
	default:
		return
	}
	s.schedulePreloadLocked()
}

// ToggleAutoplay flips autoplay on or off
func (s *Slideshow) ToggleAutoplay() {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return
	}
	s.toggleAutoplayLocked()
	s.unlockAndNotify(s.stateLocked())
}

func (s *Slideshow) toggleAutoplayLocked() {
	if s.session.ToggleAutoplay() {
		s.startAutoplayLocked()
		return
	}
	s.stopAutoplayLocked()
}

// HandleKey dispatches a KeyboardEvent.key value while open
func (s *Slideshow) HandleKey(key string) bool {
	cmd := gallery.CommandForKey(key)
	if cmd == gallery.CommandNone {
		return false
	}

	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return false
	}

	switch cmd {
	case gallery.CommandClose:
		s.closeLocked()
		s.unlockAndNotify(inbound.SlideshowUpdate{Kind: inbound.UpdateClosed})
		return true
	case gallery.CommandToggleAutoplay:
		s.toggleAutoplayLocked()
	default:
		s.navigateLocked(cmd)
	}
	s.unlockAndNotify(s.stateLocked())
	return true
}

// TouchStart begins a swipe gesture
func (s *Slideshow) TouchStart(x float64) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return
	}
	s.session.Swipe().Start(x, s.now())
	s.unlockAndNotify(s.stateLocked())
}

// TouchMove updates the drag offset and reports whether page scrolling
// should be suppressed
func (s *Slideshow) TouchMove(x float64) bool {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return false
	}
	suppress := s.session.Swipe().Move(x)
	s.unlockAndNotify(s.stateLocked())
	return suppress
}

// TouchEnd finishes the gesture and navigates when it qualifies as a swipe
func (s *Slideshow) TouchEnd(x float64) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return
	}
	switch s.session.Swipe().End(x, s.now()) {
	case gallery.DirectionNext:
		s.navigateLocked(gallery.CommandNext)
	case gallery.DirectionPrevious:
		s.navigateLocked(gallery.CommandPrevious)
	}
	s.unlockAndNotify(s.stateLocked())
}

// TouchCancel abandons the gesture
func (s *Slideshow) TouchCancel() {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return
	}
	s.session.Swipe().Cancel()
	s.unlockAndNotify(s.stateLocked())
}

// Snapshot returns the session state and whether the slideshow is open
func (s *Slideshow) Snapshot() (gallery.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return gallery.Snapshot{}, false
	}
	return s.session.Snapshot(), true
}

// Subscribe registers fn for every later update, in subscription order
func (s *Slideshow) Subscribe(fn func(inbound.SlideshowUpdate)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// Wait blocks until in-flight preloads have reported back
func (s *Slideshow) Wait() {
	s.inflight.Wait()
}

// schedulePreloadLocked preloads the current index now and its neighbours
// once the position has been stable for the debounce interval
func (s *Slideshow) schedulePreloadLocked() {
	session := s.session
	plan := session.PlanPreload()
	for _, i := range plan.Primary {
		s.preloadLocked(session, i)
	}

	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.options.PreloadDebounce, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.session != session {
			return
		}
		for _, i := range session.PlanPreload().Neighbors {
			s.preloadLocked(session, i)
		}
	})
}

func (s *Slideshow) preloadLocked(session *gallery.Session, index int) {
	if !session.MarkAttempted(index) {
		return
	}
	img, err := session.ImageAt(index)
	if err != nil {
		return
	}
	ctx := s.ctx

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		err := s.preloader.Preload(ctx, img.Src)
		ok := err == nil
		if s.recorder != nil {
			s.recorder.RecordPreload(ok)
		}
		if !ok {
			s.logger.Debug("Preload failed",
				zap.String("src", img.Src),
				zap.Int("index", index),
				zap.Error(err),
			)
		}

		s.mu.Lock()
		if s.session != session {
			s.mu.Unlock()
			return
		}
		session.RecordLoad(index, ok)
		s.unlockAndNotify(
			inbound.SlideshowUpdate{
				Kind:    inbound.UpdatePreload,
				Preload: &inbound.PreloadResult{Index: index, Src: img.Src, OK: ok},
			},
			s.stateLocked(),
		)
	}()
}

func (s *Slideshow) startAutoplayLocked() {
	s.stopAutoplayLocked()

	stop := make(chan struct{})
	s.stopAutoplay = stop
	session := s.session
	interval := s.options.AutoplayInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				if s.session != session || !session.Autoplay() {
					s.mu.Unlock()
					return
				}
				s.navigateLocked(gallery.CommandNext)
				s.unlockAndNotify(s.stateLocked())
			}
		}
	}()
}

func (s *Slideshow) stopAutoplayLocked() {
	if s.stopAutoplay != nil {
		close(s.stopAutoplay)
		s.stopAutoplay = nil
	}
}

func (s *Slideshow) stateLocked() inbound.SlideshowUpdate {
	snap := s.session.Snapshot()
	return inbound.SlideshowUpdate{Kind: inbound.UpdateState, Snapshot: &snap}
}

// unlockAndNotify hands delivery over from mu to the delivery lock so
// updates reach subscribers in the order they were produced
func (s *Slideshow) unlockAndNotify(updates ...inbound.SlideshowUpdate) {
	subs := make([]subscriber, len(s.subscribers))
	copy(subs, s.subscribers)

	s.deliver.Lock()
	s.mu.Unlock()
	defer s.deliver.Unlock()

	for _, u := range updates {
		for _, sub := range subs {
			sub.fn(u)
		}
	}
}

var _ inbound.Slideshow = (*Slideshow)(nil)
