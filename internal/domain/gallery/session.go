// Package gallery models a full-screen slideshow over an ordered list of
// images: the current index, which images have been preloaded, autoplay
// and the swipe gesture in progress.
package gallery

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoImages        = errors.New("gallery session needs at least one image")
	ErrIndexOutOfRange = errors.New("gallery index out of range")
)

// Image is one slide
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// LoadState is the preload outcome for one index
type LoadState string

const (
	LoadPending LoadState = "pending"
	LoadOK      LoadState = "loaded"
	LoadFailed  LoadState = "failed"
)

// PreloadPlan lists indices to preload for the current position. Primary
// goes first; Neighbors are issued after the debounce.
type PreloadPlan struct {
	Primary   []int
	Neighbors []int
}

// Snapshot is a read-only view of a session
type Snapshot struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Index        int               `json:"index"`
	Total        int               `json:"total"`
	Current      Image             `json:"current"`
	Autoplay     bool              `json:"autoplay"`
	CurrentReady bool              `json:"current_ready"`
	SwipeOffset  float64           `json:"swipe_offset"`
	Loads        map[int]LoadState `json:"loads"`
	OpenedAt     time.Time         `json:"opened_at"`
}

// Session is one open slideshow. It is created on open and discarded on
// close; it is not safe for concurrent use.
type Session struct {
	id       string
	title    string
	images   []Image
	index    int
	loads    map[int]LoadState
	autoplay bool
	swipe    *SwipeTracker
	openedAt time.Time
}

// NewSession opens a slideshow at index 0 with nothing attempted yet
func NewSession(images []Image, title string, swipe SwipeConfig) (*Session, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	cp := make([]Image, len(images))
	copy(cp, images)

	return &Session{
		id:       uuid.New().String(),
		title:    title,
		images:   cp,
		loads:    make(map[int]LoadState),
		swipe:    NewSwipeTracker(swipe),
		openedAt: time.Now(),
	}, nil
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Title() string        { return s.title }
func (s *Session) Len() int             { return len(s.images) }
func (s *Session) Index() int           { return s.index }
func (s *Session) Autoplay() bool       { return s.autoplay }
func (s *Session) Swipe() *SwipeTracker { return s.swipe }

// Current returns the image at the current index
func (s *Session) Current() Image {
	return s.images[s.index]
}

// ImageAt returns the image at i
func (s *Session) ImageAt(i int) (Image, error) {
	if i < 0 || i >= len(s.images) {
		return Image{}, ErrIndexOutOfRange
	}
	return s.images[i], nil
}

// Next advances with wraparound and resets the swipe accumulator
func (s *Session) Next() int {
	s.index = (s.index + 1) % len(s.images)
	s.swipe.Reset()
	return s.index
}

// Previous steps back with wraparound and resets the swipe accumulator
func (s *Session) Previous() int {
	s.index = (s.index - 1 + len(s.images)) % len(s.images)
	s.swipe.Reset()
	return s.index
}

// GoTo jumps to an explicit index
func (s *Session) GoTo(i int) error {
	if i < 0 || i >= len(s.images) {
		return ErrIndexOutOfRange
	}
	s.index = i
	s.swipe.Reset()
	return nil
}

// ToggleAutoplay flips autoplay and returns the new value
func (s *Session) ToggleAutoplay() bool {
	s.autoplay = !s.autoplay
	return s.autoplay
}

// SetAutoplay forces autoplay on or off
func (s *Session) SetAutoplay(on bool) {
	s.autoplay = on
}

// Attempted reports whether index i has been handed to the preloader
func (s *Session) Attempted(i int) bool {
	_, ok := s.loads[i]
	return ok
}

// MarkAttempted claims index i for preloading. It returns false when i is
// out of range or was already attempted in this session.
func (s *Session) MarkAttempted(i int) bool {
	if i < 0 || i >= len(s.images) || s.Attempted(i) {
		return false
	}
	s.loads[i] = LoadPending
	return true
}

// RecordLoad stores the outcome of a preload. Outcomes for indices that
// were never attempted are ignored.
func (s *Session) RecordLoad(i int, ok bool) {
	if !s.Attempted(i) {
		return
	}
	if ok {
		s.loads[i] = LoadOK
		return
	}
	s.loads[i] = LoadFailed
}

// LoadStateOf returns the preload state of i and whether it was attempted
func (s *Session) LoadStateOf(i int) (LoadState, bool) {
	st, ok := s.loads[i]
	return st, ok
}

// PlanPreload returns the unattempted indices to preload for the current
// position: the current index first, then its in-bounds neighbours. No
// wraparound is applied to neighbours.
func (s *Session) PlanPreload() PreloadPlan {
	var plan PreloadPlan
	if !s.Attempted(s.index) {
		plan.Primary = append(plan.Primary, s.index)
	}
	if next := s.index + 1; next < len(s.images) && !s.Attempted(next) {
		plan.Neighbors = append(plan.Neighbors, next)
	}
	if prev := s.index - 1; prev >= 0 && !s.Attempted(prev) {
		plan.Neighbors = append(plan.Neighbors, prev)
	}
	return plan
}

// Snapshot copies the session state
func (s *Session) Snapshot() Snapshot {
	loads := make(map[int]LoadState, len(s.loads))
	for k, v := range s.loads {
		loads[k] = v
	}

	return Snapshot{
		ID:           s.id,
		Title:        s.title,
		Index:        s.index,
		Total:        len(s.images),
		Current:      s.images[s.index],
		Autoplay:     s.autoplay,
		CurrentReady: s.loads[s.index] == LoadOK,
		SwipeOffset:  s.swipe.Offset(),
		Loads:        loads,
		OpenedAt:     s.openedAt,
	}
}
