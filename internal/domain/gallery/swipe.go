package gallery

import (
	"math"
	"time"
)

// Direction is the navigation a gesture resolved to
type Direction int

const (
	DirectionNone Direction = iota
	DirectionNext
	DirectionPrevious
)

func (d Direction) String() string {
	switch d {
	case DirectionNext:
		return "next"
	case DirectionPrevious:
		return "previous"
	default:
		return "none"
	}
}

// SwipeConfig holds the gesture thresholds, in pixels and pixels per millisecond
type SwipeConfig struct {
	ScrollSuppress float64
	Distance       float64
	Velocity       float64
}

// DefaultSwipeConfig returns 10px scroll suppression, 50px distance and 0.3px/ms velocity
func DefaultSwipeConfig() SwipeConfig {
	return SwipeConfig{
		ScrollSuppress: 10,
		Distance:       50,
		Velocity:       0.3,
	}
}

// SwipeTracker accumulates one horizontal touch gesture
type SwipeTracker struct {
	cfg       SwipeConfig
	active    bool
	startX    float64
	lastX     float64
	offset    float64
	startedAt time.Time
}

// NewSwipeTracker builds a tracker; zero thresholds fall back to defaults
func NewSwipeTracker(cfg SwipeConfig) *SwipeTracker {
	def := DefaultSwipeConfig()
	if cfg.ScrollSuppress <= 0 {
		cfg.ScrollSuppress = def.ScrollSuppress
	}
	if cfg.Distance <= 0 {
		cfg.Distance = def.Distance
	}
	if cfg.Velocity <= 0 {
		cfg.Velocity = def.Velocity
	}
	return &SwipeTracker{cfg: cfg}
}

// Active reports whether a gesture is in progress
func (t *SwipeTracker) Active() bool { return t.active }

// Offset is the current drag distance, positive when dragging left
func (t *SwipeTracker) Offset() float64 { return t.offset }

// Start records the touch-down position and time
func (t *SwipeTracker) Start(x float64, at time.Time) {
	t.active = true
	t.startX = x
	t.lastX = x
	t.offset = 0
	t.startedAt = at
}

// Move updates the drag and reports whether page scrolling should be
// suppressed for this move.
func (t *SwipeTracker) Move(x float64) bool {
	if !t.active {
		return false
	}
	t.lastX = x
	t.offset = t.startX - x
	return math.Abs(t.offset) > t.cfg.ScrollSuppress
}

// End finishes the gesture at x. A swipe navigates when its distance
// exceeds the distance threshold or its speed exceeds the velocity
// threshold; dragging left means next.
func (t *SwipeTracker) End(x float64, at time.Time) Direction {
	if !t.active {
		return DirectionNone
	}
	t.lastX = x

	distance := t.startX - x
	elapsed := float64(at.Sub(t.startedAt).Milliseconds())
	if elapsed < 1 {
		elapsed = 1
	}
	velocity := math.Abs(distance) / elapsed

	t.Reset()

	if distance == 0 {
		return DirectionNone
	}
	if math.Abs(distance) > t.cfg.Distance || velocity > t.cfg.Velocity {
		if distance > 0 {
			return DirectionNext
		}
		return DirectionPrevious
	}
	return DirectionNone
}

// Cancel abandons the gesture without navigating
func (t *SwipeTracker) Cancel() {
	t.Reset()
}

// Reset clears the accumulator
func (t *SwipeTracker) Reset() {
	t.active = false
	t.offset = 0
	t.startX = 0
	t.lastX = 0
	t.startedAt = time.Time{}
}
