package performance

import (
	"sync"

	"github.com/newmanyatta/manyatta/internal/domain/imagery"
)

// DefaultRootMargin is the look-ahead distance in pixels around the viewport
const DefaultRootMargin = 50

// Gate decides when a lazily loaded image is close enough to the viewport
// to start loading. It opens at most once and detaches when it does.
type Gate struct {
	mu       sync.Mutex
	margin   float64
	visible  bool
	detached bool
}

// NewGate installs a gate with the given look-ahead margin. A negative
// margin uses DefaultRootMargin.
func NewGate(margin float64) *Gate {
	if margin < 0 {
		margin = DefaultRootMargin
	}
	return &Gate{margin: margin}
}

// Observe tests the element box against the viewport expanded by the
// margin. It reports true only on the call that opens the gate; later
// calls are no-ops.
func (g *Gate) Observe(element, viewport imagery.Rect) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.detached {
		return false
	}
	if !element.Intersects(viewport.Expand(g.margin)) {
		return false
	}

	g.visible = true
	g.detached = true
	return true
}

// Visible reports whether the gate has opened
func (g *Gate) Visible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.visible
}

// Detached reports whether the gate stopped observing
func (g *Gate) Detached() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.detached
}

// Margin returns the look-ahead distance
func (g *Gate) Margin() float64 {
	return g.margin
}

// Detach stops observing without opening, e.g. on unmount
func (g *Gate) Detach() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.detached = true
}
