package imagery

import (
	"time"

	"github.com/newmanyatta/manyatta/internal/domain/shared"
)

// State is the visible lifecycle of one mounted image
type State string

const (
	StatePlaceholder   State = "placeholder"
	StateNativeLoading State = "native_loading"
	StateLoaded        State = "loaded"
	StateErrored       State = "errored"
)

// Ticket identifies one compression attempt. Results carrying a ticket
// from an older generation are discarded.
type Ticket struct {
	Generation uint64
	Source     string
	Priority   bool
}

// Layer is one <img> of a rendered image
type Layer struct {
	Source  string `json:"src"`
	Mounted bool   `json:"mounted"`
}

// Layers is the fill-mode rendering: a base that is always present and an
// overlay that mounts once the image is visible.
type Layers struct {
	Base    Layer `json:"base"`
	Overlay Layer `json:"overlay"`
}

// Snapshot is a read-only copy of a record
type Snapshot struct {
	Source        string `json:"source"`
	DisplaySource string `json:"display_source"`
	State         State  `json:"state"`
	Visible       bool   `json:"visible"`
	Loaded        bool   `json:"loaded"`
	Compressing   bool   `json:"compressing"`
	FallbackUsed  bool   `json:"fallback_used"`
	Upgraded      bool   `json:"upgraded"`
	LastError     string `json:"last_error,omitempty"`
	Generation    uint64 `json:"generation"`
}

// Record tracks what a visitor currently sees for one mounted image.
// It is not safe for concurrent use; the owning handle serialises access.
type Record struct {
	shared.AggregateRoot

	request     ImageRequest
	placeholder string

	displaySource string
	state         State
	visible       bool
	loaded        bool
	compressing   bool
	fallbackUsed  bool
	upgraded      bool
	retired       bool
	lastErr       error
	generation    uint64
}

// NewRecord starts a record for req. Priority requests skip the
// placeholder and begin loading the real source immediately.
func NewRecord(req ImageRequest, placeholder string) *Record {
	if placeholder == "" {
		placeholder = DefaultPlaceholder()
	}

	r := &Record{
		request:       req,
		placeholder:   placeholder,
		displaySource: placeholder,
		state:         StatePlaceholder,
	}

	if req.Priority() {
		r.visible = true
		r.displaySource = req.Source()
		r.state = StateNativeLoading
	}

	return r
}

func (r *Record) Request() ImageRequest { return r.request }
func (r *Record) State() State          { return r.state }
func (r *Record) DisplaySource() string { return r.displaySource }
func (r *Record) Visible() bool         { return r.visible }
func (r *Record) Loaded() bool          { return r.loaded }
func (r *Record) Compressing() bool     { return r.compressing }
func (r *Record) FallbackUsed() bool    { return r.fallbackUsed }
func (r *Record) LastError() error      { return r.lastErr }
func (r *Record) Generation() uint64    { return r.generation }
func (r *Record) Retired() bool         { return r.retired }

// BecomeVisible marks the image as inside the look-ahead zone. It reports
// true only on the first call; visibility never reverts.
func (r *Record) BecomeVisible() bool {
	if r.retired || r.visible {
		return false
	}

	r.visible = true
	if r.state == StatePlaceholder {
		r.state = StateNativeLoading
		r.displaySource = r.request.Source()
	}

	r.AddEvent(ImageVisibleEvent{Source: r.request.Source(), At: time.Now()})
	return true
}

// NativeLoad records that the element finished loading its current source.
// It reports true the first time the record reaches Loaded, which is when
// the caller's onLoad callback fires.
func (r *Record) NativeLoad() bool {
	if r.retired || r.state != StateNativeLoading {
		return false
	}

	first := !r.loaded
	r.state = StateLoaded
	r.loaded = true
	r.AddEvent(ImageLoadedEvent{
		Source:        r.request.Source(),
		DisplaySource: r.displaySource,
		At:            time.Now(),
	})
	return first
}

// NativeError handles a failed load. The first failure forces the original
// unmodified source and returns to loading; a second failure is terminal.
func (r *Record) NativeError() State {
	if r.retired || r.state == StateErrored || r.state == StatePlaceholder {
		return r.state
	}

	if !r.fallbackUsed {
		failed := r.displaySource
		r.fallbackUsed = true
		r.displaySource = r.request.Source()
		r.state = StateNativeLoading
		r.AddEvent(ImageFallbackEvent{
			Source:       r.request.Source(),
			FailedSource: failed,
			At:           time.Now(),
		})
		return r.state
	}

	r.state = StateErrored
	r.lastErr = ErrLoadFailed
	r.AddEvent(ImageErroredEvent{Source: r.request.Source(), At: time.Now()})
	return r.state
}

// BeginCompression issues a ticket when a compression attempt may start:
// the image is visible (always true for priority), not inline, and no
// other attempt is in flight.
func (r *Record) BeginCompression() (Ticket, bool) {
	if r.retired || r.compressing || !r.visible || r.request.Inline() {
		return Ticket{}, false
	}

	r.generation++
	r.compressing = true
	return Ticket{
		Generation: r.generation,
		Source:     r.request.Source(),
		Priority:   r.request.Priority(),
	}, true
}

func (r *Record) current(t Ticket) bool {
	return !r.retired && r.compressing && t.Generation == r.generation && t.Source == r.request.Source()
}

// ApplyCompression swaps in a compressed blob reference, even after the
// element already loaded. It reports false for stale tickets and after a
// native error forced the original source.
func (r *Record) ApplyCompression(t Ticket, blobRef string) bool {
	if !r.current(t) {
		return false
	}
	r.compressing = false

	if r.fallbackUsed || r.state == StateErrored {
		return false
	}

	r.displaySource = blobRef
	r.upgraded = true
	r.AddEvent(ImageUpgradedEvent{Source: r.request.Source(), BlobRef: blobRef, At: time.Now()})
	return true
}

// FailCompression keeps the original source on screen after a failed attempt
func (r *Record) FailCompression(t Ticket, err error) bool {
	if !r.current(t) {
		return false
	}

	r.compressing = false
	r.lastErr = err
	if r.state != StateErrored {
		r.displaySource = r.request.Source()
	}
	return true
}

// Retire detaches the record on unmount or source change. In-flight
// compression results are discarded afterwards.
func (r *Record) Retire() {
	if r.retired {
		return
	}
	r.retired = true
	r.compressing = false
	r.generation++
}

// Layers returns the fill-mode rendering of the record
func (r *Record) Layers() Layers {
	base := r.placeholder
	if r.request.Priority() {
		base = r.displaySource
	}

	layers := Layers{Base: Layer{Source: base, Mounted: true}}
	if !r.request.Priority() && r.visible {
		layers.Overlay = Layer{Source: r.displaySource, Mounted: true}
	}
	return layers
}

// Snapshot copies the record state
func (r *Record) Snapshot() Snapshot {
	s := Snapshot{
		Source:        r.request.Source(),
		DisplaySource: r.displaySource,
		State:         r.state,
		Visible:       r.visible,
		Loaded:        r.loaded,
		Compressing:   r.compressing,
		FallbackUsed:  r.fallbackUsed,
		Upgraded:      r.upgraded,
		Generation:    r.generation,
	}
	if r.lastErr != nil {
		s.LastError = r.lastErr.Error()
	}
	return s
}
