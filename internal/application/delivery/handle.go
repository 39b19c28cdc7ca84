package delivery

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/domain/imagery"
	"github.com/newmanyatta/manyatta/internal/domain/shared"
	"github.com/newmanyatta/manyatta/internal/infrastructure/cache"
	"github.com/newmanyatta/manyatta/internal/infrastructure/performance"
)

// Handle is one mounted image. All state changes go through mu, so
// compression results and host events interleave as if single-threaded.
type Handle struct {
	service *Service
	onLoad  func()

	mu        sync.Mutex
	record    *imagery.Record
	gate      *performance.Gate
	inflight  sync.WaitGroup
	unmounted bool
}

// mount starts delivery for req. Caller holds no lock.
func (h *Handle) mount(req imagery.ImageRequest) {
	h.mu.Lock()
	events := h.mountLocked(req)
	h.mu.Unlock()

	h.service.publish(events)
}

// mountLocked installs a fresh record and gate for req. It does nothing
// once the handle is unmounted.
func (h *Handle) mountLocked(req imagery.ImageRequest) []shared.DomainEvent {
	if h.unmounted {
		return nil
	}
	h.record = imagery.NewRecord(req, h.service.placeholderFor(req))
	h.gate = performance.NewGate(h.service.options.RootMargin)
	if req.Priority() {
		h.gate.Detach()
		h.startCompressionLocked()
	}
	return h.record.Events()
}

// Intersect feeds one layout observation to the visibility gate
func (h *Handle) Intersect(element, viewport imagery.Rect) bool {
	h.mu.Lock()
	if h.unmounted {
		h.mu.Unlock()
		return false
	}
	if h.gate.Observe(element, viewport) {
		if h.record.BecomeVisible() {
			h.startCompressionLocked()
		}
	}
	visible := h.record.Visible()
	events := h.record.Events()
	h.mu.Unlock()

	h.service.publish(events)
	return visible
}

// NativeLoad reports that the element finished loading its current source.
// onLoad fires once per mounted source.
func (h *Handle) NativeLoad() {
	h.mu.Lock()
	first := !h.unmounted && h.record.NativeLoad()
	events := h.record.Events()
	h.mu.Unlock()

	h.service.publish(events)
	if first && h.onLoad != nil {
		h.onLoad()
	}
}

// NativeError reports a failed load of the current source
func (h *Handle) NativeError() {
	h.mu.Lock()
	var state imagery.State
	if !h.unmounted {
		state = h.record.NativeError()
	}
	events := h.record.Events()
	source := h.record.Request().Source()
	h.mu.Unlock()

	if state == imagery.StateErrored {
		h.service.logger.Warn("Image failed to load from original source",
			zap.String("source", source),
		)
	}
	h.service.publish(events)
}

// ChangeSource retires the current delivery and starts over for req.
// Retiring and mounting happen under one lock so Unmount cannot land
// between them.
func (h *Handle) ChangeSource(req imagery.ImageRequest) error {
	h.mu.Lock()
	if h.unmounted {
		h.mu.Unlock()
		return nil
	}
	stale := h.retireLocked()
	events := h.mountLocked(req)
	h.mu.Unlock()

	h.revoke(stale)
	h.service.publish(events)
	return nil
}

// Unmount detaches the gate. In-flight attempts run to completion and
// their results are discarded.
func (h *Handle) Unmount() {
	h.mu.Lock()
	if h.unmounted {
		h.mu.Unlock()
		return
	}
	h.unmounted = true
	stale := h.retireLocked()
	h.mu.Unlock()

	h.revoke(stale)
}

// Wait blocks until in-flight compression attempts have settled
func (h *Handle) Wait() {
	h.inflight.Wait()
}

// Snapshot copies the delivery state
func (h *Handle) Snapshot() imagery.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.record.Snapshot()
}

// Element describes what the host should render right now
func (h *Handle) Element() imagery.Element {
	h.mu.Lock()
	defer h.mu.Unlock()

	req := h.record.Request()
	el := imagery.Element{
		Src:     h.record.DisplaySource(),
		SrcSet:  req.SrcSet(),
		Sizes:   performance.SizesFor(req.Context()),
		Alt:     req.Alt(),
		Loading: imagery.LoadingLazy,
		Width:   req.Width(),
		Height:  req.Height(),
		Fill:    req.Fill(),
		State:   h.record.State(),
	}
	if req.Priority() {
		el.Loading = imagery.LoadingEager
	}
	if req.Fill() {
		layers := h.record.Layers()
		el.Layers = &layers
	}
	return el
}

// startCompressionLocked launches one attempt if the record allows it.
// The attempt is not tied to this handle's lifetime: the pipeline may be
// sharing it with other images, and the ticket check drops a stale result.
func (h *Handle) startCompressionLocked() {
	ticket, ok := h.record.BeginCompression()
	if !ok {
		return
	}
	record, ctx := h.record, context.Background()

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()

		res := h.service.compressor.Compress(ctx, ticket.Source, ticket.Priority)
		h.settle(record, ticket, res)
	}()
}

func (h *Handle) settle(record *imagery.Record, ticket imagery.Ticket, res performance.Result) {
	h.mu.Lock()
	var applied bool
	switch {
	case res.Fallback || res.Skipped:
		record.FailCompression(ticket, res.Err)
	default:
		applied = record.ApplyCompression(ticket, res.Ref)
	}
	events := record.Events()
	h.mu.Unlock()

	h.service.publish(events)

	if !applied && !res.Fallback && !res.Skipped {
		h.service.logger.Debug("Discarding stale compression result",
			zap.String("source", ticket.Source),
			zap.Uint64("generation", ticket.Generation),
		)
		h.revoke(res.Ref)
	}
}

// retireLocked retires the record and returns a blob ref to revoke, if any
func (h *Handle) retireLocked() string {
	h.gate.Detach()
	h.record.Retire()
	h.record.ClearEvents()

	if ref := h.record.DisplaySource(); cache.IsBlobRef(ref) {
		return ref
	}
	return ""
}

func (h *Handle) revoke(ref string) {
	if ref == "" || !cache.IsBlobRef(ref) || h.service.store == nil {
		return
	}
	if err := h.service.store.Revoke(context.Background(), ref); err != nil {
		h.service.logger.Debug("Failed to revoke blob", zap.String("ref", ref), zap.Error(err))
	}
}
