// Package vitals owns the Web Vitals collector and fans reports out to
// registered observers.
package vitals

import (
	stderrors "errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/domain/vitals"
	"github.com/newmanyatta/manyatta/internal/ports/inbound"
	"github.com/newmanyatta/manyatta/pkg/errors"
)

type observer struct {
	id inbound.Subscription
	fn func(vitals.Report)
}

// Monitor implements inbound.VitalsService. One instance is created by the
// container and shared by every caller.
type Monitor struct {
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	collector *vitals.Collector
	observers []observer
	nextID    inbound.Subscription
	closed    bool

	publish sync.Mutex
}

// NewMonitor creates a monitor; nil thresholds use the defaults
func NewMonitor(thresholds vitals.Thresholds, logger *zap.Logger) *Monitor {
	return &Monitor{
		logger:    logger.Named("vitals"),
		now:       time.Now,
		collector: vitals.NewCollector(thresholds),
	}
}

// Record rates and stores one sample
func (m *Monitor) Record(cmd inbound.RecordVitalCommand) (*vitals.Metric, error) {
	name, err := vitals.ParseMetricName(cmd.Name)
	if err != nil {
		return nil, errors.NewBadRequestError("unknown metric").WithMetadata("name", cmd.Name).WithCause(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	metric, err := m.collector.Record(name, cmd.Value, vitals.ParseNavigationType(cmd.NavigationType), m.now())
	if err != nil {
		if stderrors.Is(err, vitals.ErrInvalidValue) {
			return nil, errors.NewValidationError(err.Error())
		}
		return nil, errors.Wrap(err, "record metric")
	}

	if metric.Rating == vitals.RatingPoor {
		m.logger.Warn("Poor web vital",
			zap.String("metric", string(metric.Name)),
			zap.Float64("value", metric.Value),
			zap.String("url", cmd.URL),
		)
	}
	return &metric, nil
}

// Metric returns the latest sample of name
func (m *Monitor) Metric(name string) (*vitals.Metric, error) {
	parsed, err := vitals.ParseMetricName(name)
	if err != nil {
		return nil, errors.NewBadRequestError("unknown metric").WithMetadata("name", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	metric, ok := m.collector.Metric(parsed)
	if !ok {
		return nil, errors.NewNotFoundError("metric")
	}
	return &metric, nil
}

// All returns the latest samples
func (m *Monitor) All() []vitals.Metric {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collector.All()
}

// Report snapshots the latest values for url
func (m *Monitor) Report(url string) vitals.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collector.Report(url, m.now())
}

// Summary counts ratings
func (m *Monitor) Summary() vitals.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collector.Summary()
}

// DebugInfo renders a plain-text report
func (m *Monitor) DebugInfo(url string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collector.DebugInfo(url, m.now())
}

// Clear drops every sample
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collector.Clear()
}

// Publish generates a report for url and delivers it to each observer in
// subscription order. Observers run on the caller's goroutine and must not
// subscribe or unsubscribe from inside the callback.
func (m *Monitor) Publish(url string) vitals.Report {
	m.mu.Lock()
	report := m.collector.Report(url, m.now())
	if m.closed {
		m.mu.Unlock()
		return report
	}
	observers := make([]observer, len(m.observers))
	copy(observers, m.observers)

	m.publish.Lock()
	m.mu.Unlock()
	defer m.publish.Unlock()

	for _, o := range observers {
		m.deliver(o, report)
	}
	return report
}

func (m *Monitor) deliver(o observer, report vitals.Report) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Vitals observer panicked",
				zap.Uint64("subscription", uint64(o.id)),
				zap.Any("panic", r),
			)
		}
	}()
	o.fn(report)
}

// Subscribe registers fn. Subscribing to a closed monitor returns a
// subscription that never fires.
func (m *Monitor) Subscribe(fn func(vitals.Report)) inbound.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	if !m.closed {
		m.observers = append(m.observers, observer{id: id, fn: fn})
	}
	return id
}

// Unsubscribe removes sub; unknown subscriptions are ignored
func (m *Monitor) Unsubscribe(sub inbound.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, o := range m.observers {
		if o.id == sub {
			m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
			return
		}
	}
}

// Subscribers is the number of registered observers
func (m *Monitor) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observers)
}

// Close drops every observer. Later publishes reach nobody.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.observers = nil
	m.logger.Debug("Vitals monitor closed")
}

var _ inbound.VitalsService = (*Monitor)(nil)
