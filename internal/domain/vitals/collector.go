package vitals

import (
	"fmt"
	"strings"
	"time"
)

// Collector keeps the latest sample per metric. It is not safe for
// concurrent use; the application layer serialises access.
type Collector struct {
	thresholds Thresholds
	latest     map[MetricName]Metric
	previous   map[MetricName]float64
	navigation NavigationType
}

// NewCollector builds a collector; nil thresholds use DefaultThresholds
func NewCollector(thresholds Thresholds) *Collector {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	return &Collector{
		thresholds: thresholds,
		latest:     make(map[MetricName]Metric),
		previous:   make(map[MetricName]float64),
		navigation: NavigationNavigate,
	}
}

// Thresholds returns the bands the collector rates against
func (c *Collector) Thresholds() Thresholds {
	return c.thresholds
}

// Record rates value and stores it as the latest sample for name. Delta is
// measured against the previous sample of the same metric, or zero.
func (c *Collector) Record(name MetricName, value float64, nav NavigationType, at time.Time) (Metric, error) {
	if _, err := ParseMetricName(string(name)); err != nil {
		return Metric{}, err
	}
	if value < 0 {
		return Metric{}, ErrInvalidValue
	}
	if nav == "" {
		nav = NavigationNavigate
	}

	m := Metric{
		Name:           name,
		Value:          value,
		Rating:         c.thresholds.Rate(name, value),
		Delta:          value - c.previous[name],
		ID:             fmt.Sprintf("%s-%d", name, at.UnixMilli()),
		NavigationType: nav,
		RecordedAt:     at,
	}

	c.latest[name] = m
	c.previous[name] = value
	c.navigation = nav
	return m, nil
}

// Metric returns the latest sample for name
func (c *Collector) Metric(name MetricName) (Metric, bool) {
	m, ok := c.latest[name]
	return m, ok
}

// All returns the latest samples in MetricNames order
func (c *Collector) All() []Metric {
	out := make([]Metric, 0, len(c.latest))
	for _, name := range MetricNames() {
		if m, ok := c.latest[name]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Len is the number of metrics with at least one sample
func (c *Collector) Len() int {
	return len(c.latest)
}

// Report snapshots the latest values and ratings for url
func (c *Collector) Report(url string, at time.Time) Report {
	r := Report{
		Timestamp: at,
		URL:       url,
		Metrics:   make(map[string]float64, len(c.latest)),
		Ratings:   make(map[string]Rating, len(c.latest)),
	}
	for name, m := range c.latest {
		r.Metrics[name.Key()] = m.Value
		r.Ratings[name.Key()] = m.Rating
	}
	return r
}

// Summary counts ratings across the latest samples
func (c *Collector) Summary() Summary {
	var s Summary
	for _, m := range c.latest {
		switch m.Rating {
		case RatingGood:
			s.GoodCount++
		case RatingNeedsImprovement:
			s.NeedsImprovementCount++
		default:
			s.PoorCount++
		}
	}
	if total := len(c.latest); total > 0 {
		s.Score = float64(s.GoodCount) / float64(total) * 100
	}
	return s
}

// Clear drops every sample and the delta baselines
func (c *Collector) Clear() {
	c.latest = make(map[MetricName]Metric)
	c.previous = make(map[MetricName]float64)
	c.navigation = NavigationNavigate
}

// DebugInfo renders a plain-text summary for logs and the debug endpoint
func (c *Collector) DebugInfo(url string, at time.Time) string {
	s := c.Summary()

	lines := make([]string, 0, len(c.latest))
	for _, m := range c.All() {
		lines = append(lines, fmt.Sprintf("%s: %.2f (%s)", m.Name, m.Value, m.Rating))
	}

	var b strings.Builder
	b.WriteString("=== Web Vitals Report ===\n")
	fmt.Fprintf(&b, "Performance Score: %.1f%%\n", s.Score)
	fmt.Fprintf(&b, "Good: %d | Needs Improvement: %d | Poor: %d\n\n", s.GoodCount, s.NeedsImprovementCount, s.PoorCount)
	b.WriteString("Metrics:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "URL: %s\n", url)
	fmt.Fprintf(&b, "Navigation Type: %s\n", c.navigation)
	fmt.Fprintf(&b, "Timestamp: %s\n", at.UTC().Format(time.RFC3339))
	return b.String()
}
