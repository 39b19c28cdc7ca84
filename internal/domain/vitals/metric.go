// Package vitals rates Core Web Vitals samples reported by the browser and
// aggregates them into per-page reports.
package vitals

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUnknownMetric = errors.New("unknown web vitals metric")
	ErrInvalidValue  = errors.New("metric value must be non-negative")
)

// MetricName identifies a Web Vitals metric
type MetricName string

const (
	LCP  MetricName = "LCP"
	FID  MetricName = "FID"
	INP  MetricName = "INP"
	CLS  MetricName = "CLS"
	TTFB MetricName = "TTFB"
)

// MetricNames lists the supported metrics in report order
func MetricNames() []MetricName {
	return []MetricName{LCP, FID, INP, CLS, TTFB}
}

// ParseMetricName accepts any letter case
func ParseMetricName(raw string) (MetricName, error) {
	name := MetricName(strings.ToUpper(strings.TrimSpace(raw)))
	for _, n := range MetricNames() {
		if n == name {
			return n, nil
		}
	}
	return "", ErrUnknownMetric
}

// Key is the lower-case name used in report maps
func (n MetricName) Key() string {
	return strings.ToLower(string(n))
}

// Rating buckets a value against its thresholds
type Rating string

const (
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs-improvement"
	RatingPoor             Rating = "poor"
)

// Threshold holds the upper bounds of the good and needs-improvement bands
type Threshold struct {
	Good             float64 `json:"good"`
	NeedsImprovement float64 `json:"needs_improvement"`
}

// Thresholds maps each metric to its bands
type Thresholds map[MetricName]Threshold

// DefaultThresholds returns the Core Web Vitals guideline bands. CLS is
// unitless, everything else is in milliseconds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LCP:  {Good: 2500, NeedsImprovement: 4000},
		FID:  {Good: 100, NeedsImprovement: 300},
		INP:  {Good: 200, NeedsImprovement: 500},
		CLS:  {Good: 0.1, NeedsImprovement: 0.25},
		TTFB: {Good: 800, NeedsImprovement: 1800},
	}
}

// Rate returns good when value <= Good, needs-improvement when value <=
// NeedsImprovement and poor otherwise. Metrics without thresholds rate good.
func (t Thresholds) Rate(name MetricName, value float64) Rating {
	th, ok := t[name]
	if !ok {
		return RatingGood
	}
	switch {
	case value <= th.Good:
		return RatingGood
	case value <= th.NeedsImprovement:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}

// NavigationType is how the page was reached
type NavigationType string

const (
	NavigationNavigate         NavigationType = "navigate"
	NavigationReload           NavigationType = "reload"
	NavigationBackForward      NavigationType = "back-forward"
	NavigationBackForwardCache NavigationType = "back-forward-cache"
	NavigationPrerender        NavigationType = "prerender"
)

// ParseNavigationType falls back to navigate for anything unrecognised
func ParseNavigationType(raw string) NavigationType {
	switch nt := NavigationType(strings.ToLower(strings.TrimSpace(raw))); nt {
	case NavigationReload, NavigationBackForward, NavigationBackForwardCache, NavigationPrerender:
		return nt
	default:
		return NavigationNavigate
	}
}

// Metric is one rated sample
type Metric struct {
	Name           MetricName     `json:"name"`
	Value          float64        `json:"value"`
	Rating         Rating         `json:"rating"`
	Delta          float64        `json:"delta"`
	ID             string         `json:"id"`
	NavigationType NavigationType `json:"navigation_type"`
	RecordedAt     time.Time      `json:"recorded_at"`
}

// Report is the latest value and rating of every recorded metric, keyed by
// lower-case metric name.
type Report struct {
	Timestamp time.Time          `json:"timestamp"`
	URL       string             `json:"url"`
	Metrics   map[string]float64 `json:"metrics"`
	Ratings   map[string]Rating  `json:"ratings"`
}

// Summary counts ratings; Score is the share of good metrics as a percentage
type Summary struct {
	GoodCount             int     `json:"good_count"`
	NeedsImprovementCount int     `json:"needs_improvement_count"`
	PoorCount             int     `json:"poor_count"`
	Score                 float64 `json:"score"`
}
