package inbound

import (
	"github.com/newmanyatta/manyatta/internal/domain/vitals"
)

// VitalsService collects Web Vitals samples and fans reports out to
// subscribers. One instance is owned by the application container.
type VitalsService interface {
	Record(cmd RecordVitalCommand) (*vitals.Metric, error)
	Metric(name string) (*vitals.Metric, error)
	All() []vitals.Metric
	Report(url string) vitals.Report
	Summary() vitals.Summary
	DebugInfo(url string) string
	Clear()

	// Publish generates a report for url and delivers it to every subscriber
	Publish(url string) vitals.Report
	Subscribe(fn func(vitals.Report)) Subscription
	Unsubscribe(sub Subscription)
	Close()
}

// Subscription identifies one registered observer
type Subscription uint64

// RecordVitalCommand is one sample posted by the browser
type RecordVitalCommand struct {
	Name           string  `json:"name" validate:"required,oneof=LCP FID INP CLS TTFB lcp fid inp cls ttfb"`
	Value          float64 `json:"value" validate:"gte=0"`
	NavigationType string  `json:"navigation_type" validate:"omitempty,oneof=navigate reload back-forward back-forward-cache prerender"`
	URL            string  `json:"url" validate:"omitempty,max=2048"`
}
