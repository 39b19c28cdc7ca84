package monitoring

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/domain/shared"
	"github.com/newmanyatta/manyatta/internal/domain/vitals"
)

const namespace = "manyatta"

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Image metrics
	compressionsTotal   *prometheus.CounterVec
	compressionDuration *prometheus.HistogramVec
	compressionSaved    *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	fetchErrors         *prometheus.CounterVec
	deliveryEvents      *prometheus.CounterVec
	variantsTotal       *prometheus.CounterVec
	variantDuration     prometheus.Histogram

	// Gallery metrics
	galleryOpen     prometheus.Gauge
	gallerySessions prometheus.Counter
	galleryDuration prometheus.Histogram
	galleryPreloads *prometheus.CounterVec

	// Web Vitals
	vitalValue  *prometheus.GaugeVec
	vitalRating *prometheus.CounterVec
	vitalScore  prometheus.Gauge

	uptimeSeconds prometheus.Counter
}

// NewMetricsCollector registers every metric on a private registry
// together with the Go and process collectors
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsCollector{
		logger:   logger,
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		compressionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_compressions_total",
				Help:      "Compression attempts by profile and outcome",
			},
			[]string{"profile", "outcome"},
		),
		compressionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "image_compression_duration_seconds",
				Help:      "Time spent fetching, resizing and encoding one image",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"profile"},
		),
		compressionSaved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_compression_saved_bytes_total",
				Help:      "Bytes saved by re-encoding",
			},
			[]string{"profile"},
		),
		variantsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "asset_variants_total",
				Help:      "Width variant requests on the asset origin by outcome",
			},
			[]string{"outcome"},
		),
		variantDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "asset_variant_render_seconds",
				Help:      "Time to resize and encode one variant",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "image_fetch_duration_seconds",
				Help:      "Time to download an original image",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"origin"},
		),
		fetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_fetch_errors_total",
				Help:      "Failed original downloads",
			},
			[]string{"origin"},
		),
		deliveryEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_delivery_events_total",
				Help:      "Image lifecycle events by name",
			},
			[]string{"event"},
		),

		galleryOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gallery_sessions_open",
				Help:      "Slideshows currently open",
			},
		),
		gallerySessions: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gallery_sessions_total",
				Help:      "Slideshows opened",
			},
		),
		galleryDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gallery_session_duration_seconds",
				Help:      "How long slideshows stay open",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		galleryPreloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gallery_preloads_total",
				Help:      "Slideshow preloads by result",
			},
			[]string{"result"},
		),

		vitalValue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "web_vital_value",
				Help:      "Latest reported Web Vitals value",
			},
			[]string{"metric"},
		),
		vitalRating: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "web_vital_reports_total",
				Help:      "Published Web Vitals by metric and rating",
			},
			[]string{"metric", "rating"},
		),
		vitalScore: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "web_vitals_score",
				Help:      "Share of good metrics in the latest report, as a percentage",
			},
		),

		uptimeSeconds: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uptime_seconds_total",
				Help:      "Total uptime in seconds",
			},
		),
	}
}

// Registry exposes the private registry, mainly for tests
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest implements middleware.RequestRecorder
func (m *MetricsCollector) RecordRequest(method, path string, status int, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCompression implements performance.CompressionRecorder
func (m *MetricsCollector) RecordCompression(profile, outcome string, originalBytes, outputBytes int, duration time.Duration) {
	m.compressionsTotal.WithLabelValues(profile, outcome).Inc()
	m.compressionDuration.WithLabelValues(profile).Observe(duration.Seconds())
	if saved := originalBytes - outputBytes; outputBytes > 0 && saved > 0 {
		m.compressionSaved.WithLabelValues(profile).Add(float64(saved))
	}
}

// RecordFetch implements fetch.Recorder
func (m *MetricsCollector) RecordFetch(origin string, duration time.Duration, err error) {
	m.fetchDuration.WithLabelValues(origin).Observe(duration.Seconds())
	if err != nil {
		m.fetchErrors.WithLabelValues(origin).Inc()
	}
}

// RecordVariant implements assets.Recorder. duration is zero for cache hits.
func (m *MetricsCollector) RecordVariant(outcome string, duration time.Duration) {
	m.variantsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.variantDuration.Observe(duration.Seconds())
	}
}

// HandleDeliveryEvent counts image lifecycle events. It satisfies
// shared.EventHandler.
func (m *MetricsCollector) HandleDeliveryEvent(event shared.DomainEvent) {
	m.deliveryEvents.WithLabelValues(event.EventName()).Inc()
}

// SessionOpened implements gallery.Recorder
func (m *MetricsCollector) SessionOpened() {
	m.galleryOpen.Inc()
	m.gallerySessions.Inc()
}

// SessionClosed implements gallery.Recorder
func (m *MetricsCollector) SessionClosed(duration time.Duration) {
	m.galleryOpen.Dec()
	m.galleryDuration.Observe(duration.Seconds())
}

// RecordPreload implements gallery.Recorder
func (m *MetricsCollector) RecordPreload(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.galleryPreloads.WithLabelValues(result).Inc()
}

// ObserveVitals exports a published report. Register it with the vitals
// monitor's Subscribe.
func (m *MetricsCollector) ObserveVitals(report vitals.Report) {
	good := 0
	for metric, value := range report.Metrics {
		rating := report.Ratings[metric]
		m.vitalValue.WithLabelValues(metric).Set(value)
		m.vitalRating.WithLabelValues(metric, string(rating)).Inc()
		if rating == vitals.RatingGood {
			good++
		}
	}
	if n := len(report.Metrics); n > 0 {
		m.vitalScore.Set(float64(good) / float64(n) * 100)
	}
}

// StartUptimeCounter ticks the uptime counter until ctx is done
func (m *MetricsCollector) StartUptimeCounter(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.uptimeSeconds.Inc()
		}
	}
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
