package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/domain/imagery"
	"github.com/newmanyatta/manyatta/internal/domain/vitals"
)

func TestMetricsCollector_Compression(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())

	m.RecordCompression("priority", "compressed", 1000, 400, 20*time.Millisecond)
	m.RecordCompression("priority", "kept_original", 1000, 1000, time.Millisecond)
	m.RecordCompression("lazy", "failed", 0, 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.compressionsTotal.WithLabelValues("priority", "compressed")))
	assert.Equal(t, 600.0, testutil.ToFloat64(m.compressionSaved.WithLabelValues("priority")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compressionsTotal.WithLabelValues("lazy", "failed")))
}

func TestMetricsCollector_FetchAndRequests(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())

	m.RecordFetch("http", time.Millisecond, nil)
	m.RecordFetch("s3", time.Millisecond, errors.New("NoSuchKey"))
	m.RecordRequest(http.MethodGet, "/api/v1/galleries", 200, time.Millisecond)
	m.RecordRequest(http.MethodGet, "", 404, time.Millisecond)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.fetchErrors.WithLabelValues("http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchErrors.WithLabelValues("s3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestMetricsCollector_Gallery(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed(3 * time.Second)
	m.RecordPreload(true)
	m.RecordPreload(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.galleryOpen))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.gallerySessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.galleryPreloads.WithLabelValues("failed")))
}

func TestMetricsCollector_DeliveryEvents(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())

	m.HandleDeliveryEvent(imagery.ImageVisibleEvent{At: time.Now()})
	m.HandleDeliveryEvent(imagery.ImageVisibleEvent{At: time.Now()})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveryEvents.WithLabelValues("image.visible")))
}

func TestMetricsCollector_ObserveVitals(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())

	m.ObserveVitals(vitals.Report{
		Metrics: map[string]float64{"lcp": 1800, "cls": 0.3},
		Ratings: map[string]vitals.Rating{"lcp": vitals.RatingGood, "cls": vitals.RatingPoor},
	})

	assert.Equal(t, 1800.0, testutil.ToFloat64(m.vitalValue.WithLabelValues("lcp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.vitalRating.WithLabelValues("cls", "poor")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.vitalScore))
}

func TestMetricsCollector_Handler(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())
	m.SessionOpened()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "manyatta_gallery_sessions_total 1"))
	assert.Contains(t, body, "go_goroutines")
}

func TestTracingProvider_Disabled(t *testing.T) {
	tp, err := NewTracingProvider(TracingConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	ctx, span := tp.StartSpan(context.Background(), "noop")
	span.End()

	assert.False(t, tp.Enabled())
	assert.Empty(t, TraceIDFromContext(ctx))
	assert.NoError(t, tp.Shutdown(context.Background()))
}
