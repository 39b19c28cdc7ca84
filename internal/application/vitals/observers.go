package vitals

import (
	"sort"

	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/domain/vitals"
)

// LogObserver writes each published report as one structured log line
func LogObserver(logger *zap.Logger) func(vitals.Report) {
	logger = logger.Named("vitals-report")
	return func(r vitals.Report) {
		keys := make([]string, 0, len(r.Metrics))
		for k := range r.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fields := make([]zap.Field, 0, len(keys)+2)
		fields = append(fields, zap.String("url", r.URL), zap.Time("timestamp", r.Timestamp))
		for _, k := range keys {
			fields = append(fields, zap.Float64(k, r.Metrics[k]), zap.String(k+"_rating", string(r.Ratings[k])))
		}
		logger.Info("Web vitals report", fields...)
	}
}
