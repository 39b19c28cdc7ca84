package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type stubChecker struct {
	status Status
	calls  atomic.Int32
}

func (s *stubChecker) Check(context.Context) Check {
	s.calls.Add(1)
	return Check{Status: s.status, Message: string(s.status), LastChecked: time.Now()}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHealthCheck_Aggregation(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]Status
		want     Status
	}{
		{"no checks", nil, StatusHealthy},
		{"all healthy", map[string]Status{"a": StatusHealthy, "b": StatusHealthy}, StatusHealthy},
		{"one degraded", map[string]Status{"a": StatusHealthy, "b": StatusDegraded}, StatusDegraded},
		{"unhealthy wins", map[string]Status{"a": StatusDegraded, "b": StatusUnhealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			h := New("test", zap.NewNop())
			for name, status := range tt.statuses {
				h.Register(name, &stubChecker{status: status})
			}

			// Act
			resp := h.Check(context.Background())

			// Assert
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, "test", resp.Version)
			assert.Len(t, resp.Checks, len(tt.statuses))
		})
	}
}

func TestHealthCheck_ChecksSortedByName(t *testing.T) {
	h := New("test", zap.NewNop())
	for _, name := range []string{"redis", "assets", "database", "origin"} {
		h.Register(name, &stubChecker{status: StatusHealthy})
	}

	resp := h.Check(context.Background())

	names := make([]string, 0, len(resp.Checks))
	for _, c := range resp.Checks {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"assets", "database", "origin", "redis"}, names)
}

func TestHealthCheck_CachesResponse(t *testing.T) {
	h := New("test", zap.NewNop())
	checker := &stubChecker{status: StatusHealthy}
	h.Register("db", checker)

	h.Check(context.Background())
	h.Check(context.Background())
	assert.Equal(t, int32(1), checker.calls.Load())

	h.SetCacheTTL(0)
	h.Check(context.Background())
	assert.Equal(t, int32(2), checker.calls.Load())
}

func TestHealthCheck_Handlers(t *testing.T) {
	tests := []struct {
		name          string
		status        Status
		healthCode    int
		readinessCode int
		readiness     string
	}{
		{"healthy", StatusHealthy, http.StatusOK, http.StatusOK, "ready"},
		{"degraded still serves", StatusDegraded, http.StatusOK, http.StatusOK, "ready"},
		{"unhealthy", StatusUnhealthy, http.StatusServiceUnavailable, http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			h := New("1.2.3", zap.NewNop())
			h.Register("dep", &stubChecker{status: tt.status})
			router := gin.New()
			router.GET("/health", h.Handler())
			router.GET("/ready", h.ReadinessHandler())
			router.GET("/live", h.LivenessHandler())

			// Act
			health := httptest.NewRecorder()
			router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
			ready := httptest.NewRecorder()
			router.ServeHTTP(ready, httptest.NewRequest(http.MethodGet, "/ready", nil))
			live := httptest.NewRecorder()
			router.ServeHTTP(live, httptest.NewRequest(http.MethodGet, "/live", nil))

			// Assert
			assert.Equal(t, tt.healthCode, health.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(health.Body.Bytes(), &body))
			assert.Equal(t, string(tt.status), body["status"])
			assert.Equal(t, "1.2.3", body["version"])
			assert.Contains(t, body, "total_duration_ms")

			assert.Equal(t, tt.readinessCode, ready.Code)
			var readyBody map[string]interface{}
			require.NoError(t, json.Unmarshal(ready.Body.Bytes(), &readyBody))
			assert.Equal(t, tt.readiness, readyBody["status"])

			assert.Equal(t, http.StatusOK, live.Code)
			assert.Contains(t, live.Body.String(), "alive")
		})
	}
}

func TestDatabaseChecker(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	check := NewDatabaseChecker(sqlDB).Check(context.Background())
	assert.Equal(t, StatusHealthy, check.Status)
	assert.Equal(t, "database", check.Name)
	meta, ok := check.Metadata.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, meta, "open_conns")

	require.NoError(t, sqlDB.Close())
	check = NewDatabaseChecker(sqlDB).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.NotEmpty(t, check.Message)
}

func TestRedisChecker(t *testing.T) {
	check := NewRedisChecker(stubPinger{}).Check(context.Background())
	assert.Equal(t, StatusHealthy, check.Status)
	assert.Equal(t, "redis", check.Name)

	check = NewRedisChecker(stubPinger{err: errors.New("connection refused")}).Check(context.Background())
	assert.Equal(t, StatusDegraded, check.Status)
	assert.Equal(t, "connection refused", check.Message)
}

func TestDirectoryChecker(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "hero.jpg")
	require.NoError(t, os.WriteFile(file, []byte{0xff, 0xd8}, 0o644))

	tests := []struct {
		name string
		path string
		want Status
	}{
		{"populated directory", dir, StatusHealthy},
		{"empty directory", t.TempDir(), StatusHealthy},
		{"missing", filepath.Join(dir, "nope"), StatusUnhealthy},
		{"regular file", file, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewDirectoryChecker(tt.path).Check(context.Background())
			assert.Equal(t, tt.want, check.Status)
			assert.Equal(t, "assets", check.Name)
		})
	}
}

func TestCustomChecker(t *testing.T) {
	c := NewCustomChecker("vitals", func(context.Context) (Status, string, interface{}) {
		return StatusDegraded, "no reports yet", map[string]int{"subscribers": 0}
	})

	check := c.Check(context.Background())

	assert.Equal(t, "vitals", check.Name)
	assert.Equal(t, StatusDegraded, check.Status)
	assert.Equal(t, "no reports yet", check.Message)
	assert.False(t, check.LastChecked.IsZero())
}

func TestCheck_MarshalJSONUsesMilliseconds(t *testing.T) {
	data, err := json.Marshal(Check{Name: "db", Status: StatusHealthy, Duration: 1500 * time.Millisecond})
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, float64(1500), body["duration_ms"])
}
