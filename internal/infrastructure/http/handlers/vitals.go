package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/ports/inbound"
)

// VitalsHandlers ingests Web Vitals samples from browsers
type VitalsHandlers struct {
	service   inbound.VitalsService
	validator Validator
	logger    *zap.Logger
}

// NewVitalsHandlers creates the vitals handlers
func NewVitalsHandlers(service inbound.VitalsService, validator Validator, logger *zap.Logger) *VitalsHandlers {
	return &VitalsHandlers{
		service:   service,
		validator: validator,
		logger:    logger.Named("vitals-handlers"),
	}
}

// Register mounts the routes under group
func (h *VitalsHandlers) Register(group *gin.RouterGroup) {
	vitals := group.Group("/vitals")
	vitals.POST("", h.Record)
	vitals.GET("", h.All)
	vitals.GET("/report", h.Report)
	vitals.GET("/summary", h.Summary)
	vitals.GET("/debug", h.Debug)
	vitals.GET("/metrics/:name", h.Metric)
}

// Record handles POST /api/v1/vitals. Every accepted sample publishes a
// fresh report to the subscribers.
func (h *VitalsHandlers) Record(c *gin.Context) {
	var cmd inbound.RecordVitalCommand
	if !bindJSON(c, h.validator, &cmd) {
		return
	}

	metric, err := h.service.Record(cmd)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.service.Publish(cmd.URL)

	c.JSON(http.StatusCreated, metric)
}

// All handles GET /api/v1/vitals
func (h *VitalsHandlers) All(c *gin.Context) {
	metrics := h.service.All()
	c.JSON(http.StatusOK, gin.H{"metrics": metrics, "count": len(metrics)})
}

// Report handles GET /api/v1/vitals/report?url=
func (h *VitalsHandlers) Report(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Report(c.Query("url")))
}

// Summary handles GET /api/v1/vitals/summary
func (h *VitalsHandlers) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Summary())
}

// Debug handles GET /api/v1/vitals/debug?url= with a plain-text dump
func (h *VitalsHandlers) Debug(c *gin.Context) {
	c.String(http.StatusOK, h.service.DebugInfo(c.Query("url")))
}

// Metric handles GET /api/v1/vitals/metrics/:name
func (h *VitalsHandlers) Metric(c *gin.Context) {
	metric, err := h.service.Metric(c.Param("name"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, metric)
}
