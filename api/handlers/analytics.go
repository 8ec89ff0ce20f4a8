package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/FCHEHIDI/lb-analytics/internal/warehouse"
)

// AnalyticsHandler serves the read-only analytics surface: KPI and health
// views, anomaly listings, stored reports and quality checks. All figures
// come from the warehouse views, so responses always reflect what is
// actually stored.
type AnalyticsHandler struct {
	wh           *warehouse.Warehouse
	defaultLimit int
	maxLimit     int
}

func NewAnalyticsHandler(wh *warehouse.Warehouse, defaultLimit, maxLimit int) *AnalyticsHandler {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	if maxLimit <= 0 {
		maxLimit = 1000
	}
	return &AnalyticsHandler{wh: wh, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

func (h *AnalyticsHandler) limit(c *gin.Context) int {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	return limit
}

// GetKPIs returns the warehouse-wide KPI snapshot.
func (h *AnalyticsHandler) GetKPIs(c *gin.Context) {
	snap, err := h.wh.Requests().KPIFromView(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute KPIs"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetServerHealth returns per-server health summaries.
func (h *AnalyticsHandler) GetServerHealth(c *gin.Context) {
	health, err := h.wh.Metrics().HealthFromView(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read server health"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"servers": health, "count": len(health)})
}

// GetAnomalies lists annotated requests filtered by minimum score.
func (h *AnalyticsHandler) GetAnomalies(c *gin.Context) {
	minScore := 1
	if raw := c.Query("min_score"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 3 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_score must be between 0 and 3"})
			return
		}
		minScore = n
	}

	rows, err := h.wh.Requests().ListAnomalies(c.Request.Context(), minScore, h.limit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list anomalies"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"anomalies": rows, "count": len(rows)})
}

// ListReports returns stored report summaries, newest first.
func (h *AnalyticsHandler) ListReports(c *gin.Context) {
	reports, err := h.wh.Reports().List(c.Request.Context(), h.limit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// GetReport returns one full report document.
func (h *AnalyticsHandler) GetReport(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return
	}

	report, err := h.wh.Reports().Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetQuality returns the latest data-quality check per table.
func (h *AnalyticsHandler) GetQuality(c *gin.Context) {
	checks, err := h.wh.Quality().Latest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read quality metrics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"checks": checks, "count": len(checks)})
}
