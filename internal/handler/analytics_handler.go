package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/raito-kakutani/timable/internal/service"
	"github.com/raito-kakutani/timable/pkg/response"
)

// AnalyticsHandler wires timetable insights to HTTP routes.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs a new AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Insights godoc
// @Summary Load, fatigue, congestion, and clash-risk heatmap data
// @Tags Analytics
// @Produce json
// @Param id path string true "Timetable ID or published"
// @Param week query int false "Rotation week (default 1)"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/insights [get]
func (h *AnalyticsHandler) Insights(c *gin.Context) {
	week := 0
	if raw := c.Query("week"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			week = parsed
		}
	}
	res, err := h.analytics.Insights(c.Request.Context(), c.Param("id"), week)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
