package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/internal/service"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
	"github.com/raito-kakutani/timable/pkg/response"
)

// ScenarioHandler wires what-if previews to HTTP routes.
type ScenarioHandler struct {
	scenarios *service.ScenarioService
}

// NewScenarioHandler constructs a new ScenarioHandler.
func NewScenarioHandler(scenarios *service.ScenarioService) *ScenarioHandler {
	return &ScenarioHandler{scenarios: scenarios}
}

// Preview godoc
// @Summary Preview a what-if overlay on a stored week
// @Tags Scenarios
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID or published"
// @Param payload body dto.ScenarioRequest true "Scenario payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/scenarios/preview [post]
func (h *ScenarioHandler) Preview(c *gin.Context) {
	var req dto.ScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scenario payload"))
		return
	}
	res, err := h.scenarios.Preview(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
