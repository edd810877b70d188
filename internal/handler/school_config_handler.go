package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/internal/service"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
	"github.com/raito-kakutani/timable/pkg/response"
)

// SchoolConfigHandler wires the school-week configuration to HTTP routes.
type SchoolConfigHandler struct {
	configs *service.SchoolConfigService
}

// NewSchoolConfigHandler constructs a new SchoolConfigHandler.
func NewSchoolConfigHandler(configs *service.SchoolConfigService) *SchoolConfigHandler {
	return &SchoolConfigHandler{configs: configs}
}

// Get godoc
// @Summary Get the school-week configuration
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /config [get]
func (h *SchoolConfigHandler) Get(c *gin.Context) {
	cfg, err := h.configs.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Put godoc
// @Summary Replace the school-week configuration
// @Tags Configuration
// @Accept json
// @Produce json
// @Param payload body dto.SchoolConfigRequest true "Configuration payload"
// @Success 200 {object} response.Envelope
// @Router /config [put]
func (h *SchoolConfigHandler) Put(c *gin.Context) {
	var req dto.SchoolConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid school config payload"))
		return
	}
	cfg, err := h.configs.Put(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}
