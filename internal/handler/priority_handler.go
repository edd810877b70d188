package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/internal/service"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
	"github.com/raito-kakutani/timable/pkg/response"
)

// PriorityHandler wires per-class scheduling preferences to HTTP routes.
type PriorityHandler struct {
	priorities *service.PriorityService
}

// NewPriorityHandler constructs a new PriorityHandler.
func NewPriorityHandler(priorities *service.PriorityService) *PriorityHandler {
	return &PriorityHandler{priorities: priorities}
}

// List godoc
// @Summary List priority configurations of every class
// @Tags Priorities
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /priorities [get]
func (h *PriorityHandler) List(c *gin.Context) {
	configs, err := h.priorities.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, configs, nil)
}

// Get godoc
// @Summary Get the priority configuration of one class
// @Tags Priorities
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /priorities/{classId} [get]
func (h *PriorityHandler) Get(c *gin.Context) {
	config, err := h.priorities.Get(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, config, nil)
}

// Put godoc
// @Summary Store the priority configuration of one class
// @Tags Priorities
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body dto.PriorityRequest true "Priority payload"
// @Success 200 {object} response.Envelope
// @Router /priorities/{classId} [put]
func (h *PriorityHandler) Put(c *gin.Context) {
	var req dto.PriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid priority payload"))
		return
	}
	config, err := h.priorities.Put(c.Request.Context(), c.Param("classId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, config, nil)
}

// Delete godoc
// @Summary Delete the priority configuration of one class
// @Tags Priorities
// @Param classId path string true "Class ID"
// @Success 204
// @Router /priorities/{classId} [delete]
func (h *PriorityHandler) Delete(c *gin.Context) {
	if err := h.priorities.Delete(c.Request.Context(), c.Param("classId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
