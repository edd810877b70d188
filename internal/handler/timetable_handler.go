package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/internal/service"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
	"github.com/raito-kakutani/timable/pkg/response"
)

// TimetableHandler wires timetable generation and views to HTTP routes.
type TimetableHandler struct {
	timetables *service.TimetableService
}

// NewTimetableHandler constructs a new TimetableHandler.
func NewTimetableHandler(timetables *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables}
}

// Solve godoc
// @Summary Generate a new timetable draft
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.SolveRequest true "Solve options"
// @Success 201 {object} response.Envelope
// @Router /timetables/solve [post]
func (h *TimetableHandler) Solve(c *gin.Context) {
	var req dto.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid solve payload"))
		return
	}
	res, err := h.timetables.Solve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// List godoc
// @Summary List stored timetables
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	summaries, err := h.timetables.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// Get godoc
// @Summary Get one timetable; "published" addresses the live one
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID or published"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	summary, err := h.timetables.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Publish godoc
// @Summary Publish a draft timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/publish [post]
func (h *TimetableHandler) Publish(c *gin.Context) {
	summary, err := h.timetables.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Delete godoc
// @Summary Delete a draft timetable
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.timetables.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Validate godoc
// @Summary Re-validate a stored timetable against current data
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID or published"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/validate [post]
func (h *TimetableHandler) Validate(c *gin.Context) {
	res, err := h.timetables.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ClassView godoc
// @Summary Render one class across all rotation weeks
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID or published"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/classes/{classId} [get]
func (h *TimetableHandler) ClassView(c *gin.Context) {
	view, err := h.timetables.ClassView(c.Request.Context(), c.Param("id"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// TeacherView godoc
// @Summary Render one teacher across all rotation weeks
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID or published"
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/teachers/{teacherId} [get]
func (h *TimetableHandler) TeacherView(c *gin.Context) {
	view, err := h.timetables.TeacherView(c.Request.Context(), c.Param("id"), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
