package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/internal/service"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
	"github.com/raito-kakutani/timable/pkg/response"
)

// ExportHandler wires asynchronous exports to HTTP routes.
type ExportHandler struct {
	exports *service.ExportService
	metrics *service.MetricsService
}

// NewExportHandler constructs a new ExportHandler.
func NewExportHandler(exports *service.ExportService, metrics *service.MetricsService) *ExportHandler {
	return &ExportHandler{exports: exports, metrics: metrics}
}

// Enqueue godoc
// @Summary Enqueue a timetable export
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID or published"
// @Param payload body dto.ExportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Router /timetables/{id}/exports [post]
func (h *ExportHandler) Enqueue(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	res, err := h.exports.Enqueue(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveExport(string(req.Format))
	response.JSON(c, http.StatusAccepted, res, nil)
}

// Status godoc
// @Summary Export job status and download link
// @Tags Exports
// @Produce json
// @Param jobId path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{jobId} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	res, err := h.exports.Status(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Download godoc
// @Summary Download a rendered export via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	contentType := "text/csv"
	if download.Format == dto.ExportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.DataFromReader(http.StatusOK, download.Size, contentType, download.File, nil)
}
