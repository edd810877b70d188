package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/raito-kakutani/timable/internal/service"
	"github.com/raito-kakutani/timable/pkg/response"
)

// SeedHandler loads the bundled demo dataset.
type SeedHandler struct {
	seed *service.SeedService
}

// NewSeedHandler constructs a new SeedHandler.
func NewSeedHandler(seed *service.SeedService) *SeedHandler {
	return &SeedHandler{seed: seed}
}

// Load godoc
// @Summary Load the demo roster, classes and school configuration
// @Tags Seed
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /seed/demo [post]
func (h *SeedHandler) Load(c *gin.Context) {
	res, err := h.seed.Load(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}
