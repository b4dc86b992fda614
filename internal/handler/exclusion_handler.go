package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-observer-api/internal/models"
	"github.com/noah-isme/exam-observer-api/internal/service"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
	"github.com/noah-isme/exam-observer-api/pkg/response"
)

// ExclusionHandler exposes manual exclusion endpoints.
type ExclusionHandler struct {
	service *service.ExclusionService
}

// NewExclusionHandler constructs an exclusion handler.
func NewExclusionHandler(svc *service.ExclusionService) *ExclusionHandler {
	return &ExclusionHandler{service: svc}
}

// List godoc
// @Summary List manual exclusions
// @Tags Exclusions
// @Produce json
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param shift_id query string false "Filter by shift"
// @Success 200 {object} response.Envelope
// @Router /exclusions [get]
func (h *ExclusionHandler) List(c *gin.Context) {
	filter := models.ManualExclusionFilter{
		Date:    c.Query("date"),
		ShiftID: c.Query("shift_id"),
	}
	exclusions, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exclusions, nil)
}

// Create godoc
// @Summary Record a manual exclusion
// @Tags Exclusions
// @Accept json
// @Produce json
// @Param payload body service.CreateExclusionRequest true "Exclusion payload"
// @Success 201 {object} response.Envelope
// @Router /exclusions [post]
func (h *ExclusionHandler) Create(c *gin.Context) {
	var req service.CreateExclusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	createdBy := ""
	if claims := claimsFromContext(c); claims != nil {
		createdBy = claims.UserID
	}
	exclusion, err := h.service.Create(c.Request.Context(), req, createdBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exclusion)
}

// Delete godoc
// @Summary Lift a manual exclusion
// @Tags Exclusions
// @Param id path string true "Exclusion ID"
// @Success 204
// @Router /exclusions/{id} [delete]
func (h *ExclusionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
