package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-observer-api/internal/models"
	"github.com/noah-isme/exam-observer-api/internal/service"
	"github.com/noah-isme/exam-observer-api/pkg/response"
)

// HistoryHandler exposes the assignment audit trail.
type HistoryHandler struct {
	service *service.HistoryService
}

// NewHistoryHandler constructs a history handler.
func NewHistoryHandler(svc *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{service: svc}
}

// List godoc
// @Summary List assignment history
// @Tags History
// @Produce json
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param shift_id query string false "Filter by shift"
// @Success 200 {object} response.Envelope
// @Router /history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	filter := models.HistoryFilter{
		Date:    c.Query("date"),
		ShiftID: c.Query("shift_id"),
	}
	records, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
