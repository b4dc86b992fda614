package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-observer-api/internal/dto"
	"github.com/noah-isme/exam-observer-api/internal/models"
	"github.com/noah-isme/exam-observer-api/internal/service"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
	"github.com/noah-isme/exam-observer-api/pkg/response"
)

type allocationService interface {
	ListAssignments(ctx context.Context, date, shiftID string) ([]models.AssignmentDetail, error)
	EligibleTeachers(ctx context.Context, date, shiftID string, includeAssigned bool) (*dto.EligibleTeachersResponse, error)
	Summary(ctx context.Context, date string) ([]dto.ShiftCoverage, error)
	Generate(ctx context.Context, req dto.GenerateAssignmentsRequest) (*dto.AllocationResponse, error)
	CommitPlan(ctx context.Context, req dto.CommitPlanRequest) (*dto.AllocationResponse, error)
	ApplyManualUpdates(ctx context.Context, req dto.ManualUpdateRequest) error
	Clear(ctx context.Context, req dto.ClearAssignmentsRequest) error
}

type rosterExporter interface {
	Roster(ctx context.Context, date, shiftID, format string) (*service.ExportResult, error)
}

// AssignmentHandler exposes the observer allocation endpoints.
type AssignmentHandler struct {
	service  allocationService
	exporter rosterExporter
}

// NewAssignmentHandler builds a new handler.
func NewAssignmentHandler(svc allocationService, exporter rosterExporter) *AssignmentHandler {
	return &AssignmentHandler{service: svc, exporter: exporter}
}

// List godoc
// @Summary List observer assignments
// @Tags Assignments
// @Produce json
// @Param date query string true "Exam date (YYYY-MM-DD)"
// @Param shift_id query string false "Filter by shift"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}
	assignments, err := h.service.ListAssignments(c.Request.Context(), date, c.Query("shift_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Summary godoc
// @Summary Per-shift roster coverage for a date
// @Tags Assignments
// @Produce json
// @Param date query string true "Exam date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /assignments/summary [get]
func (h *AssignmentHandler) Summary(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}
	coverage, err := h.service.Summary(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, coverage, nil)
}

// Eligible godoc
// @Summary List eligible observers for a slot
// @Tags Assignments
// @Produce json
// @Param date query string true "Exam date (YYYY-MM-DD)"
// @Param shift_id query string true "Shift ID"
// @Param include_assigned query bool false "Keep already-assigned teachers in the pool"
// @Success 200 {object} response.Envelope
// @Router /assignments/eligible [get]
func (h *AssignmentHandler) Eligible(c *gin.Context) {
	date := c.Query("date")
	shiftID := c.Query("shift_id")
	if date == "" || shiftID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date and shift_id query parameters are required"))
		return
	}
	includeAssigned, _ := strconv.ParseBool(c.DefaultQuery("include_assigned", "false"))
	res, err := h.service.EligibleTeachers(c.Request.Context(), date, shiftID, includeAssigned)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Generate godoc
// @Summary Generate observer assignments
// @Description Allocate observers across all sections of a shift, optionally as a preview
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.GenerateAssignmentsRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /assignments/generate [post]
func (h *AssignmentHandler) Generate(c *gin.Context) {
	var req dto.GenerateAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	res, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// CommitPlan godoc
// @Summary Save a reviewed assignment plan
// @Description Persist an explicit (section, teacher) plan verbatim, replacing the slot's roster
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.CommitPlanRequest true "Plan payload"
// @Success 200 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) CommitPlan(c *gin.Context) {
	var req dto.CommitPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	res, err := h.service.CommitPlan(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ManualUpdate godoc
// @Summary Apply manual per-section corrections
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.ManualUpdateRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/manual [put]
func (h *AssignmentHandler) ManualUpdate(c *gin.Context) {
	var req dto.ManualUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.ApplyManualUpdates(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "Assignments updated successfully"}, nil)
}

// Clear godoc
// @Summary Clear a slot's observer assignments
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.ClearAssignmentsRequest true "Clear payload"
// @Success 204
// @Router /assignments [delete]
func (h *AssignmentHandler) Clear(c *gin.Context) {
	var req dto.ClearAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.Clear(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export the observer roster
// @Tags Assignments
// @Produce text/csv
// @Produce application/pdf
// @Param date query string true "Exam date (YYYY-MM-DD)"
// @Param shift_id query string false "Filter by shift"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} file
// @Router /assignments/export [get]
func (h *AssignmentHandler) Export(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}
	result, err := h.exporter.Roster(c.Request.Context(), date, c.Query("shift_id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
