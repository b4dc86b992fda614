package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-observer-api/internal/dto"
	"github.com/noah-isme/exam-observer-api/internal/models"
	"github.com/noah-isme/exam-observer-api/internal/service"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
)

type stubAllocationService struct {
	listResult          []models.AssignmentDetail
	generateResult      *dto.AllocationResponse
	generateErr         error
	clearErr            error
	lastGenerate        dto.GenerateAssignmentsRequest
	lastIncludeAssigned bool
	summaryResult       []dto.ShiftCoverage
}

func (s *stubAllocationService) ListAssignments(ctx context.Context, date, shiftID string) ([]models.AssignmentDetail, error) {
	return s.listResult, nil
}

func (s *stubAllocationService) EligibleTeachers(ctx context.Context, date, shiftID string, includeAssigned bool) (*dto.EligibleTeachersResponse, error) {
	s.lastIncludeAssigned = includeAssigned
	return &dto.EligibleTeachersResponse{ExamDate: date, ShiftID: shiftID}, nil
}

func (s *stubAllocationService) Summary(ctx context.Context, date string) ([]dto.ShiftCoverage, error) {
	return s.summaryResult, nil
}

func (s *stubAllocationService) Generate(ctx context.Context, req dto.GenerateAssignmentsRequest) (*dto.AllocationResponse, error) {
	s.lastGenerate = req
	return s.generateResult, s.generateErr
}

func (s *stubAllocationService) CommitPlan(ctx context.Context, req dto.CommitPlanRequest) (*dto.AllocationResponse, error) {
	return &dto.AllocationResponse{Message: "Assignments saved successfully"}, nil
}

func (s *stubAllocationService) ApplyManualUpdates(ctx context.Context, req dto.ManualUpdateRequest) error {
	return nil
}

func (s *stubAllocationService) Clear(ctx context.Context, req dto.ClearAssignmentsRequest) error {
	return s.clearErr
}

type stubRosterExporter struct{}

func (s *stubRosterExporter) Roster(ctx context.Context, date, shiftID, format string) (*service.ExportResult, error) {
	return &service.ExportResult{FileName: "observers-" + date + ".csv", ContentType: "text/csv", Content: []byte("Date\n")}, nil
}

func newAssignmentRouter(svc *stubAllocationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAssignmentHandler(svc, &stubRosterExporter{})
	router := gin.New()
	router.GET("/assignments", h.List)
	router.GET("/assignments/summary", h.Summary)
	router.GET("/assignments/eligible", h.Eligible)
	router.POST("/assignments/generate", h.Generate)
	router.POST("/assignments", h.CommitPlan)
	router.PUT("/assignments/manual", h.ManualUpdate)
	router.DELETE("/assignments", h.Clear)
	router.GET("/assignments/export", h.Export)
	return router
}

func TestAssignmentHandlerListRequiresDate(t *testing.T) {
	router := newAssignmentRouter(&stubAllocationService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/assignments", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignmentHandlerSummary(t *testing.T) {
	svc := &stubAllocationService{
		summaryResult: []dto.ShiftCoverage{
			{ShiftID: "shift-1", ShiftNumber: 1, SectionsCount: 3, Required: 6, Assigned: 6, Covered: true},
		},
	}
	router := newAssignmentRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/assignments/summary", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/assignments/summary?date=2026-06-10", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []dto.ShiftCoverage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.True(t, envelope.Data[0].Covered)
}

func TestAssignmentHandlerEligibleIncludeAssigned(t *testing.T) {
	svc := &stubAllocationService{}
	router := newAssignmentRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/assignments/eligible?date=2026-06-10&shift_id=shift-1", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, svc.lastIncludeAssigned)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/assignments/eligible?date=2026-06-10&shift_id=shift-1&include_assigned=true", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.lastIncludeAssigned)
}

func TestAssignmentHandlerGenerate(t *testing.T) {
	svc := &stubAllocationService{
		generateResult: &dto.AllocationResponse{
			Message: "Assignment preview generated",
			Preview: true,
			Assignments: []models.PlanEntry{
				{SectionNumber: 1, TeacherID: "t1", TeacherName: "Teacher One"},
			},
		},
	}
	router := newAssignmentRouter(svc)

	body := `{"exam_date":"2026-06-10","shift_id":"shift-1","preview":true}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assignments/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.lastGenerate.Preview)

	var envelope struct {
		Data dto.AllocationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Preview)
	require.Len(t, envelope.Data.Assignments, 1)
}

func TestAssignmentHandlerGenerateShortfall(t *testing.T) {
	svc := &stubAllocationService{
		generateErr: appErrors.Clone(appErrors.ErrCapacityShortfall,
			"Not enough available teachers to cover all sections. Needed: 6, Available: 5"),
	}
	router := newAssignmentRouter(svc)

	body := `{"exam_date":"2026-06-10","shift_id":"shift-1"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assignments/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Needed: 6, Available: 5")
}

func TestAssignmentHandlerClear(t *testing.T) {
	router := newAssignmentRouter(&stubAllocationService{})

	body := `{"exam_date":"2026-06-10","shift_id":"shift-1"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/assignments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAssignmentHandlerExport(t *testing.T) {
	router := newAssignmentRouter(&stubAllocationService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/assignments/export?date=2026-06-10", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "observers-2026-06-10.csv")
}
