package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-observer-api/internal/models"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
	"github.com/noah-isme/exam-observer-api/pkg/export"
)

// Export formats supported by the roster export endpoint.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var rosterExportHeaders = []string{"Date", "Shift", "Time", "Section", "Teacher"}

type rosterReader interface {
	ListByDate(ctx context.Context, date, shiftID string) ([]models.AssignmentDetail, error)
}

// ExportResult carries a rendered document and its transport metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders the observer roster as downloadable documents.
type ExportService struct {
	assignments rosterReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(assignments rosterReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		assignments: assignments,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// Roster renders the (date, optional shift) roster in the requested format.
func (s *ExportService) Roster(ctx context.Context, date, shiftID, format string) (*ExportResult, error) {
	assignments, err := s.assignments.ListByDate(ctx, date, shiftID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{Headers: rosterExportHeaders}
	for _, assignment := range assignments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":    assignment.ExamDate,
			"Shift":   strconv.Itoa(assignment.ShiftNumber),
			"Time":    assignment.ShiftTime,
			"Section": strconv.Itoa(assignment.SectionNumber),
			"Teacher": assignment.TeacherName,
		})
	}

	switch format {
	case ExportFormatCSV, "":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("observers-%s.csv", date),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(dataset, fmt.Sprintf("Observer Roster %s", date))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("observers-%s.pdf", date),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
