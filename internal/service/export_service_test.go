package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-observer-api/internal/models"
)

type stubRosterReader struct {
	details []models.AssignmentDetail
}

func (s *stubRosterReader) ListByDate(ctx context.Context, date, shiftID string) ([]models.AssignmentDetail, error) {
	return s.details, nil
}

func TestExportRosterCSV(t *testing.T) {
	reader := &stubRosterReader{details: []models.AssignmentDetail{
		{
			Assignment:    models.Assignment{ExamDate: "2026-06-10"},
			TeacherName:   "Teacher One",
			ShiftNumber:   1,
			ShiftTime:     "08:00 - 10:00",
			SectionNumber: 1,
		},
	}}
	svc := NewExportService(reader, nil)

	result, err := svc.Roster(context.Background(), "2026-06-10", "", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "observers-2026-06-10.csv", result.FileName)
	assert.Equal(t, "text/csv", result.ContentType)

	lines := strings.Split(strings.TrimSpace(string(result.Content)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Shift,Time,Section,Teacher", lines[0])
	assert.Contains(t, lines[1], "Teacher One")
}

func TestExportRosterPDF(t *testing.T) {
	svc := NewExportService(&stubRosterReader{}, nil)

	result, err := svc.Roster(context.Background(), "2026-06-10", "", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestExportRosterUnknownFormat(t *testing.T) {
	svc := NewExportService(&stubRosterReader{}, nil)

	_, err := svc.Roster(context.Background(), "2026-06-10", "", "xlsx")
	require.Error(t, err)
}
