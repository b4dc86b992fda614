package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-observer-api/internal/models"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
)

type stubExamRepo struct {
	created *models.Exam
}

func (s *stubExamRepo) List(ctx context.Context, filter models.ExamFilter) ([]models.ExamDetail, error) {
	return nil, nil
}

func (s *stubExamRepo) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	return nil, sql.ErrNoRows
}

func (s *stubExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	exam.ID = "exam-1"
	s.created = exam
	return nil
}

func (s *stubExamRepo) Delete(ctx context.Context, id string) error {
	return nil
}

type stubSubjectReader struct {
	subject *models.Subject
}

func (s *stubSubjectReader) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s.subject == nil || s.subject.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.subject, nil
}

type stubStageReader struct {
	stage *models.Stage
}

func (s *stubStageReader) FindByID(ctx context.Context, id string) (*models.Stage, error) {
	if s.stage == nil || s.stage.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.stage, nil
}

func TestExamCreateCapturesSnapshots(t *testing.T) {
	repo := &stubExamRepo{}
	svc := NewExamService(
		repo,
		&stubSubjectReader{subject: &models.Subject{ID: "subject-1", DepartmentID: "dept-1", StageID: "stage-1"}},
		&stubStageReader{stage: &models.Stage{ID: "stage-1", IsEvening: true}},
		&stubShiftReader{shifts: map[string]*models.Shift{"shift-1": {ID: "shift-1", ShiftNumber: 1}}},
		nil, nil,
	)

	exam, err := svc.Create(context.Background(), CreateExamRequest{
		SubjectID: "subject-1",
		ShiftID:   "shift-1",
		ExamDate:  "2026-06-10",
	})
	require.NoError(t, err)
	assert.Equal(t, "dept-1", exam.DepartmentID)
	assert.Equal(t, "stage-1", exam.StageID)
	assert.True(t, exam.IsEvening)
	require.NotNil(t, repo.created)
}

func TestExamCreateUnknownSubject(t *testing.T) {
	svc := NewExamService(
		&stubExamRepo{},
		&stubSubjectReader{},
		&stubStageReader{},
		&stubShiftReader{shifts: map[string]*models.Shift{}},
		nil, nil,
	)

	_, err := svc.Create(context.Background(), CreateExamRequest{
		SubjectID: "ghost",
		ShiftID:   "shift-1",
		ExamDate:  "2026-06-10",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestExamCreateRejectsBadDate(t *testing.T) {
	svc := NewExamService(
		&stubExamRepo{},
		&stubSubjectReader{},
		&stubStageReader{},
		&stubShiftReader{shifts: map[string]*models.Shift{}},
		nil, nil,
	)

	_, err := svc.Create(context.Background(), CreateExamRequest{
		SubjectID: "subject-1",
		ShiftID:   "shift-1",
		ExamDate:  "10/06/2026",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
