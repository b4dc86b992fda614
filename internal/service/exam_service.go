package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-observer-api/internal/models"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
)

type examRepository interface {
	List(ctx context.Context, filter models.ExamFilter) ([]models.ExamDetail, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
}

type examSubjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type examStageReader interface {
	FindByID(ctx context.Context, id string) (*models.Stage, error)
}

type examShiftReader interface {
	FindByID(ctx context.Context, id string) (*models.Shift, error)
}

// CreateExamRequest schedules a subject into a (date, shift) slot.
type CreateExamRequest struct {
	SubjectID string `json:"subject_id" validate:"required"`
	ShiftID   string `json:"shift_id" validate:"required"`
	ExamDate  string `json:"exam_date" validate:"required,datetime=2006-01-02"`
}

// ExamService coordinates exam scheduling. The exam's department, stage and
// evening flag are copied from the subject's links at creation time and never
// rewritten afterwards, so later stage edits cannot retroactively change
// which exams count as evening exams.
type ExamService struct {
	repo      examRepository
	subjects  examSubjectReader
	stages    examStageReader
	shifts    examShiftReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs ExamService.
func NewExamService(repo examRepository, subjects examSubjectReader, stages examStageReader, shifts examShiftReader, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{repo: repo, subjects: subjects, stages: stages, shifts: shifts, validator: validate, logger: logger}
}

// List returns exams with resolved display names.
func (s *ExamService) List(ctx context.Context, filter models.ExamFilter) ([]models.ExamDetail, error) {
	exams, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, nil
}

// Create schedules an exam, capturing the subject's department and stage and
// the stage's evening flag as snapshots.
func (s *ExamService) Create(ctx context.Context, req CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	stage, err := s.stages.FindByID(ctx, subject.StageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "stage not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stage")
	}
	if _, err := s.shifts.FindByID(ctx, req.ShiftID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "shift not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift")
	}

	exam := &models.Exam{
		SubjectID:    subject.ID,
		ShiftID:      req.ShiftID,
		ExamDate:     req.ExamDate,
		DepartmentID: subject.DepartmentID,
		StageID:      subject.StageID,
		IsEvening:    stage.IsEvening,
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	s.logger.Info("exam scheduled",
		zap.String("exam_id", exam.ID),
		zap.String("exam_date", exam.ExamDate),
		zap.Bool("is_evening", exam.IsEvening),
	)
	return exam, nil
}

// Delete removes a scheduled exam.
func (s *ExamService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam")
	}
	return nil
}
