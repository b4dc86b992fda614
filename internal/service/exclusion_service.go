package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-observer-api/internal/models"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
)

type exclusionRepository interface {
	List(ctx context.Context, filter models.ManualExclusionFilter) ([]models.ManualExclusionDetail, error)
	Create(ctx context.Context, exclusion *models.ManualExclusion) error
	Delete(ctx context.Context, id string) error
}

// CreateExclusionRequest vetoes a teacher for a (date, shift).
type CreateExclusionRequest struct {
	TeacherID     string `json:"teacher_id" validate:"required"`
	ExclusionDate string `json:"exclusion_date" validate:"required,datetime=2006-01-02"`
	ShiftID       string `json:"shift_id" validate:"required"`
	Reason        string `json:"reason"`
}

// ExclusionService manages administrator vetoes. An exclusion only affects
// future eligibility; existing live assignments for the slot stay untouched
// until the roster is regenerated or corrected manually.
type ExclusionService struct {
	repo      exclusionRepository
	teachers  allocationTeacherReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExclusionService constructs ExclusionService.
func NewExclusionService(repo exclusionRepository, teachers allocationTeacherReader, validate *validator.Validate, logger *zap.Logger) *ExclusionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExclusionService{repo: repo, teachers: teachers, validator: validate, logger: logger}
}

// List returns exclusions with display fields, optionally filtered.
func (s *ExclusionService) List(ctx context.Context, filter models.ManualExclusionFilter) ([]models.ManualExclusionDetail, error) {
	exclusions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exclusions")
	}
	return exclusions, nil
}

// Create records a veto. CreatedBy is the acting user's id from the request
// context.
func (s *ExclusionService) Create(ctx context.Context, req CreateExclusionRequest, createdBy string) (*models.ManualExclusion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exclusion payload")
	}
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	exclusion := &models.ManualExclusion{
		TeacherID:     req.TeacherID,
		ExclusionDate: req.ExclusionDate,
		ShiftID:       req.ShiftID,
		Reason:        req.Reason,
		CreatedBy:     createdBy,
	}
	if err := s.repo.Create(ctx, exclusion); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exclusion")
	}
	s.logger.Info("manual exclusion recorded",
		zap.String("teacher_id", exclusion.TeacherID),
		zap.String("exclusion_date", exclusion.ExclusionDate),
	)
	return exclusion, nil
}

// Delete lifts a veto.
func (s *ExclusionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "exclusion not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exclusion")
	}
	return nil
}
