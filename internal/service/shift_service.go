package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-observer-api/internal/models"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
)

type shiftRepository interface {
	List(ctx context.Context) ([]models.Shift, error)
	FindByID(ctx context.Context, id string) (*models.Shift, error)
	UpdateSectionsCount(ctx context.Context, id string, count int) error
}

type shiftSectionReader interface {
	ListByShift(ctx context.Context, shiftID string) ([]models.Section, error)
}

// UpdateShiftSectionsRequest changes a shift's active section count.
type UpdateShiftSectionsRequest struct {
	SectionsCount int `json:"sections_count" validate:"required,min=1"`
}

// ShiftService exposes the fixed shift catalogue and its section counts.
// Shifts themselves are seed data; only the section count is writable.
type ShiftService struct {
	repo      shiftRepository
	sections  shiftSectionReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewShiftService constructs ShiftService.
func NewShiftService(repo shiftRepository, sections shiftSectionReader, validate *validator.Validate, logger *zap.Logger) *ShiftService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShiftService{repo: repo, sections: sections, validator: validate, logger: logger}
}

// List returns the shift catalogue ordered by ordinal.
func (s *ShiftService) List(ctx context.Context) ([]models.Shift, error) {
	shifts, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shifts")
	}
	return shifts, nil
}

// Sections returns the provisioned sections of a shift.
func (s *ShiftService) Sections(ctx context.Context, shiftID string) ([]models.Section, error) {
	if _, err := s.repo.FindByID(ctx, shiftID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "shift not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift")
	}
	sections, err := s.sections.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, nil
}

// UpdateSectionsCount sets the number of active sections. Shrinking the count
// leaves existing section rows in place; they simply fall out of future
// allocation walks.
func (s *ShiftService) UpdateSectionsCount(ctx context.Context, id string, req UpdateShiftSectionsRequest) (*models.Shift, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift payload")
	}
	if err := s.repo.UpdateSectionsCount(ctx, id, req.SectionsCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "shift not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update shift")
	}
	shift, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift")
	}
	return shift, nil
}
