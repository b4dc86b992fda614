package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-observer-api/internal/models"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
)

type stageRepository interface {
	List(ctx context.Context) ([]models.Stage, error)
	FindByID(ctx context.Context, id string) (*models.Stage, error)
	Create(ctx context.Context, stage *models.Stage) error
	Update(ctx context.Context, stage *models.Stage) error
	Delete(ctx context.Context, id string) error
}

// CreateStageRequest captures stage creation payload.
type CreateStageRequest struct {
	Name      string `json:"name" validate:"required"`
	IsEvening bool   `json:"is_evening"`
}

// UpdateStageRequest modifies stage fields. Flipping IsEvening never rewrites
// existing exam snapshots; only exams created afterwards see the new value.
type UpdateStageRequest struct {
	Name      string `json:"name" validate:"required"`
	IsEvening bool   `json:"is_evening"`
}

// StageService coordinates academic stage operations.
type StageService struct {
	repo      stageRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStageService constructs StageService.
func NewStageService(repo stageRepository, validate *validator.Validate, logger *zap.Logger) *StageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StageService{repo: repo, validator: validate, logger: logger}
}

// List returns all stages.
func (s *StageService) List(ctx context.Context) ([]models.Stage, error) {
	stages, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list stages")
	}
	return stages, nil
}

// Create adds a stage.
func (s *StageService) Create(ctx context.Context, req CreateStageRequest) (*models.Stage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stage payload")
	}
	stage := &models.Stage{Name: req.Name, IsEvening: req.IsEvening}
	if err := s.repo.Create(ctx, stage); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create stage")
	}
	return stage, nil
}

// Update modifies a stage.
func (s *StageService) Update(ctx context.Context, id string, req UpdateStageRequest) (*models.Stage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stage payload")
	}
	stage, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "stage not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stage")
	}
	stage.Name = req.Name
	stage.IsEvening = req.IsEvening
	if err := s.repo.Update(ctx, stage); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update stage")
	}
	return stage, nil
}

// Delete removes a stage.
func (s *StageService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "stage not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete stage")
	}
	return nil
}
