package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-observer-api/internal/models"
)

// StageRepository manages persistence for academic stages.
type StageRepository struct {
	db *sqlx.DB
}

// NewStageRepository constructs a StageRepository.
func NewStageRepository(db *sqlx.DB) *StageRepository {
	return &StageRepository{db: db}
}

// List returns all stages ordered by name.
func (r *StageRepository) List(ctx context.Context) ([]models.Stage, error) {
	var stages []models.Stage
	if err := r.db.SelectContext(ctx, &stages, `SELECT id, name, is_evening, created_at FROM stages ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return stages, nil
}

// FindByID fetches a stage by ID.
func (r *StageRepository) FindByID(ctx context.Context, id string) (*models.Stage, error) {
	var stage models.Stage
	if err := r.db.GetContext(ctx, &stage, `SELECT id, name, is_evening, created_at FROM stages WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &stage, nil
}

// Create inserts a new stage.
func (r *StageRepository) Create(ctx context.Context, stage *models.Stage) error {
	if stage.ID == "" {
		stage.ID = uuid.NewString()
	}
	stage.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO stages (id, name, is_evening, created_at) VALUES (:id, :name, :is_evening, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, stage); err != nil {
		return fmt.Errorf("create stage: %w", err)
	}
	return nil
}

// Update persists name and evening-flag changes.
func (r *StageRepository) Update(ctx context.Context, stage *models.Stage) error {
	const query = `UPDATE stages SET name = :name, is_evening = :is_evening WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, stage)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated stage rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a stage.
func (r *StageRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete stage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted stage rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
