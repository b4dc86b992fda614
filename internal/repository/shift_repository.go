package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-observer-api/internal/models"
)

// ShiftRepository reads and tunes the fixed exam shift catalogue.
type ShiftRepository struct {
	db *sqlx.DB
}

// NewShiftRepository constructs a ShiftRepository.
func NewShiftRepository(db *sqlx.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// List returns all shifts ordered by ordinal.
func (r *ShiftRepository) List(ctx context.Context) ([]models.Shift, error) {
	var shifts []models.Shift
	if err := r.db.SelectContext(ctx, &shifts, `SELECT id, shift_number, shift_time, sections_count FROM shifts ORDER BY shift_number`); err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	return shifts, nil
}

// FindByID fetches a shift by ID.
func (r *ShiftRepository) FindByID(ctx context.Context, id string) (*models.Shift, error) {
	var shift models.Shift
	if err := r.db.GetContext(ctx, &shift, `SELECT id, shift_number, shift_time, sections_count FROM shifts WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &shift, nil
}

// FindByNumber fetches a shift by its ordinal.
func (r *ShiftRepository) FindByNumber(ctx context.Context, number int) (*models.Shift, error) {
	var shift models.Shift
	if err := r.db.GetContext(ctx, &shift, `SELECT id, shift_number, shift_time, sections_count FROM shifts WHERE shift_number = $1`, number); err != nil {
		return nil, err
	}
	return &shift, nil
}

// UpdateSectionsCount changes the number of active sections for a shift.
// Existing section rows are untouched; new ones are appended lazily at the
// next provisioning.
func (r *ShiftRepository) UpdateSectionsCount(ctx context.Context, id string, count int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE shifts SET sections_count = $1 WHERE id = $2`, count, id)
	if err != nil {
		return fmt.Errorf("update shift sections count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated shift rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
