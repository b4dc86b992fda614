package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-observer-api/internal/models"
)

// ExclusionRepository manages administrator vetoes of teachers per (date, shift).
type ExclusionRepository struct {
	db *sqlx.DB
}

// NewExclusionRepository constructs an ExclusionRepository.
func NewExclusionRepository(db *sqlx.DB) *ExclusionRepository {
	return &ExclusionRepository{db: db}
}

// List returns exclusions with resolved display names.
func (r *ExclusionRepository) List(ctx context.Context, filter models.ManualExclusionFilter) ([]models.ManualExclusionDetail, error) {
	base := `
SELECT me.id, me.teacher_id, me.exclusion_date::text AS exclusion_date, me.shift_id, me.reason, me.created_by, me.created_at,
       t.full_name AS teacher_name, sh.shift_number, sh.shift_time
FROM manual_exclusions me
JOIN teachers t ON t.id = me.teacher_id
JOIN shifts sh ON sh.id = me.shift_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("me.exclusion_date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if filter.ShiftID != "" {
		conditions = append(conditions, fmt.Sprintf("me.shift_id = $%d", len(args)+1))
		args = append(args, filter.ShiftID)
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY me.exclusion_date, sh.shift_number, t.full_name"

	var exclusions []models.ManualExclusionDetail
	if err := r.db.SelectContext(ctx, &exclusions, query, args...); err != nil {
		return nil, fmt.Errorf("list manual exclusions: %w", err)
	}
	return exclusions, nil
}

// Create inserts a new exclusion.
func (r *ExclusionRepository) Create(ctx context.Context, exclusion *models.ManualExclusion) error {
	if exclusion.ID == "" {
		exclusion.ID = uuid.NewString()
	}
	exclusion.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO manual_exclusions (id, teacher_id, exclusion_date, shift_id, reason, created_by, created_at)
		VALUES (:id, :teacher_id, :exclusion_date, :shift_id, :reason, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exclusion); err != nil {
		return fmt.Errorf("create manual exclusion: %w", err)
	}
	return nil
}

// Delete removes an exclusion.
func (r *ExclusionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM manual_exclusions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete manual exclusion: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted exclusion rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
