package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-observer-api/internal/models"
)

// AssignmentRepository persists the live observer roster. Write methods take
// an sqlx.ExtContext so callers can route them through a transaction.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListByDate returns roster rows for a date, optionally narrowed to a shift,
// with resolved display fields.
func (r *AssignmentRepository) ListByDate(ctx context.Context, date, shiftID string) ([]models.AssignmentDetail, error) {
	base := `
SELECT oa.id, oa.exam_date::text AS exam_date, oa.shift_id, oa.section_id, oa.teacher_id, oa.created_at,
       t.full_name AS teacher_name, sh.shift_number, sh.shift_time, sec.section_number
FROM observer_assignments oa
JOIN teachers t ON t.id = oa.teacher_id
JOIN shifts sh ON sh.id = oa.shift_id
JOIN sections sec ON sec.id = oa.section_id
WHERE oa.exam_date = $1`
	args := []interface{}{date}

	query := base
	if shiftID != "" {
		query += fmt.Sprintf(" AND oa.shift_id = $%d", len(args)+1)
		args = append(args, shiftID)
	}
	query += " ORDER BY sh.shift_number, sec.section_number, t.full_name"

	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// ListByDateShift returns the bare live rows for a (date, shift).
func (r *AssignmentRepository) ListByDateShift(ctx context.Context, date, shiftID string) ([]models.Assignment, error) {
	const query = `SELECT id, exam_date::text AS exam_date, shift_id, section_id, teacher_id, created_at
FROM observer_assignments WHERE exam_date = $1 AND shift_id = $2`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, date, shiftID); err != nil {
		return nil, fmt.Errorf("list assignments by shift: %w", err)
	}
	return assignments, nil
}

// Create inserts a live assignment through the provided executor.
func (r *AssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO observer_assignments (id, exam_date, shift_id, section_id, teacher_id, created_at)
		VALUES (:id, :exam_date, :shift_id, :section_id, :teacher_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// DeleteByDateShift removes every live row for the (date, shift).
func (r *AssignmentRepository) DeleteByDateShift(ctx context.Context, exec sqlx.ExtContext, date, shiftID string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM observer_assignments WHERE exam_date = $1 AND shift_id = $2`, date, shiftID); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	return nil
}

// DeleteBySection removes the live row covering one section of a (date, shift).
func (r *AssignmentRepository) DeleteBySection(ctx context.Context, exec sqlx.ExtContext, date, shiftID, sectionID string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM observer_assignments WHERE exam_date = $1 AND shift_id = $2 AND section_id = $3`, date, shiftID, sectionID); err != nil {
		return fmt.Errorf("delete section assignment: %w", err)
	}
	return nil
}

// CountByDateShifts returns per-shift live row counts for a date, keyed by
// shift id. Used by roster summaries.
func (r *AssignmentRepository) CountByDateShifts(ctx context.Context, date string, shiftIDs []string) (map[string]int, error) {
	if len(shiftIDs) == 0 {
		return map[string]int{}, nil
	}
	placeholders := make([]string, len(shiftIDs))
	args := make([]interface{}, 0, len(shiftIDs)+1)
	args = append(args, date)
	for i, id := range shiftIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT shift_id, COUNT(*) AS count FROM observer_assignments WHERE exam_date = $1 AND shift_id IN (%s) GROUP BY shift_id`, strings.Join(placeholders, ", "))

	rows := []struct {
		ShiftID string `db:"shift_id"`
		Count   int    `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count assignments: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ShiftID] = row.Count
	}
	return counts, nil
}
