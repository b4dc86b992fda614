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

// HistoryRepository appends to and reads the immutable assignment audit log.
// There is deliberately no update or delete method.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs a HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// List returns history entries with resolved display fields, newest first.
func (r *HistoryRepository) List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryDetail, error) {
	base := `
SELECT oh.id, oh.exam_date::text AS exam_date, oh.shift_id, oh.section_id, oh.teacher_id, oh.assignment_id, oh.action_type, oh.created_at,
       t.full_name AS teacher_name, sh.shift_number, sh.shift_time, sec.section_number
FROM observer_history oh
JOIN teachers t ON t.id = oh.teacher_id
JOIN shifts sh ON sh.id = oh.shift_id
JOIN sections sec ON sec.id = oh.section_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("oh.exam_date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if filter.ShiftID != "" {
		conditions = append(conditions, fmt.Sprintf("oh.shift_id = $%d", len(args)+1))
		args = append(args, filter.ShiftID)
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY oh.created_at DESC, sh.shift_number, sec.section_number"

	var history []models.HistoryDetail
	if err := r.db.SelectContext(ctx, &history, query, args...); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return history, nil
}

// Create appends one audit entry through the provided executor.
func (r *HistoryRepository) Create(ctx context.Context, exec sqlx.ExtContext, record *models.HistoryRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO observer_history (id, exam_date, shift_id, section_id, teacher_id, assignment_id, action_type, created_at)
		VALUES (:id, :exam_date, :shift_id, :section_id, :teacher_id, :assignment_id, :action_type, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, record); err != nil {
		return fmt.Errorf("create history record: %w", err)
	}
	return nil
}

// CountByDateShift reports audit entries per action type for a (date, shift).
func (r *HistoryRepository) CountByDateShift(ctx context.Context, date, shiftID string, action models.HistoryAction) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM observer_history WHERE exam_date = $1 AND shift_id = $2 AND action_type = $3`
	if err := r.db.GetContext(ctx, &count, query, date, shiftID, action); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}
