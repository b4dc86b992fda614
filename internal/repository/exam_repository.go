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

// ExamRepository manages persistence for scheduled exams.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs an ExamRepository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// List returns exams with resolved display names.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.ExamDetail, error) {
	base := `
SELECT e.id, e.subject_id, e.shift_id, e.exam_date::text AS exam_date, e.department_id, e.stage_id, e.is_evening, e.created_at,
       s.name AS subject_name, d.name AS department_name, st.name AS stage_name,
       sh.shift_number, sh.shift_time
FROM exams e
JOIN subjects s ON s.id = e.subject_id
JOIN departments d ON d.id = e.department_id
JOIN stages st ON st.id = e.stage_id
JOIN shifts sh ON sh.id = e.shift_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("e.exam_date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if filter.ShiftID != "" {
		conditions = append(conditions, fmt.Sprintf("e.shift_id = $%d", len(args)+1))
		args = append(args, filter.ShiftID)
	}
	if filter.StageID != "" {
		conditions = append(conditions, fmt.Sprintf("e.stage_id = $%d", len(args)+1))
		args = append(args, filter.StageID)
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.exam_date, sh.shift_number, s.name"

	var exams []models.ExamDetail
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// FindByID fetches an exam by ID.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT id, subject_id, shift_id, exam_date::text AS exam_date, department_id, stage_id, is_evening, created_at FROM exams WHERE id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// Create inserts a new exam with its denormalized snapshot columns.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	exam.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO exams (id, subject_id, shift_id, exam_date, department_id, stage_id, is_evening, created_at)
		VALUES (:id, :subject_id, :shift_id, :exam_date, :department_id, :stage_id, :is_evening, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// Delete removes an exam.
func (r *ExamRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted exam rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByDateShift reports how many exams are scheduled for the (date, shift).
func (r *ExamRepository) CountByDateShift(ctx context.Context, date, shiftID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM exams WHERE exam_date = $1 AND shift_id = $2`, date, shiftID); err != nil {
		return 0, fmt.Errorf("count exams: %w", err)
	}
	return count, nil
}
