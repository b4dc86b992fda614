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

// SubjectRepository manages persistence for subjects and their co-teacher links.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects with resolved department and stage names.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, error) {
	base := `
SELECT s.id, s.name, s.department_id, s.stage_id, s.created_at, s.updated_at,
       d.name AS department_name, st.name AS stage_name
FROM subjects s
JOIN departments d ON d.id = s.department_id
JOIN stages st ON st.id = s.stage_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("s.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.StageID != "" {
		conditions = append(conditions, fmt.Sprintf("s.stage_id = $%d", len(args)+1))
		args = append(args, filter.StageID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY s.name"

	var subjects []models.SubjectDetail
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID fetches a subject by ID.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, name, department_id, stage_id, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create inserts a new subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now
	const query = `INSERT INTO subjects (id, name, department_id, stage_id, created_at, updated_at)
		VALUES (:id, :name, :department_id, :stage_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update persists subject changes.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, department_id = :department_id, stage_id = :stage_id, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated subject rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a subject.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted subject rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReplaceTeachers rewrites the subject's co-teacher links.
func (r *SubjectRepository) ReplaceTeachers(ctx context.Context, subjectID string, teacherIDs []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subject_teachers WHERE subject_id = $1`, subjectID); err != nil {
		return fmt.Errorf("clear subject teachers: %w", err)
	}
	for _, teacherID := range teacherIDs {
		if _, err := r.db.ExecContext(ctx, `INSERT INTO subject_teachers (subject_id, teacher_id) VALUES ($1, $2)`, subjectID, teacherID); err != nil {
			return fmt.Errorf("link subject teacher: %w", err)
		}
	}
	return nil
}

// ListTeachers returns the co-teachers of a subject.
func (r *SubjectRepository) ListTeachers(ctx context.Context, subjectID string) ([]models.Teacher, error) {
	const query = `
SELECT t.id, t.full_name, t.available, t.created_at, t.updated_at
FROM teachers t
JOIN subject_teachers st ON st.teacher_id = t.id
WHERE st.subject_id = $1
ORDER BY t.full_name`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, subjectID); err != nil {
		return nil, fmt.Errorf("list subject teachers: %w", err)
	}
	return teachers, nil
}
