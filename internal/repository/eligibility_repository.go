package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-observer-api/internal/models"
)

// EligibilityRepository answers the read-only questions behind the observer
// eligibility rules. Every query returns a set of teacher ids to subtract
// from the generally-available base pool.
type EligibilityRepository struct {
	db *sqlx.DB
}

// NewEligibilityRepository constructs an EligibilityRepository.
func NewEligibilityRepository(db *sqlx.DB) *EligibilityRepository {
	return &EligibilityRepository{db: db}
}

// ListAvailableTeachers returns the base pool: every teacher whose general
// availability flag is set, ordered by name.
func (r *EligibilityRepository) ListAvailableTeachers(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, full_name, available, created_at, updated_at FROM teachers WHERE available = TRUE ORDER BY full_name`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list available teachers: %w", err)
	}
	return teachers, nil
}

// TeachersExaminedInShift returns co-teachers of any subject with an exam in
// the exact (date, shift).
func (r *EligibilityRepository) TeachersExaminedInShift(ctx context.Context, date, shiftID string) ([]string, error) {
	const query = `
SELECT DISTINCT st.teacher_id
FROM exams e
JOIN subjects s ON s.id = e.subject_id
JOIN subject_teachers st ON st.subject_id = s.id
WHERE e.exam_date = $1 AND e.shift_id = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, date, shiftID); err != nil {
		return nil, fmt.Errorf("teachers examined in shift: %w", err)
	}
	return ids, nil
}

// CoTeachersOfSharedExams returns every co-teacher of subjects examined in
// the (date, shift) that have more than one assigned teacher.
func (r *EligibilityRepository) CoTeachersOfSharedExams(ctx context.Context, date, shiftID string) ([]string, error) {
	const query = `
SELECT DISTINCT st.teacher_id
FROM exams e
JOIN subjects s ON s.id = e.subject_id
JOIN subject_teachers st ON st.subject_id = s.id
WHERE e.exam_date = $1 AND e.shift_id = $2
AND (SELECT COUNT(*) FROM subject_teachers st2 WHERE st2.subject_id = s.id) > 1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, date, shiftID); err != nil {
		return nil, fmt.Errorf("co-teachers of shared exams: %w", err)
	}
	return ids, nil
}

// ManuallyExcluded returns teachers vetoed for the (date, shift).
func (r *EligibilityRepository) ManuallyExcluded(ctx context.Context, date, shiftID string) ([]string, error) {
	const query = `SELECT teacher_id FROM manual_exclusions WHERE exclusion_date = $1 AND shift_id = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, date, shiftID); err != nil {
		return nil, fmt.Errorf("manually excluded teachers: %w", err)
	}
	return ids, nil
}

// AlreadyAssigned returns teachers holding a live assignment for the
// (date, shift).
func (r *EligibilityRepository) AlreadyAssigned(ctx context.Context, date, shiftID string) ([]string, error) {
	const query = `SELECT DISTINCT teacher_id FROM observer_assignments WHERE exam_date = $1 AND shift_id = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, date, shiftID); err != nil {
		return nil, fmt.Errorf("already assigned teachers: %w", err)
	}
	return ids, nil
}

// TeachersWithEveningExam returns co-teachers of any subject with an
// evening-flagged exam anywhere on the date, regardless of shift.
func (r *EligibilityRepository) TeachersWithEveningExam(ctx context.Context, date string) ([]string, error) {
	const query = `
SELECT DISTINCT st.teacher_id
FROM exams e
JOIN subjects s ON s.id = e.subject_id
JOIN subject_teachers st ON st.subject_id = s.id
WHERE e.exam_date = $1 AND e.is_evening = TRUE`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, date); err != nil {
		return nil, fmt.Errorf("teachers with evening exam: %w", err)
	}
	return ids, nil
}
