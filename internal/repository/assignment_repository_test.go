package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-observer-api/internal/models"
)

func newRepositoryMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssignmentRepositoryListByDate(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "exam_date", "shift_id", "section_id", "teacher_id", "created_at", "teacher_name", "shift_number", "shift_time", "section_number"}).
		AddRow("assign-1", "2026-06-10", "shift-1", "section-1", "teacher-1", time.Now(), "Teacher One", 1, "08:00 - 10:00", 1)
	mock.ExpectQuery("SELECT oa.id, oa.exam_date").
		WithArgs("2026-06-10", "shift-1").
		WillReturnRows(rows)

	assignments, err := repo.ListByDate(context.Background(), "2026-06-10", "shift-1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "Teacher One", assignments[0].TeacherName)
	assert.Equal(t, 1, assignments[0].SectionNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateAndDelete(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO observer_assignments").
		WithArgs(sqlmock.AnyArg(), "2026-06-10", "shift-1", "section-1", "teacher-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignment := &models.Assignment{
		ExamDate:  "2026-06-10",
		ShiftID:   "shift-1",
		SectionID: "section-1",
		TeacherID: "teacher-1",
	}
	require.NoError(t, repo.Create(context.Background(), db, assignment))
	assert.NotEmpty(t, assignment.ID)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM observer_assignments WHERE exam_date = $1 AND shift_id = $2")).
		WithArgs("2026-06-10", "shift-1").
		WillReturnResult(sqlmock.NewResult(0, 10))

	require.NoError(t, repo.DeleteByDateShift(context.Background(), db, "2026-06-10", "shift-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDeleteBySection(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM observer_assignments WHERE exam_date = $1 AND shift_id = $2 AND section_id = $3")).
		WithArgs("2026-06-10", "shift-1", "section-3").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteBySection(context.Background(), db, "2026-06-10", "shift-1", "section-3"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCountByDateShifts(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"shift_id", "count"}).
		AddRow("shift-1", 6).
		AddRow("shift-2", 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT shift_id, COUNT(*) AS count FROM observer_assignments WHERE exam_date = $1 AND shift_id IN ($2, $3) GROUP BY shift_id")).
		WithArgs("2026-06-10", "shift-1", "shift-2").
		WillReturnRows(rows)

	counts, err := repo.CountByDateShifts(context.Background(), "2026-06-10", []string{"shift-1", "shift-2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"shift-1": 6, "shift-2": 2}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCountByDateShiftsEmpty(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	counts, err := repo.CountByDateShifts(context.Background(), "2026-06-10", nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepositoryCountByDateShift(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewHistoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM observer_history WHERE exam_date = $1 AND shift_id = $2 AND action_type = $3")).
		WithArgs("2026-06-10", "shift-1", models.HistoryActionRemoved).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByDateShift(context.Background(), "2026-06-10", "shift-1", models.HistoryActionRemoved)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
