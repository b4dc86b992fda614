package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibilityRepositoryListAvailableTeachers(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewEligibilityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "available", "created_at", "updated_at"}).
		AddRow("teacher-1", "Teacher One", true, time.Now(), time.Now()).
		AddRow("teacher-2", "Teacher Two", true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, full_name, available").WillReturnRows(rows)

	teachers, err := repo.ListAvailableTeachers(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Equal(t, "Teacher One", teachers[0].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEligibilityRepositoryTeachersExaminedInShift(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewEligibilityRepository(db)

	rows := sqlmock.NewRows([]string{"teacher_id"}).AddRow("teacher-1").AddRow("teacher-3")
	mock.ExpectQuery("SELECT DISTINCT st.teacher_id").
		WithArgs("2026-06-10", "shift-2").
		WillReturnRows(rows)

	ids, err := repo.TeachersExaminedInShift(context.Background(), "2026-06-10", "shift-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher-1", "teacher-3"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEligibilityRepositoryTeachersWithEveningExam(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewEligibilityRepository(db)

	rows := sqlmock.NewRows([]string{"teacher_id"}).AddRow("teacher-9")
	mock.ExpectQuery("SELECT DISTINCT st.teacher_id").
		WithArgs("2026-06-10").
		WillReturnRows(rows)

	ids, err := repo.TeachersWithEveningExam(context.Background(), "2026-06-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher-9"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
