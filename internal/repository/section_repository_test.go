package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionRepositoryEnsureSectionsAppends(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "shift_id", "section_number", "created_at"}).
		AddRow("section-1", "shift-1", 1, time.Now()).
		AddRow("section-2", "shift-1", 2, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, shift_id, section_number, created_at FROM sections WHERE shift_id = $1 ORDER BY section_number")).
		WithArgs("shift-1").
		WillReturnRows(rows)

	mock.ExpectExec("INSERT INTO sections").
		WithArgs(sqlmock.AnyArg(), "shift-1", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO sections").
		WithArgs(sqlmock.AnyArg(), "shift-1", 4, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	byNumber, err := repo.EnsureSections(context.Background(), "shift-1", 4)
	require.NoError(t, err)
	assert.Len(t, byNumber, 4)
	assert.Equal(t, "section-1", byNumber[1])
	assert.Equal(t, "section-2", byNumber[2])
	assert.NotEmpty(t, byNumber[3])
	assert.NotEmpty(t, byNumber[4])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryEnsureSectionsReadOnlyWhenSatisfied(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "shift_id", "section_number", "created_at"}).
		AddRow("section-1", "shift-1", 1, time.Now()).
		AddRow("section-2", "shift-1", 2, time.Now()).
		AddRow("section-3", "shift-1", 3, time.Now())
	mock.ExpectQuery("SELECT id, shift_id, section_number").
		WithArgs("shift-1").
		WillReturnRows(rows)

	byNumber, err := repo.EnsureSections(context.Background(), "shift-1", 2)
	require.NoError(t, err)
	assert.Len(t, byNumber, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}
