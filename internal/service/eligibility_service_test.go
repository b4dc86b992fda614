package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-observer-api/internal/models"
	"github.com/noah-isme/exam-observer-api/pkg/config"
)

type stubEligibilityReader struct {
	pool       []models.Teacher
	examined   map[string][]string
	coTeachers []string
	excluded   []string
	assigned   []string
	evening    []string
	eveningHit bool
}

func (s *stubEligibilityReader) ListAvailableTeachers(ctx context.Context) ([]models.Teacher, error) {
	return s.pool, nil
}

func (s *stubEligibilityReader) TeachersExaminedInShift(ctx context.Context, date, shiftID string) ([]string, error) {
	return s.examined[shiftID], nil
}

func (s *stubEligibilityReader) CoTeachersOfSharedExams(ctx context.Context, date, shiftID string) ([]string, error) {
	return s.coTeachers, nil
}

func (s *stubEligibilityReader) ManuallyExcluded(ctx context.Context, date, shiftID string) ([]string, error) {
	return s.excluded, nil
}

func (s *stubEligibilityReader) AlreadyAssigned(ctx context.Context, date, shiftID string) ([]string, error) {
	return s.assigned, nil
}

func (s *stubEligibilityReader) TeachersWithEveningExam(ctx context.Context, date string) ([]string, error) {
	s.eveningHit = true
	return s.evening, nil
}

type stubShiftOrdinalReader struct {
	byNumber map[int]*models.Shift
}

func (s *stubShiftOrdinalReader) FindByNumber(ctx context.Context, number int) (*models.Shift, error) {
	shift, ok := s.byNumber[number]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return shift, nil
}

func teacherPool(ids ...string) []models.Teacher {
	pool := make([]models.Teacher, 0, len(ids))
	for _, id := range ids {
		pool = append(pool, models.Teacher{ID: id, FullName: "Teacher " + id, Available: true})
	}
	return pool
}

func defaultAllocationConfig() config.AllocationConfig {
	return config.AllocationConfig{ObserversPerSection: 2, EveningShift: 5, MaxShift: 5}
}

func TestEligibleTeachersAppliesExclusionsInOrder(t *testing.T) {
	reader := &stubEligibilityReader{
		pool: teacherPool("t1", "t2", "t3", "t4", "t5", "t6"),
		examined: map[string][]string{
			"shift-2": {"t1"},
			"shift-3": {"t2"},
		},
		coTeachers: []string{"t3"},
		excluded:   []string{"t4"},
		assigned:   []string{"t5"},
	}
	shifts := &stubShiftOrdinalReader{byNumber: map[int]*models.Shift{
		3: {ID: "shift-3", ShiftNumber: 3},
	}}
	svc := NewEligibilityService(reader, shifts, defaultAllocationConfig(), nil)

	eligible, err := svc.EligibleTeachers(context.Background(), "2026-06-10", &models.Shift{ID: "shift-2", ShiftNumber: 2}, false)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "t6", eligible[0].ID)
	assert.False(t, reader.eveningHit, "evening blackout must not fire outside the evening shift")
}

func TestEligibleTeachersSkipsBufferBeyondMaxShift(t *testing.T) {
	reader := &stubEligibilityReader{
		pool: teacherPool("t1", "t2"),
		examined: map[string][]string{
			"shift-6": {"t1"},
		},
	}
	shifts := &stubShiftOrdinalReader{byNumber: map[int]*models.Shift{
		6: {ID: "shift-6", ShiftNumber: 6},
	}}
	svc := NewEligibilityService(reader, shifts, defaultAllocationConfig(), nil)

	// Shift 5 is the highest ordinal, so no next-shift buffer applies even
	// though a shift numbered 6 exists in the stub.
	eligible, err := svc.EligibleTeachers(context.Background(), "2026-06-10", &models.Shift{ID: "shift-5", ShiftNumber: 5}, false)
	require.NoError(t, err)
	assert.Len(t, eligible, 2)
}

func TestEligibleTeachersBufferToleratesOrdinalGap(t *testing.T) {
	reader := &stubEligibilityReader{pool: teacherPool("t1", "t2")}
	shifts := &stubShiftOrdinalReader{byNumber: map[int]*models.Shift{}}
	svc := NewEligibilityService(reader, shifts, defaultAllocationConfig(), nil)

	eligible, err := svc.EligibleTeachers(context.Background(), "2026-06-10", &models.Shift{ID: "shift-1", ShiftNumber: 1}, false)
	require.NoError(t, err)
	assert.Len(t, eligible, 2)
}

func TestEligibleTeachersEveningBlackout(t *testing.T) {
	reader := &stubEligibilityReader{
		pool:    teacherPool("t1", "t2", "t3"),
		evening: []string{"t2"},
	}
	shifts := &stubShiftOrdinalReader{byNumber: map[int]*models.Shift{}}
	svc := NewEligibilityService(reader, shifts, defaultAllocationConfig(), nil)

	eligible, err := svc.EligibleTeachers(context.Background(), "2026-06-10", &models.Shift{ID: "shift-5", ShiftNumber: 5}, false)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.True(t, reader.eveningHit)
	for _, teacher := range eligible {
		assert.NotEqual(t, "t2", teacher.ID)
	}
}

func TestEligibleTeachersIncludeAssignedKeepsCurrentRoster(t *testing.T) {
	reader := &stubEligibilityReader{
		pool:     teacherPool("t1", "t2"),
		assigned: []string{"t1"},
	}
	shifts := &stubShiftOrdinalReader{byNumber: map[int]*models.Shift{}}
	svc := NewEligibilityService(reader, shifts, defaultAllocationConfig(), nil)

	eligible, err := svc.EligibleTeachers(context.Background(), "2026-06-10", &models.Shift{ID: "shift-1", ShiftNumber: 1}, true)
	require.NoError(t, err)
	assert.Len(t, eligible, 2)
}
