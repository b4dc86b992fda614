package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-observer-api/internal/dto"
	"github.com/noah-isme/exam-observer-api/internal/models"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
)

type stubShiftReader struct {
	shifts map[string]*models.Shift
}

func (s *stubShiftReader) FindByID(ctx context.Context, id string) (*models.Shift, error) {
	shift, ok := s.shifts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return shift, nil
}

func (s *stubShiftReader) List(ctx context.Context) ([]models.Shift, error) {
	shifts := make([]models.Shift, 0, len(s.shifts))
	for _, shift := range s.shifts {
		shifts = append(shifts, *shift)
	}
	sort.Slice(shifts, func(i, j int) bool { return shifts[i].ShiftNumber < shifts[j].ShiftNumber })
	return shifts, nil
}

type stubExamCounter struct {
	count int
}

func (s *stubExamCounter) CountByDateShift(ctx context.Context, date, shiftID string) (int, error) {
	return s.count, nil
}

type stubSectionProvisioner struct {
	byNumber map[int]string
	required int
}

func (s *stubSectionProvisioner) EnsureSections(ctx context.Context, shiftID string, required int) (map[int]string, error) {
	s.required = required
	provisioned := make(map[int]string, required)
	for number := 1; number <= required; number++ {
		provisioned[number] = s.byNumber[number]
	}
	return provisioned, nil
}

type stubAssignmentStore struct {
	live            []models.Assignment
	created         []models.Assignment
	deletedAll      bool
	deletedSections []string
	createErr       error
	countsByShift   map[string]int
}

func (s *stubAssignmentStore) ListByDate(ctx context.Context, date, shiftID string) ([]models.AssignmentDetail, error) {
	details := make([]models.AssignmentDetail, 0, len(s.live))
	for _, a := range s.live {
		details = append(details, models.AssignmentDetail{Assignment: a})
	}
	return details, nil
}

func (s *stubAssignmentStore) ListByDateShift(ctx context.Context, date, shiftID string) ([]models.Assignment, error) {
	return s.live, nil
}

func (s *stubAssignmentStore) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error {
	if s.createErr != nil {
		return s.createErr
	}
	if assignment.ID == "" {
		assignment.ID = "assign-" + assignment.TeacherID
	}
	s.created = append(s.created, *assignment)
	return nil
}

func (s *stubAssignmentStore) DeleteByDateShift(ctx context.Context, exec sqlx.ExtContext, date, shiftID string) error {
	s.deletedAll = true
	return nil
}

func (s *stubAssignmentStore) DeleteBySection(ctx context.Context, exec sqlx.ExtContext, date, shiftID, sectionID string) error {
	s.deletedSections = append(s.deletedSections, sectionID)
	return nil
}

func (s *stubAssignmentStore) CountByDateShifts(ctx context.Context, date string, shiftIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(shiftIDs))
	for _, id := range shiftIDs {
		counts[id] = s.countsByShift[id]
	}
	return counts, nil
}

type stubHistoryAppender struct {
	records   []models.HistoryRecord
	createErr error
	removed   map[string]int
}

func (s *stubHistoryAppender) Create(ctx context.Context, exec sqlx.ExtContext, record *models.HistoryRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.records = append(s.records, *record)
	return nil
}

func (s *stubHistoryAppender) CountByDateShift(ctx context.Context, date, shiftID string, action models.HistoryAction) (int, error) {
	if action != models.HistoryActionRemoved {
		return 0, nil
	}
	return s.removed[shiftID], nil
}

type stubTeacherReader struct {
	byID map[string]*models.Teacher
}

func (s *stubTeacherReader) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return teacher, nil
}

type stubEligibilityProvider struct {
	teachers        []models.Teacher
	includeAssigned bool
}

func (s *stubEligibilityProvider) EligibleTeachers(ctx context.Context, date string, shift *models.Shift, includeAssigned bool) ([]models.Teacher, error) {
	s.includeAssigned = includeAssigned
	return s.teachers, nil
}

type stubRosterCache struct {
	invalidated []string
}

func (s *stubRosterCache) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (s *stubRosterCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (s *stubRosterCache) DeleteByPattern(ctx context.Context, pattern string) error {
	s.invalidated = append(s.invalidated, pattern)
	return nil
}

type stubAllocationRecorder struct {
	outcomes []string
}

func (s *stubAllocationRecorder) RecordAllocation(outcome string) {
	s.outcomes = append(s.outcomes, outcome)
}

type allocationFixture struct {
	svc      *AllocationService
	mock     sqlmock.Sqlmock
	store    *stubAssignmentStore
	history  *stubHistoryAppender
	sections *stubSectionProvisioner
	pool     *stubEligibilityProvider
	cache    *stubRosterCache
	recorder *stubAllocationRecorder
	cleanup  func()
}

func newAllocationFixture(t *testing.T, shift *models.Shift, eligible []models.Teacher) *allocationFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	byNumber := make(map[int]string)
	for number := 1; number <= 10; number++ {
		byNumber[number] = sectionID(number)
	}
	teachersByID := make(map[string]*models.Teacher)
	for i := range eligible {
		teachersByID[eligible[i].ID] = &eligible[i]
	}

	store := &stubAssignmentStore{}
	history := &stubHistoryAppender{}
	sections := &stubSectionProvisioner{byNumber: byNumber}
	pool := &stubEligibilityProvider{teachers: eligible}
	cache := &stubRosterCache{}
	recorder := &stubAllocationRecorder{}

	svc := NewAllocationService(
		&stubShiftReader{shifts: map[string]*models.Shift{shift.ID: shift}},
		&stubExamCounter{count: 3},
		sections,
		store,
		history,
		&stubTeacherReader{byID: teachersByID},
		pool,
		cache,
		recorder,
		sqlx.NewDb(db, "sqlmock"),
		nil,
		nil,
		defaultAllocationConfig(),
		time.Minute,
	)
	return &allocationFixture{
		svc:      svc,
		mock:     mock,
		store:    store,
		history:  history,
		sections: sections,
		pool:     pool,
		cache:    cache,
		recorder: recorder,
		cleanup:  func() { db.Close() },
	}
}

func sectionID(number int) string {
	return "section-" + strconv.Itoa(number)
}

func TestGenerateCapacityShortfall(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 3}
	f := newAllocationFixture(t, shift, teacherPool("t1", "t2", "t3", "t4", "t5"))
	defer f.cleanup()

	_, err := f.svc.Generate(context.Background(), dto.GenerateAssignmentsRequest{
		ExamDate: "2026-06-10", ShiftID: "shift-1",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrCapacityShortfall.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Needed: 6, Available: 5")
	assert.Empty(t, f.store.created)
	assert.Equal(t, []string{AllocationOutcomeShortfall}, f.recorder.outcomes)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGeneratePreviewDoesNotPersist(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 3}
	f := newAllocationFixture(t, shift, teacherPool("t1", "t2", "t3", "t4", "t5", "t6"))
	defer f.cleanup()

	resp, err := f.svc.Generate(context.Background(), dto.GenerateAssignmentsRequest{
		ExamDate: "2026-06-10", ShiftID: "shift-1", Preview: true,
	})
	require.NoError(t, err)
	assert.True(t, resp.Preview)
	require.Len(t, resp.Assignments, 6)

	// Sections are walked in ascending order with the full per-section quota,
	// and no teacher repeats while the pool covers the demand.
	seen := make(map[string]bool)
	for i, entry := range resp.Assignments {
		assert.Equal(t, i/2+1, entry.SectionNumber)
		assert.False(t, seen[entry.TeacherID], "teacher %s assigned twice", entry.TeacherID)
		seen[entry.TeacherID] = true
	}

	assert.False(t, f.pool.includeAssigned, "generation must exclude already-assigned teachers")
	assert.Empty(t, f.store.created)
	assert.Empty(t, f.history.records)
	assert.Empty(t, f.cache.invalidated)
	assert.Equal(t, []string{AllocationOutcomePreview}, f.recorder.outcomes)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateCommitsPlanWithHistory(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 2}
	f := newAllocationFixture(t, shift, teacherPool("t1", "t2", "t3", "t4"))
	defer f.cleanup()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.svc.Generate(context.Background(), dto.GenerateAssignmentsRequest{
		ExamDate: "2026-06-10", ShiftID: "shift-1",
	})
	require.NoError(t, err)
	assert.False(t, resp.Preview)

	assert.True(t, f.store.deletedAll)
	require.Len(t, f.store.created, 4)
	require.Len(t, f.history.records, 4)
	for i, record := range f.history.records {
		assert.Equal(t, models.HistoryActionAssigned, record.ActionType)
		assert.Equal(t, f.store.created[i].ID, record.AssignmentID)
	}
	assert.Equal(t, []string{"assignments:2026-06-10:*"}, f.cache.invalidated)
	assert.Equal(t, []string{AllocationOutcomeCommitted}, f.recorder.outcomes)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateRollsBackOnHistoryFailure(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 1}
	f := newAllocationFixture(t, shift, teacherPool("t1", "t2"))
	defer f.cleanup()
	f.history.createErr = errors.New("write failed")

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Generate(context.Background(), dto.GenerateAssignmentsRequest{
		ExamDate: "2026-06-10", ShiftID: "shift-1",
	})
	require.Error(t, err)
	assert.Empty(t, f.cache.invalidated)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateRequiresScheduledExams(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 2, SectionsCount: 1}
	f := newAllocationFixture(t, shift, teacherPool("t1", "t2"))
	defer f.cleanup()

	f.svc.exams = &stubExamCounter{count: 0}
	_, genErr := f.svc.Generate(context.Background(), dto.GenerateAssignmentsRequest{
		ExamDate: "2026-06-10", ShiftID: "shift-1",
	})
	require.Error(t, genErr)

	var appErr *appErrors.Error
	require.ErrorAs(t, genErr, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "shift 2")
}

func TestGenerateUnknownShift(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 1}
	f := newAllocationFixture(t, shift, teacherPool("t1", "t2"))
	defer f.cleanup()

	_, err := f.svc.Generate(context.Background(), dto.GenerateAssignmentsRequest{
		ExamDate: "2026-06-10", ShiftID: "missing",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCommitPlanPersistsVerbatim(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 2}
	f := newAllocationFixture(t, shift, teacherPool("t1", "t2"))
	defer f.cleanup()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.svc.CommitPlan(context.Background(), dto.CommitPlanRequest{
		ExamDate: "2026-06-10",
		ShiftID:  "shift-1",
		Assignments: []dto.PlanEntryRequest{
			{SectionNumber: 1, TeacherID: "t2"},
			{SectionNumber: 2, TeacherID: "t1"},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 2)
	assert.Equal(t, "t2", resp.Assignments[0].TeacherID)
	assert.Equal(t, "Teacher t2", resp.Assignments[0].TeacherName)

	require.Len(t, f.store.created, 2)
	assert.Equal(t, "t2", f.store.created[0].TeacherID)
	assert.Equal(t, "t1", f.store.created[1].TeacherID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCommitPlanRejectsOutOfRangeSection(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 2}
	f := newAllocationFixture(t, shift, teacherPool("t1", "t2"))
	defer f.cleanup()

	_, err := f.svc.CommitPlan(context.Background(), dto.CommitPlanRequest{
		ExamDate: "2026-06-10",
		ShiftID:  "shift-1",
		Assignments: []dto.PlanEntryRequest{
			{SectionNumber: 1, TeacherID: "t1"},
			{SectionNumber: 99, TeacherID: "t2"},
		},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "section 99 not found")

	// Only the shift's configured sections get provisioned; a bad plan entry
	// must never grow the shift.
	assert.Equal(t, 2, f.sections.required)
	assert.Empty(t, f.store.created)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCommitPlanUnknownTeacher(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 1}
	f := newAllocationFixture(t, shift, teacherPool("t1"))
	defer f.cleanup()

	_, err := f.svc.CommitPlan(context.Background(), dto.CommitPlanRequest{
		ExamDate: "2026-06-10",
		ShiftID:  "shift-1",
		Assignments: []dto.PlanEntryRequest{
			{SectionNumber: 1, TeacherID: "ghost"},
		},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Empty(t, f.store.created)
}

func TestClearWritesRemovalHistory(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 2}
	f := newAllocationFixture(t, shift, teacherPool("t1", "t2"))
	defer f.cleanup()
	f.store.live = []models.Assignment{
		{ID: "assign-1", ExamDate: "2026-06-10", ShiftID: "shift-1", SectionID: "section-1", TeacherID: "t1"},
		{ID: "assign-2", ExamDate: "2026-06-10", ShiftID: "shift-1", SectionID: "section-2", TeacherID: "t2"},
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	require.NoError(t, f.svc.Clear(context.Background(), dto.ClearAssignmentsRequest{
		ExamDate: "2026-06-10", ShiftID: "shift-1",
	}))

	require.Len(t, f.history.records, 2)
	for i, record := range f.history.records {
		assert.Equal(t, models.HistoryActionRemoved, record.ActionType)
		assert.Equal(t, f.store.live[i].ID, record.AssignmentID)
	}
	assert.True(t, f.store.deletedAll)
	assert.Equal(t, []string{AllocationOutcomeCleared}, f.recorder.outcomes)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplyManualUpdatesReplacesAndClears(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 2}
	f := newAllocationFixture(t, shift, teacherPool("t1", "t9"))
	defer f.cleanup()
	f.store.live = []models.Assignment{
		{ID: "assign-1", ExamDate: "2026-06-10", ShiftID: "shift-1", SectionID: sectionID(1), TeacherID: "t1"},
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	teacherID := "t9"
	require.NoError(t, f.svc.ApplyManualUpdates(context.Background(), dto.ManualUpdateRequest{
		ExamDate: "2026-06-10",
		ShiftID:  "shift-1",
		Updates: []dto.SectionUpdateItem{
			{SectionNumber: 1, TeacherID: nil},
			{SectionNumber: 2, TeacherID: &teacherID},
		},
	}))

	// Section 1's sitting observer is removed with history; section 2 gains a
	// new observer with an assigned record.
	assert.Equal(t, []string{sectionID(1), sectionID(2)}, f.store.deletedSections)
	require.Len(t, f.store.created, 1)
	assert.Equal(t, "t9", f.store.created[0].TeacherID)
	assert.Equal(t, sectionID(2), f.store.created[0].SectionID)

	require.Len(t, f.history.records, 2)
	assert.Equal(t, models.HistoryActionRemoved, f.history.records[0].ActionType)
	assert.Equal(t, "assign-1", f.history.records[0].AssignmentID)
	assert.Equal(t, models.HistoryActionAssigned, f.history.records[1].ActionType)
	assert.Equal(t, []string{AllocationOutcomeManual}, f.recorder.outcomes)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplyManualUpdatesRollsBackOnUnknownSection(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 2}
	f := newAllocationFixture(t, shift, teacherPool("t1"))
	defer f.cleanup()

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	teacherID := "t1"
	err := f.svc.ApplyManualUpdates(context.Background(), dto.ManualUpdateRequest{
		ExamDate: "2026-06-10",
		ShiftID:  "shift-1",
		Updates: []dto.SectionUpdateItem{
			{SectionNumber: 1, TeacherID: &teacherID},
			{SectionNumber: 99, TeacherID: &teacherID},
			{SectionNumber: 2, TeacherID: nil},
		},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "section 99 not found")

	// The bad update mid-batch voids the whole batch: sections stop at the
	// configured count, nothing is committed, no outcome is recorded.
	assert.Equal(t, 2, f.sections.required)
	assert.Empty(t, f.cache.invalidated)
	assert.Empty(t, f.recorder.outcomes)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplyManualUpdatesUnknownTeacher(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 1}
	f := newAllocationFixture(t, shift, teacherPool("t1"))
	defer f.cleanup()

	ghost := "ghost"
	err := f.svc.ApplyManualUpdates(context.Background(), dto.ManualUpdateRequest{
		ExamDate: "2026-06-10",
		ShiftID:  "shift-1",
		Updates:  []dto.SectionUpdateItem{{SectionNumber: 1, TeacherID: &ghost}},
	})
	require.Error(t, err)
	assert.Empty(t, f.store.created)
	assert.Empty(t, f.history.records)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestEligibleTeachersEndpointExcludesAssigned(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 1}
	f := newAllocationFixture(t, shift, teacherPool("t1", "t2"))
	defer f.cleanup()

	resp, err := f.svc.EligibleTeachers(context.Background(), "2026-06-10", "shift-1", false)
	require.NoError(t, err)
	assert.Len(t, resp.Teachers, 2)
	assert.False(t, f.pool.includeAssigned)
}

func TestEligibleTeachersEndpointCanIncludeAssigned(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 1}
	f := newAllocationFixture(t, shift, teacherPool("t1", "t2"))
	defer f.cleanup()

	_, err := f.svc.EligibleTeachers(context.Background(), "2026-06-10", "shift-1", true)
	require.NoError(t, err)
	assert.True(t, f.pool.includeAssigned)
}

func TestSummaryReportsCoveragePerShift(t *testing.T) {
	shift := &models.Shift{ID: "shift-1", ShiftNumber: 1, SectionsCount: 3}
	f := newAllocationFixture(t, shift, teacherPool("t1"))
	defer f.cleanup()
	f.store.countsByShift = map[string]int{"shift-1": 6}
	f.history.removed = map[string]int{"shift-1": 2}

	coverage, err := f.svc.Summary(context.Background(), "2026-06-10")
	require.NoError(t, err)
	require.Len(t, coverage, 1)
	assert.Equal(t, "shift-1", coverage[0].ShiftID)
	assert.Equal(t, 6, coverage[0].Required)
	assert.Equal(t, 6, coverage[0].Assigned)
	assert.Equal(t, 2, coverage[0].Removed)
	assert.True(t, coverage[0].Covered)

	f.store.countsByShift["shift-1"] = 4
	coverage, err = f.svc.Summary(context.Background(), "2026-06-10")
	require.NoError(t, err)
	require.Len(t, coverage, 1)
	assert.Equal(t, 4, coverage[0].Assigned)
	assert.False(t, coverage[0].Covered)
}
