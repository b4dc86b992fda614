package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-observer-api/internal/dto"
	"github.com/noah-isme/exam-observer-api/internal/models"
	"github.com/noah-isme/exam-observer-api/pkg/config"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
)

// Allocation outcomes reported to the metrics counter.
const (
	AllocationOutcomePreview   = "preview"
	AllocationOutcomeCommitted = "committed"
	AllocationOutcomeShortfall = "shortfall"
	AllocationOutcomeCleared   = "cleared"
	AllocationOutcomeManual    = "manual"
)

type allocationShiftReader interface {
	FindByID(ctx context.Context, id string) (*models.Shift, error)
	List(ctx context.Context) ([]models.Shift, error)
}

type examCounter interface {
	CountByDateShift(ctx context.Context, date, shiftID string) (int, error)
}

type sectionProvisioner interface {
	EnsureSections(ctx context.Context, shiftID string, required int) (map[int]string, error)
}

type assignmentStore interface {
	ListByDate(ctx context.Context, date, shiftID string) ([]models.AssignmentDetail, error)
	ListByDateShift(ctx context.Context, date, shiftID string) ([]models.Assignment, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
	DeleteByDateShift(ctx context.Context, exec sqlx.ExtContext, date, shiftID string) error
	DeleteBySection(ctx context.Context, exec sqlx.ExtContext, date, shiftID, sectionID string) error
	CountByDateShifts(ctx context.Context, date string, shiftIDs []string) (map[string]int, error)
}

type historyAppender interface {
	Create(ctx context.Context, exec sqlx.ExtContext, record *models.HistoryRecord) error
	CountByDateShift(ctx context.Context, date, shiftID string, action models.HistoryAction) (int, error)
}

type allocationTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type eligibilityProvider interface {
	EligibleTeachers(ctx context.Context, date string, shift *models.Shift, includeAssigned bool) ([]models.Teacher, error)
}

type rosterCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type allocationRecorder interface {
	RecordAllocation(outcome string)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// AllocationService builds, previews, commits, clears and hand-corrects the
// observer roster of a (date, shift). All persistence for one engine call
// runs inside a single transaction; a preview performs the identical
// computation with the persistence step skipped.
type AllocationService struct {
	shifts      allocationShiftReader
	exams       examCounter
	sections    sectionProvisioner
	assignments assignmentStore
	history     historyAppender
	teachers    allocationTeacherReader
	eligibility eligibilityProvider
	cache       rosterCache
	metrics     allocationRecorder
	tx          txProvider
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         config.AllocationConfig
	cacheTTL    time.Duration
	rng         *rand.Rand
}

// NewAllocationService wires the allocation engine dependencies.
func NewAllocationService(
	shifts allocationShiftReader,
	exams examCounter,
	sections sectionProvisioner,
	assignments assignmentStore,
	history historyAppender,
	teachers allocationTeacherReader,
	eligibility eligibilityProvider,
	cache rosterCache,
	metrics allocationRecorder,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.AllocationConfig,
	cacheTTL time.Duration,
) *AllocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &AllocationService{
		shifts:      shifts,
		exams:       exams,
		sections:    sections,
		assignments: assignments,
		history:     history,
		teachers:    teachers,
		eligibility: eligibility,
		cache:       cache,
		metrics:     metrics,
		tx:          tx,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		cacheTTL:    cacheTTL,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate allocates observers across every section of the shift. With
// Preview set the computed plan is returned without touching the roster;
// otherwise the live set for the (date, shift) is replaced wholesale and an
// "assigned" history record is written per inserted row.
func (s *AllocationService) Generate(ctx context.Context, req dto.GenerateAssignmentsRequest) (*dto.AllocationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	shift, err := s.resolveShift(ctx, req.ShiftID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureExamsScheduled(ctx, req.ExamDate, shift); err != nil {
		return nil, err
	}

	eligible, err := s.eligibility.EligibleTeachers(ctx, req.ExamDate, shift, false)
	if err != nil {
		return nil, err
	}

	needed := shift.SectionsCount * s.cfg.ObserversPerSection
	if len(eligible) < needed {
		s.record(AllocationOutcomeShortfall)
		return nil, appErrors.Clone(appErrors.ErrCapacityShortfall,
			fmt.Sprintf("Not enough available teachers to cover all sections. Needed: %d, Available: %d", needed, len(eligible)))
	}

	sectionIDs, err := s.sections.EnsureSections(ctx, shift.ID, shift.SectionsCount)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "provision sections")
	}

	plan := s.buildPlan(shift.SectionsCount, sectionIDs, eligible)

	if req.Preview {
		s.record(AllocationOutcomePreview)
		return &dto.AllocationResponse{
			Message:     "Assignment preview generated",
			Preview:     true,
			Assignments: plan,
		}, nil
	}

	if err := s.replaceRoster(ctx, req.ExamDate, shift.ID, plan); err != nil {
		return nil, err
	}
	s.invalidateRoster(ctx, req.ExamDate)
	s.record(AllocationOutcomeCommitted)

	s.logger.Info("observer assignments generated",
		zap.String("exam_date", req.ExamDate),
		zap.Int("shift_number", shift.ShiftNumber),
		zap.Int("assignments", len(plan)),
	)
	return &dto.AllocationResponse{
		Message:     "Assignments generated successfully",
		Assignments: plan,
	}, nil
}

// CommitPlan persists a caller-reviewed plan verbatim. Teachers are resolved
// to verify they exist and to restore display names; eligibility is not
// re-checked so a plan accepted at preview time commits unchanged.
func (s *AllocationService) CommitPlan(ctx context.Context, req dto.CommitPlanRequest) (*dto.AllocationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan payload")
	}

	shift, err := s.resolveShift(ctx, req.ShiftID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureExamsScheduled(ctx, req.ExamDate, shift); err != nil {
		return nil, err
	}

	// Sections are provisioned only up to the shift's configured count; an
	// entry beyond it is a bad plan, not a request to grow the shift.
	sectionIDs, err := s.sections.EnsureSections(ctx, shift.ID, shift.SectionsCount)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "provision sections")
	}

	plan := make([]models.PlanEntry, 0, len(req.Assignments))
	for _, entry := range req.Assignments {
		if _, ok := sectionIDs[entry.SectionNumber]; !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %d not found", entry.SectionNumber))
		}
		teacher, err := s.teachers.FindByID(ctx, entry.TeacherID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %s not found", entry.TeacherID))
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "resolve teacher")
		}
		plan = append(plan, models.PlanEntry{
			SectionNumber: entry.SectionNumber,
			SectionID:     sectionIDs[entry.SectionNumber],
			TeacherID:     teacher.ID,
			TeacherName:   teacher.FullName,
		})
	}

	if err := s.replaceRoster(ctx, req.ExamDate, shift.ID, plan); err != nil {
		return nil, err
	}
	s.invalidateRoster(ctx, req.ExamDate)
	s.record(AllocationOutcomeCommitted)

	return &dto.AllocationResponse{
		Message:     "Assignments saved successfully",
		Assignments: plan,
	}, nil
}

// Clear removes every live assignment of the (date, shift), writing a
// "removed" history record per row before deletion so the audit trail stays
// complete even though the live rows disappear.
func (s *AllocationService) Clear(ctx context.Context, req dto.ClearAssignmentsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clear payload")
	}

	shift, err := s.resolveShift(ctx, req.ShiftID)
	if err != nil {
		return err
	}

	live, err := s.assignments.ListByDateShift(ctx, req.ExamDate, shift.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load live assignments")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, assignment := range live {
		record := &models.HistoryRecord{
			ExamDate:     assignment.ExamDate,
			ShiftID:      assignment.ShiftID,
			SectionID:    assignment.SectionID,
			TeacherID:    assignment.TeacherID,
			AssignmentID: assignment.ID,
			ActionType:   models.HistoryActionRemoved,
		}
		if err = s.history.Create(ctx, tx, record); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "record removal")
		}
	}
	if err = s.assignments.DeleteByDateShift(ctx, tx, req.ExamDate, shift.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "clear assignments")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit transaction")
	}

	s.invalidateRoster(ctx, req.ExamDate)
	s.record(AllocationOutcomeCleared)
	s.logger.Info("observer assignments cleared",
		zap.String("exam_date", req.ExamDate),
		zap.Int("shift_number", shift.ShiftNumber),
		zap.Int("removed", len(live)),
	)
	return nil
}

// ApplyManualUpdates replaces or clears single-section observers as one
// all-or-nothing batch. Eligibility rules are deliberately bypassed; the
// caller owns the consequences of a manual override.
func (s *AllocationService) ApplyManualUpdates(ctx context.Context, req dto.ManualUpdateRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid manual update payload")
	}

	shift, err := s.resolveShift(ctx, req.ShiftID)
	if err != nil {
		return err
	}

	for _, item := range req.Updates {
		if item.TeacherID != nil {
			if _, err := s.teachers.FindByID(ctx, *item.TeacherID); errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %s not found", *item.TeacherID))
			} else if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "resolve teacher")
			}
		}
	}

	// Updates may only target sections within the shift's configured count;
	// the lookup miss below rejects anything past it.
	sectionIDs, err := s.sections.EnsureSections(ctx, shift.ID, shift.SectionsCount)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "provision sections")
	}

	live, err := s.assignments.ListByDateShift(ctx, req.ExamDate, shift.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load live assignments")
	}
	liveBySection := make(map[string][]models.Assignment, len(live))
	for _, assignment := range live {
		liveBySection[assignment.SectionID] = append(liveBySection[assignment.SectionID], assignment)
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, item := range req.Updates {
		sectionID, ok := sectionIDs[item.SectionNumber]
		if !ok {
			err = appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %d not found", item.SectionNumber))
			return err
		}

		for _, replaced := range liveBySection[sectionID] {
			record := &models.HistoryRecord{
				ExamDate:     replaced.ExamDate,
				ShiftID:      replaced.ShiftID,
				SectionID:    replaced.SectionID,
				TeacherID:    replaced.TeacherID,
				AssignmentID: replaced.ID,
				ActionType:   models.HistoryActionRemoved,
			}
			if err = s.history.Create(ctx, tx, record); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "record removal")
			}
		}
		if err = s.assignments.DeleteBySection(ctx, tx, req.ExamDate, shift.ID, sectionID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "clear section")
		}

		if item.TeacherID == nil {
			continue
		}
		assignment := &models.Assignment{
			ExamDate:  req.ExamDate,
			ShiftID:   shift.ID,
			SectionID: sectionID,
			TeacherID: *item.TeacherID,
		}
		if err = s.assignments.Create(ctx, tx, assignment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create assignment")
		}
		record := &models.HistoryRecord{
			ExamDate:     assignment.ExamDate,
			ShiftID:      assignment.ShiftID,
			SectionID:    assignment.SectionID,
			TeacherID:    assignment.TeacherID,
			AssignmentID: assignment.ID,
			ActionType:   models.HistoryActionAssigned,
		}
		if err = s.history.Create(ctx, tx, record); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "record assignment")
		}
	}

	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit transaction")
	}

	s.invalidateRoster(ctx, req.ExamDate)
	s.record(AllocationOutcomeManual)
	return nil
}

// ListAssignments returns the roster for a date, optionally narrowed to one
// shift, serving from the cache when a fresh entry exists.
func (s *AllocationService) ListAssignments(ctx context.Context, date, shiftID string) ([]models.AssignmentDetail, error) {
	key := rosterCacheKey(date, shiftID)
	if s.cache != nil {
		var cached []models.AssignmentDetail
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	assignments, err := s.assignments.ListByDate(ctx, date, shiftID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list assignments")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, assignments, s.cacheTTL); err != nil {
			s.logger.Warn("roster cache write failed", zap.Error(err))
		}
	}
	return assignments, nil
}

// EligibleTeachers lists the teachers who could be assigned to the
// (date, shift) right now. With includeAssigned the already-assigned rule is
// skipped, which edit views use to show the sitting observers as candidates.
func (s *AllocationService) EligibleTeachers(ctx context.Context, date, shiftID string, includeAssigned bool) (*dto.EligibleTeachersResponse, error) {
	shift, err := s.resolveShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	teachers, err := s.eligibility.EligibleTeachers(ctx, date, shift, includeAssigned)
	if err != nil {
		return nil, err
	}
	return &dto.EligibleTeachersResponse{ExamDate: date, ShiftID: shift.ID, Teachers: teachers}, nil
}

// Summary reports per-shift roster coverage for a date: how many observer
// slots each shift requires, how many are filled and how many rows the clear
// path has removed. A shift is covered once its assigned count reaches the
// required slot count.
func (s *AllocationService) Summary(ctx context.Context, date string) ([]dto.ShiftCoverage, error) {
	shifts, err := s.shifts.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list shifts")
	}

	shiftIDs := make([]string, 0, len(shifts))
	for _, shift := range shifts {
		shiftIDs = append(shiftIDs, shift.ID)
	}
	assigned, err := s.assignments.CountByDateShifts(ctx, date, shiftIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "count assignments")
	}

	coverage := make([]dto.ShiftCoverage, 0, len(shifts))
	for _, shift := range shifts {
		removed, err := s.history.CountByDateShift(ctx, date, shift.ID, models.HistoryActionRemoved)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "count removals")
		}
		required := shift.SectionsCount * s.cfg.ObserversPerSection
		coverage = append(coverage, dto.ShiftCoverage{
			ShiftID:       shift.ID,
			ShiftNumber:   shift.ShiftNumber,
			ShiftTime:     shift.ShiftTime,
			SectionsCount: shift.SectionsCount,
			Required:      required,
			Assigned:      assigned[shift.ID],
			Removed:       removed,
			Covered:       assigned[shift.ID] >= required,
		})
	}
	return coverage, nil
}

// buildPlan deals a freshly shuffled candidate list across sections in
// ascending order, observer quota per section. The modulo wrap can only
// reuse a teacher if the capacity gate was bypassed, but it keeps the walk
// total even then.
func (s *AllocationService) buildPlan(sectionsCount int, sectionIDs map[int]string, eligible []models.Teacher) []models.PlanEntry {
	shuffled := make([]models.Teacher, len(eligible))
	copy(shuffled, eligible)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	plan := make([]models.PlanEntry, 0, sectionsCount*s.cfg.ObserversPerSection)
	next := 0
	for number := 1; number <= sectionsCount; number++ {
		for slot := 0; slot < s.cfg.ObserversPerSection; slot++ {
			teacher := shuffled[next%len(shuffled)]
			next++
			plan = append(plan, models.PlanEntry{
				SectionNumber: number,
				SectionID:     sectionIDs[number],
				TeacherID:     teacher.ID,
				TeacherName:   teacher.FullName,
			})
		}
	}
	return plan
}

// replaceRoster wholesale-replaces the live set for the (date, shift) and
// appends an "assigned" history record per new row, all in one transaction.
func (s *AllocationService) replaceRoster(ctx context.Context, date, shiftID string, plan []models.PlanEntry) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.assignments.DeleteByDateShift(ctx, tx, date, shiftID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "replace assignments")
	}
	for _, entry := range plan {
		assignment := &models.Assignment{
			ExamDate:  date,
			ShiftID:   shiftID,
			SectionID: entry.SectionID,
			TeacherID: entry.TeacherID,
		}
		if err = s.assignments.Create(ctx, tx, assignment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create assignment")
		}
		record := &models.HistoryRecord{
			ExamDate:     date,
			ShiftID:      shiftID,
			SectionID:    entry.SectionID,
			TeacherID:    entry.TeacherID,
			AssignmentID: assignment.ID,
			ActionType:   models.HistoryActionAssigned,
		}
		if err = s.history.Create(ctx, tx, record); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "record assignment")
		}
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit transaction")
	}
	return nil
}

func (s *AllocationService) resolveShift(ctx context.Context, shiftID string) (*models.Shift, error) {
	shift, err := s.shifts.FindByID(ctx, shiftID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "shift not found")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "resolve shift")
	}
	return shift, nil
}

func (s *AllocationService) ensureExamsScheduled(ctx context.Context, date string, shift *models.Shift) error {
	count, err := s.exams.CountByDateShift(ctx, date, shift.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "count exams")
	}
	if count == 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("no exams scheduled for shift %d on %s", shift.ShiftNumber, date))
	}
	return nil
}

func (s *AllocationService) invalidateRoster(ctx context.Context, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("assignments:%s:*", date)); err != nil {
		s.logger.Warn("roster cache invalidation failed", zap.Error(err))
	}
}

func (s *AllocationService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAllocation(outcome)
	}
}

func rosterCacheKey(date, shiftID string) string {
	if shiftID == "" {
		return fmt.Sprintf("assignments:%s:all", date)
	}
	return fmt.Sprintf("assignments:%s:%s", date, shiftID)
}
