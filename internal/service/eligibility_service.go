package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-observer-api/internal/models"
	"github.com/noah-isme/exam-observer-api/pkg/config"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
)

type eligibilityReader interface {
	ListAvailableTeachers(ctx context.Context) ([]models.Teacher, error)
	TeachersExaminedInShift(ctx context.Context, date, shiftID string) ([]string, error)
	CoTeachersOfSharedExams(ctx context.Context, date, shiftID string) ([]string, error)
	ManuallyExcluded(ctx context.Context, date, shiftID string) ([]string, error)
	AlreadyAssigned(ctx context.Context, date, shiftID string) ([]string, error)
	TeachersWithEveningExam(ctx context.Context, date string) ([]string, error)
}

type shiftOrdinalReader interface {
	FindByNumber(ctx context.Context, number int) (*models.Shift, error)
}

// EligibilityService computes which teachers may observe a (date, shift).
// Exclusion rules are applied as ordered set differences over the base pool;
// each rule only ever removes candidates, so rule order never changes the
// final set, only which rule gets credit for a removal.
type EligibilityService struct {
	pool   eligibilityReader
	shifts shiftOrdinalReader
	cfg    config.AllocationConfig
	logger *zap.Logger
}

// NewEligibilityService wires the eligibility rule dependencies.
func NewEligibilityService(pool eligibilityReader, shifts shiftOrdinalReader, cfg config.AllocationConfig, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{pool: pool, shifts: shifts, cfg: cfg, logger: logger}
}

// EligibleTeachers returns every teacher who survives all exclusion rules for
// the (date, shift), preserving the base pool's name ordering. When
// includeAssigned is set, teachers already holding a live assignment for the
// slot are kept; regeneration uses this so the current roster can be redealt.
func (s *EligibilityService) EligibleTeachers(ctx context.Context, date string, shift *models.Shift, includeAssigned bool) ([]models.Teacher, error) {
	pool, err := s.pool.ListAvailableTeachers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load available teachers")
	}

	excluded := make(map[string]struct{})
	collect := func(ids []string) {
		for _, id := range ids {
			excluded[id] = struct{}{}
		}
	}

	examined, err := s.pool.TeachersExaminedInShift(ctx, date, shift.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load examined teachers")
	}
	collect(examined)

	if next := shift.ShiftNumber + 1; next <= s.cfg.MaxShift {
		nextShift, err := s.shifts.FindByNumber(ctx, next)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Ordinal gap: no shift carries that number, nothing to buffer against.
		case err != nil:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "resolve next shift")
		default:
			buffered, err := s.pool.TeachersExaminedInShift(ctx, date, nextShift.ID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load buffered teachers")
			}
			collect(buffered)
		}
	}

	coTeachers, err := s.pool.CoTeachersOfSharedExams(ctx, date, shift.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load co-teachers")
	}
	collect(coTeachers)

	vetoed, err := s.pool.ManuallyExcluded(ctx, date, shift.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load manual exclusions")
	}
	collect(vetoed)

	if !includeAssigned {
		assigned, err := s.pool.AlreadyAssigned(ctx, date, shift.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load assigned teachers")
		}
		collect(assigned)
	}

	if shift.ShiftNumber == s.cfg.EveningShift {
		evening, err := s.pool.TeachersWithEveningExam(ctx, date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load evening-exam teachers")
		}
		collect(evening)
	}

	eligible := make([]models.Teacher, 0, len(pool))
	for _, teacher := range pool {
		if _, blocked := excluded[teacher.ID]; blocked {
			continue
		}
		eligible = append(eligible, teacher)
	}

	s.logger.Debug("eligibility resolved",
		zap.String("exam_date", date),
		zap.Int("shift_number", shift.ShiftNumber),
		zap.Int("pool", len(pool)),
		zap.Int("eligible", len(eligible)),
	)
	return eligible, nil
}
