package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-observer-api/internal/models"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
)

type historyRepository interface {
	List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryDetail, error)
}

// HistoryService exposes the append-only assignment audit trail. There are
// no write operations here; history rows are produced exclusively by the
// allocation engine alongside the roster changes they describe.
type HistoryService struct {
	repo   historyRepository
	logger *zap.Logger
}

// NewHistoryService constructs HistoryService.
func NewHistoryService(repo historyRepository, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{repo: repo, logger: logger}
}

// List returns audit records newest first, optionally filtered by date and
// shift.
func (s *HistoryService) List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryDetail, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list history")
	}
	return records, nil
}
