package service

import (
	"context"

	"github.com/seminar-ops/scheduling-api/internal/models"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
)

type historyStore interface {
	List(ctx context.Context, filter models.HistoryFilter) ([]models.AssignmentHistory, error)
}

// HistoryService reads the assignment audit log.
type HistoryService struct {
	history historyStore
	limit   int
}

// NewHistoryService constructs a HistoryService. limit caps every listing;
// zero falls back to the repository default.
func NewHistoryService(history historyStore, limit int) *HistoryService {
	return &HistoryService{history: history, limit: limit}
}

// List returns audit entries newest first, optionally filtered by course
// or trainer.
func (s *HistoryService) List(ctx context.Context, filter models.HistoryFilter) ([]models.AssignmentHistory, error) {
	if filter.Limit <= 0 || (s.limit > 0 && filter.Limit > s.limit) {
		filter.Limit = s.limit
	}
	entries, err := s.history.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignment history")
	}
	return entries, nil
}
