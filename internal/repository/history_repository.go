package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/seminar-ops/scheduling-api/internal/models"
)

const defaultHistoryLimit = 100

// HistoryRepository reads the append-only assignment audit log. Entries
// are written by the course and trainer repositories inside their
// transactions; this type never updates or deletes rows.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs a HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// List returns history entries newest first, optionally filtered by course
// or trainer, capped at filter.Limit (default 100).
func (r *HistoryRepository) List(ctx context.Context, filter models.HistoryFilter) ([]models.AssignmentHistory, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.CourseID != nil {
		conditions = append(conditions, fmt.Sprintf("h.course_id = $%d", len(args)+1))
		args = append(args, *filter.CourseID)
	}
	if filter.TrainerID != nil {
		conditions = append(conditions, fmt.Sprintf("h.trainer_id = $%d", len(args)+1))
		args = append(args, *filter.TrainerID)
	}

	limit := filter.Limit
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}

	query := fmt.Sprintf(`
SELECT h.id, h.course_id, h.trainer_id, h.action, h.actor, h.created_at,
       c.name AS course_name, t.name AS trainer_name
FROM assignment_history h
LEFT JOIN courses c ON c.id = h.course_id
LEFT JOIN trainers t ON t.id = h.trainer_id
WHERE %s
ORDER BY h.created_at DESC
LIMIT %d`, strings.Join(conditions, " AND "), limit)

	var entries []models.AssignmentHistory
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list assignment history: %w", err)
	}
	return entries, nil
}

// insertHistoryTx appends one audit entry within an open transaction.
func insertHistoryTx(ctx context.Context, tx *sqlx.Tx, entry *models.AssignmentHistory) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignment_history (course_id, trainer_id, action, actor, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := tx.QueryRowxContext(ctx, query, entry.CourseID, entry.TrainerID, entry.Action, entry.Actor, entry.CreatedAt).Scan(&entry.ID); err != nil {
		return fmt.Errorf("append assignment history: %w", err)
	}
	return nil
}
