package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/seminar-ops/scheduling-api/internal/models"
)

const trainerColumns = `id, name, email, location, training_subjects, availability_ranges, hourly_rate, rating, created_at, updated_at`

// TrainerRepository manages persistence for trainer profiles.
type TrainerRepository struct {
	db *sqlx.DB
}

// NewTrainerRepository constructs a TrainerRepository.
func NewTrainerRepository(db *sqlx.DB) *TrainerRepository {
	return &TrainerRepository{db: db}
}

// List returns all trainers, newest first.
func (r *TrainerRepository) List(ctx context.Context) ([]models.Trainer, error) {
	query := fmt.Sprintf("SELECT %s FROM trainers ORDER BY created_at DESC", trainerColumns)
	var trainers []models.Trainer
	if err := r.db.SelectContext(ctx, &trainers, query); err != nil {
		return nil, fmt.Errorf("list trainers: %w", err)
	}
	return trainers, nil
}

// FindByID fetches a trainer by ID.
func (r *TrainerRepository) FindByID(ctx context.Context, id int64) (*models.Trainer, error) {
	query := fmt.Sprintf("SELECT %s FROM trainers WHERE id = $1", trainerColumns)
	var trainer models.Trainer
	if err := r.db.GetContext(ctx, &trainer, query, id); err != nil {
		return nil, err
	}
	return &trainer, nil
}

// ExistsByEmail checks if another trainer uses the same email.
func (r *TrainerRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM trainers WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID > 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check trainer email: %w", err)
	}
	return true, nil
}

// Create inserts a new trainer record.
func (r *TrainerRepository) Create(ctx context.Context, trainer *models.Trainer) error {
	now := time.Now().UTC()
	trainer.CreatedAt = now
	trainer.UpdatedAt = now

	const query = `INSERT INTO trainers (name, email, location, training_subjects, availability_ranges, hourly_rate, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		trainer.Name, trainer.Email, trainer.Location, trainer.TrainingSubjects,
		trainer.AvailabilityRanges, trainer.HourlyRate, trainer.Rating,
		trainer.CreatedAt, trainer.UpdatedAt,
	).Scan(&trainer.ID); err != nil {
		return fmt.Errorf("create trainer: %w", err)
	}
	return nil
}

// Update modifies an existing trainer record.
func (r *TrainerRepository) Update(ctx context.Context, trainer *models.Trainer) error {
	trainer.UpdatedAt = time.Now().UTC()
	const query = `UPDATE trainers
		SET name = $2, email = $3, location = $4, training_subjects = $5,
		    availability_ranges = $6, hourly_rate = $7, rating = $8, updated_at = $9
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		trainer.ID, trainer.Name, trainer.Email, trainer.Location,
		trainer.TrainingSubjects, trainer.AvailabilityRanges,
		trainer.HourlyRate, trainer.Rating, trainer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update trainer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated trainer rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCascade removes the trainer and unwinds their assignments in one
// transaction: every course referencing the trainer is unassigned, one
// cascade history row is appended per affected non-deleted course, and the
// trainer row is removed. All three steps or none.
func (r *TrainerRepository) DeleteCascade(ctx context.Context, id int64, actor string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin trainer delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var courseIDs []int64
	if err := tx.SelectContext(ctx, &courseIDs,
		"SELECT id FROM courses WHERE assigned_trainer_id = $1 AND deleted_at IS NULL", id); err != nil {
		return 0, fmt.Errorf("list assigned courses: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE courses SET assigned_trainer_id = NULL, updated_at = $2 WHERE assigned_trainer_id = $1",
		id, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("unassign trainer courses: %w", err)
	}

	for _, courseID := range courseIDs {
		entry := models.AssignmentHistory{
			CourseID:  courseID,
			TrainerID: id,
			Action:    models.HistoryActionUnassignedTrainerGone,
			Actor:     actor,
		}
		if err := insertHistoryTx(ctx, tx, &entry); err != nil {
			return 0, err
		}
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM trainers WHERE id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("delete trainer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted trainer rows: %w", err)
	}
	if affected == 0 {
		return 0, sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit trainer delete: %w", err)
	}
	return len(courseIDs), nil
}
