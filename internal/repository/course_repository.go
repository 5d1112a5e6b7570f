package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/seminar-ops/scheduling-api/internal/models"
)

const courseColumns = `id, name, start_date, end_date, subject, location, participants, notes, price, trainer_price, status, assigned_trainer_id, deleted_at, created_at, updated_at`

// OverlapQuery narrows the overlapping-course range query. Location and
// TrainerID are equality filters; ExcludeID removes the candidate itself
// when checking an edit.
type OverlapQuery struct {
	Location  *string
	TrainerID *int64
	Start     time.Time
	End       time.Time
	ExcludeID *int64
}

// CourseRepository manages persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns all non-deleted courses ordered by start date.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE deleted_at IS NULL ORDER BY start_date ASC", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListByTrainer returns the non-deleted courses assigned to a trainer.
func (r *CourseRepository) ListByTrainer(ctx context.Context, trainerID int64) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE deleted_at IS NULL AND assigned_trainer_id = $1 ORDER BY start_date ASC", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, trainerID); err != nil {
		return nil, fmt.Errorf("list courses by trainer: %w", err)
	}
	return courses, nil
}

// FindByID fetches a non-deleted course by ID. Returns sql.ErrNoRows when
// the course is missing or soft-deleted.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1 AND deleted_at IS NULL", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindOverlapping returns non-deleted courses whose interval intersects
// [q.Start, q.End], optionally filtered by location or assigned trainer.
// The overlap predicate is inclusive on both edges.
func (r *CourseRepository) FindOverlapping(ctx context.Context, q OverlapQuery) ([]models.Course, error) {
	conditions := []string{"deleted_at IS NULL", "start_date <= $1", "end_date >= $2"}
	args := []interface{}{q.End, q.Start}

	if q.Location != nil {
		conditions = append(conditions, fmt.Sprintf("location = $%d", len(args)+1))
		args = append(args, *q.Location)
	}
	if q.TrainerID != nil {
		conditions = append(conditions, fmt.Sprintf("assigned_trainer_id = $%d", len(args)+1))
		args = append(args, *q.TrainerID)
	}
	if q.ExcludeID != nil {
		conditions = append(conditions, fmt.Sprintf("id <> $%d", len(args)+1))
		args = append(args, *q.ExcludeID)
	}

	query := fmt.Sprintf("SELECT %s FROM courses WHERE %s", courseColumns, strings.Join(conditions, " AND "))
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("find overlapping courses: %w", err)
	}
	return courses, nil
}

// Create inserts a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	if course.Status == "" {
		course.Status = models.CourseStatusDraft
	}

	const query = `INSERT INTO courses (name, start_date, end_date, subject, location, participants, notes, price, trainer_price, status, assigned_trainer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		course.Name, course.StartDate, course.EndDate, course.Subject, course.Location,
		course.Participants, course.Notes, course.Price, course.TrainerPrice,
		course.Status, course.AssignedTrainerID, course.CreatedAt, course.UpdatedAt,
	).Scan(&course.ID); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// UpdateWithHistory rewrites the course and appends the given assignment
// history entries in one transaction. Both succeed or neither applies.
func (r *CourseRepository) UpdateWithHistory(ctx context.Context, course *models.Course, entries []models.AssignmentHistory) error {
	course.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin course update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `UPDATE courses
		SET name = $2, start_date = $3, end_date = $4, subject = $5, location = $6,
		    participants = $7, notes = $8, price = $9, trainer_price = $10,
		    status = $11, assigned_trainer_id = $12, updated_at = $13
		WHERE id = $1 AND deleted_at IS NULL`
	result, err := tx.ExecContext(ctx, query,
		course.ID, course.Name, course.StartDate, course.EndDate, course.Subject,
		course.Location, course.Participants, course.Notes, course.Price,
		course.TrainerPrice, course.Status, course.AssignedTrainerID, course.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated course rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	for i := range entries {
		if err := insertHistoryTx(ctx, tx, &entries[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit course update: %w", err)
	}
	return nil
}

// AssignTrainer sets the course's trainer and appends one "assigned"
// history row atomically. Returns the updated course.
func (r *CourseRepository) AssignTrainer(ctx context.Context, courseID, trainerID int64, actor string) (*models.Course, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin assignment: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`UPDATE courses SET assigned_trainer_id = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL RETURNING %s`, courseColumns)
	var course models.Course
	if err := tx.GetContext(ctx, &course, query, courseID, trainerID, time.Now().UTC()); err != nil {
		return nil, err
	}

	entry := models.AssignmentHistory{
		CourseID:  courseID,
		TrainerID: trainerID,
		Action:    models.HistoryActionAssigned,
		Actor:     actor,
	}
	if err := insertHistoryTx(ctx, tx, &entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assignment: %w", err)
	}
	return &course, nil
}

// SoftDelete marks a course as deleted without removing the row.
func (r *CourseRepository) SoftDelete(ctx context.Context, id int64) error {
	const query = `UPDATE courses SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("soft delete course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted course rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
