package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seminar-ops/scheduling-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func courseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "start_date", "end_date", "subject", "location", "participants",
		"notes", "price", "trainer_price", "status", "assigned_trainer_id", "deleted_at",
		"created_at", "updated_at",
	})
}

func TestCourseRepositoryFindOverlappingByLocation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	location := "Paris"
	excludeID := int64(7)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+courseColumns+" FROM courses WHERE deleted_at IS NULL AND start_date <= $1 AND end_date >= $2 AND location = $3 AND id <> $4")).
		WithArgs(end, start, location, excludeID).
		WillReturnRows(courseRows().
			AddRow(3, "Go Fundamentals", start, end, "{Go}", "Paris", 10, nil, 1200.0, 800.0, "scheduled", nil, nil, time.Now(), time.Now()))

	courses, err := repo.FindOverlapping(context.Background(), OverlapQuery{
		Location:  &location,
		Start:     start,
		End:       end,
		ExcludeID: &excludeID,
	})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, int64(3), courses[0].ID)
	assert.Equal(t, []string{"Go"}, []string(courses[0].Subject))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindOverlappingByTrainer(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	trainerID := int64(5)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+courseColumns+" FROM courses WHERE deleted_at IS NULL AND start_date <= $1 AND end_date >= $2 AND assigned_trainer_id = $3")).
		WithArgs(end, start, trainerID).
		WillReturnRows(courseRows())

	courses, err := repo.FindOverlapping(context.Background(), OverlapQuery{
		TrainerID: &trainerID,
		Start:     start,
		End:       end,
	})
	require.NoError(t, err)
	assert.Empty(t, courses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("INSERT INTO courses").
		WithArgs("Go Fundamentals", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "Paris", 10,
			sqlmock.AnyArg(), 1200.0, 800.0, models.CourseStatusDraft, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	course := &models.Course{
		Name:         "Go Fundamentals",
		StartDate:    time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		Subject:      []string{"Go"},
		Location:     "Paris",
		Participants: 10,
		Price:        1200,
		TrainerPrice: 800,
	}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.Equal(t, int64(11), course.ID)
	assert.Equal(t, models.CourseStatusDraft, course.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryAssignTrainerWritesOneHistoryRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	trainerID := int64(5)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE courses SET assigned_trainer_id").
		WithArgs(int64(3), trainerID, sqlmock.AnyArg()).
		WillReturnRows(courseRows().
			AddRow(3, "Go Fundamentals", start, end, "{Go}", "Paris", 10, nil, 1200.0, 800.0, "scheduled", trainerID, nil, time.Now(), time.Now()))
	mock.ExpectQuery("INSERT INTO assignment_history").
		WithArgs(int64(3), trainerID, models.HistoryActionAssigned, "admin@example.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	course, err := repo.AssignTrainer(context.Background(), 3, trainerID, "admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, course.AssignedTrainerID)
	assert.Equal(t, trainerID, *course.AssignedTrainerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryAssignTrainerMissingCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE courses SET assigned_trainer_id").
		WithArgs(int64(99), int64(5), sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.AssignTrainer(context.Background(), 99, 5, "admin@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateWithHistory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE courses").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO assignment_history").
		WithArgs(int64(3), int64(5), models.HistoryActionAssigned, "admin@example.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	trainerID := int64(5)
	course := &models.Course{
		ID:                3,
		Name:              "Go Fundamentals",
		StartDate:         time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		Subject:           []string{"Go"},
		Location:          "Paris",
		Participants:      10,
		Status:            models.CourseStatusScheduled,
		AssignedTrainerID: &trainerID,
	}
	entries := []models.AssignmentHistory{{
		CourseID:  3,
		TrainerID: 5,
		Action:    models.HistoryActionAssigned,
		Actor:     "admin@example.com",
	}}
	require.NoError(t, repo.UpdateWithHistory(context.Background(), course, entries))
	assert.Equal(t, int64(1), entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositorySoftDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("UPDATE courses SET deleted_at").
		WithArgs(int64(42), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), 42)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
