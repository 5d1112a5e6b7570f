package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/seminar-ops/scheduling-api/internal/dto"
	"github.com/seminar-ops/scheduling-api/internal/models"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
)

type courseStore interface {
	List(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	UpdateWithHistory(ctx context.Context, course *models.Course, entries []models.AssignmentHistory) error
	SoftDelete(ctx context.Context, id int64) error
}

type courseTrainerStore interface {
	FindByID(ctx context.Context, id int64) (*models.Trainer, error)
}

// CourseService manages the course lifecycle. Creates and edits pass
// through the conflict gate, and edits that change the assigned trainer
// append history rows in the same transaction as the course write.
type CourseService struct {
	courses   courseStore
	trainers  courseTrainerStore
	conflicts conflictDetector
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(courses courseStore, trainers courseTrainerStore, conflicts conflictDetector, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, trainers: trainers, conflicts: conflicts, validator: validate, logger: logger}
}

// List returns all non-deleted courses.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Get fetches one non-deleted course.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create validates the payload against the conflict rules and inserts the
// course. Conflicts block the insert unless AllowOverride is set; a blocked
// create returns the conflicts with a nil course.
func (s *CourseService) Create(ctx context.Context, req dto.CourseRequest, actor string) (*dto.CourseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if err := s.checkTrainerExists(ctx, req.AssignedTrainerID); err != nil {
		return nil, err
	}

	conflicts, err := s.conflicts.Detect(ctx, models.ConflictCandidate{
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Location:          req.Location,
		AssignedTrainerID: req.AssignedTrainerID,
	})
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 && !req.AllowOverride {
		return &dto.CourseResponse{Conflicts: conflicts}, nil
	}

	course := courseFromRequest(req)
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created",
		zap.Int64("course_id", course.ID),
		zap.String("actor", actor),
		zap.Int("conflicts_overridden", len(conflicts)),
	)
	return &dto.CourseResponse{Course: course, Conflicts: conflicts}, nil
}

// Update rewrites the course after passing the conflict gate. When the
// assigned trainer changes, history rows are appended with the write:
// gaining a trainer logs "assigned", losing one logs "unassigned", and a
// direct swap logs only the new assignment.
func (s *CourseService) Update(ctx context.Context, id int64, req dto.CourseRequest, actor string) (*dto.CourseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	existing, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if err := s.checkTrainerExists(ctx, req.AssignedTrainerID); err != nil {
		return nil, err
	}

	conflicts, err := s.conflicts.Detect(ctx, models.ConflictCandidate{
		CourseID:          &id,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Location:          req.Location,
		AssignedTrainerID: req.AssignedTrainerID,
	})
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 && !req.AllowOverride {
		return &dto.CourseResponse{Conflicts: conflicts}, nil
	}

	course := courseFromRequest(req)
	course.ID = id
	course.CreatedAt = existing.CreatedAt

	entries := assignmentTransitions(id, existing.AssignedTrainerID, req.AssignedTrainerID, actor)
	if err := s.courses.UpdateWithHistory(ctx, course, entries); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.logger.Info("course updated",
		zap.Int64("course_id", id),
		zap.String("actor", actor),
		zap.Int("history_entries", len(entries)),
	)
	return &dto.CourseResponse{Course: course, Conflicts: conflicts}, nil
}

// Delete soft-deletes the course. The row and its history remain.
func (s *CourseService) Delete(ctx context.Context, id int64) error {
	if err := s.courses.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}

func (s *CourseService) checkTrainerExists(ctx context.Context, trainerID *int64) error {
	if trainerID == nil {
		return nil
	}
	if _, err := s.trainers.FindByID(ctx, *trainerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assigned trainer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainer")
	}
	return nil
}

// assignmentTransitions derives the history rows for an edit that may
// change the assigned trainer. A swap between two trainers logs only the
// incoming assignment.
func assignmentTransitions(courseID int64, before, after *int64, actor string) []models.AssignmentHistory {
	switch {
	case before == nil && after == nil:
		return nil
	case before != nil && after != nil && *before == *after:
		return nil
	case after != nil:
		return []models.AssignmentHistory{{
			CourseID:  courseID,
			TrainerID: *after,
			Action:    models.HistoryActionAssigned,
			Actor:     actor,
		}}
	default:
		return []models.AssignmentHistory{{
			CourseID:  courseID,
			TrainerID: *before,
			Action:    models.HistoryActionUnassigned,
			Actor:     actor,
		}}
	}
}

func courseFromRequest(req dto.CourseRequest) *models.Course {
	status := models.CourseStatus(req.Status)
	if status == "" {
		status = models.CourseStatusDraft
	}
	return &models.Course{
		Name:              req.Name,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Subject:           req.Subject,
		Location:          req.Location,
		Participants:      req.Participants,
		Notes:             req.Notes,
		Price:             req.Price,
		TrainerPrice:      req.TrainerPrice,
		Status:            status,
		AssignedTrainerID: req.AssignedTrainerID,
	}
}
