package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/seminar-ops/scheduling-api/internal/dto"
	"github.com/seminar-ops/scheduling-api/internal/models"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
)

type assignmentCourseStore interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	AssignTrainer(ctx context.Context, courseID, trainerID int64, actor string) (*models.Course, error)
}

type assignmentTrainerStore interface {
	FindByID(ctx context.Context, id int64) (*models.Trainer, error)
}

type conflictDetector interface {
	Detect(ctx context.Context, candidate models.ConflictCandidate) ([]models.Conflict, error)
}

type assignmentNotifier interface {
	NotifyTrainerOfAssignment(course models.Course, trainer models.Trainer, assignedBy string) error
}

// AssignmentService orchestrates putting a trainer on a course: conflict
// gate, atomic write with history, then best-effort notification. A blocked
// assignment changes nothing; a failed email never rolls the write back.
type AssignmentService struct {
	courses   assignmentCourseStore
	trainers  assignmentTrainerStore
	conflicts conflictDetector
	notifier  assignmentNotifier
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAssignmentService constructs an AssignmentService. notifier may be nil
// when no SMTP relay is configured.
func NewAssignmentService(
	courses assignmentCourseStore,
	trainers assignmentTrainerStore,
	conflicts conflictDetector,
	notifier assignmentNotifier,
	metrics *MetricsService,
	logger *zap.Logger,
) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		courses:   courses,
		trainers:  trainers,
		conflicts: conflicts,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
	}
}

// Assign puts the trainer on the course. Conflicts block the write unless
// allowOverride is set; a blocked attempt returns the conflicts with no
// mutation and no history. On success one "assigned" history row is written
// with the course update and the trainer is notified best-effort, with the
// outcome reported in EmailStatus.
func (s *AssignmentService) Assign(ctx context.Context, courseID, trainerID int64, allowOverride bool, actor string) (*dto.AssignResult, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	trainer, err := s.trainers.FindByID(ctx, trainerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trainer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainer")
	}

	conflicts, err := s.conflicts.Detect(ctx, models.ConflictCandidate{
		CourseID:          &course.ID,
		StartDate:         course.StartDate,
		EndDate:           course.EndDate,
		Location:          course.Location,
		AssignedTrainerID: &trainerID,
	})
	if err != nil {
		return nil, err
	}

	if len(conflicts) > 0 && !allowOverride {
		s.metrics.RecordAssignment("blocked")
		s.logger.Info("assignment blocked by conflicts",
			zap.Int64("course_id", courseID),
			zap.Int64("trainer_id", trainerID),
			zap.Int("conflicts", len(conflicts)),
		)
		return &dto.AssignResult{Conflicts: conflicts}, nil
	}

	updated, err := s.courses.AssignTrainer(ctx, courseID, trainerID, actor)
	if err != nil {
		s.metrics.RecordAssignment("failed")
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign trainer")
	}
	s.metrics.RecordAssignment("assigned")

	emailStatus := s.notify(*updated, *trainer, actor)

	return &dto.AssignResult{
		Course:      updated,
		Conflicts:   conflicts,
		EmailStatus: emailStatus,
	}, nil
}

func (s *AssignmentService) notify(course models.Course, trainer models.Trainer, actor string) *models.EmailStatus {
	if s.notifier == nil {
		return &models.EmailStatus{Sent: false, Error: "mail delivery not configured"}
	}
	if err := s.notifier.NotifyTrainerOfAssignment(course, trainer, actor); err != nil {
		s.metrics.RecordEmailFailure()
		s.logger.Warn("assignment email failed",
			zap.Int64("course_id", course.ID),
			zap.Int64("trainer_id", trainer.ID),
			zap.Error(err),
		)
		return &models.EmailStatus{Sent: false, Error: err.Error()}
	}
	return &models.EmailStatus{Sent: true}
}
