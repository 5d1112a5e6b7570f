package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/seminar-ops/scheduling-api/internal/dto"
	"github.com/seminar-ops/scheduling-api/internal/models"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
)

type trainerStore interface {
	List(ctx context.Context) ([]models.Trainer, error)
	FindByID(ctx context.Context, id int64) (*models.Trainer, error)
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
	Create(ctx context.Context, trainer *models.Trainer) error
	Update(ctx context.Context, trainer *models.Trainer) error
	DeleteCascade(ctx context.Context, id int64, actor string) (int, error)
}

type trainerCourseLister interface {
	ListByTrainer(ctx context.Context, trainerID int64) ([]models.Course, error)
}

// TrainerService manages trainer profiles. Deleting a trainer unwinds
// their course assignments in one transaction.
type TrainerService struct {
	trainers  trainerStore
	courses   trainerCourseLister
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTrainerService constructs a TrainerService.
func NewTrainerService(trainers trainerStore, courses trainerCourseLister, validate *validator.Validate, logger *zap.Logger) *TrainerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrainerService{trainers: trainers, courses: courses, validator: validate, logger: logger}
}

// List returns all trainers.
func (s *TrainerService) List(ctx context.Context) ([]models.Trainer, error) {
	trainers, err := s.trainers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trainers")
	}
	return trainers, nil
}

// Get fetches one trainer with their non-deleted assigned courses.
func (s *TrainerService) Get(ctx context.Context, id int64) (*dto.TrainerDetail, error) {
	trainer, err := s.trainers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trainer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainer")
	}

	courses, err := s.courses.ListByTrainer(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trainer courses")
	}
	return &dto.TrainerDetail{Trainer: trainer, Courses: courses}, nil
}

// Create registers a new trainer. Email must be unique across trainers,
// compared case-insensitively.
func (s *TrainerService) Create(ctx context.Context, req dto.TrainerRequest) (*models.Trainer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid trainer payload")
	}

	trainer, err := trainerFromRequest(req)
	if err != nil {
		return nil, err
	}

	taken, err := s.trainers.ExistsByEmail(ctx, trainer.Email, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check trainer email")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a trainer with this email already exists")
	}

	if err := s.trainers.Create(ctx, trainer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create trainer")
	}
	s.logger.Info("trainer created", zap.Int64("trainer_id", trainer.ID))
	return trainer, nil
}

// Update rewrites an existing trainer profile.
func (s *TrainerService) Update(ctx context.Context, id int64, req dto.TrainerRequest) (*models.Trainer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid trainer payload")
	}

	if _, err := s.trainers.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trainer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainer")
	}

	trainer, err := trainerFromRequest(req)
	if err != nil {
		return nil, err
	}
	trainer.ID = id

	taken, err := s.trainers.ExistsByEmail(ctx, trainer.Email, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check trainer email")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a trainer with this email already exists")
	}

	if err := s.trainers.Update(ctx, trainer); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trainer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update trainer")
	}
	s.logger.Info("trainer updated", zap.Int64("trainer_id", id))
	return trainer, nil
}

// Delete removes the trainer, unassigns every course referencing them, and
// appends one cascade history row per affected non-deleted course, all in
// one transaction. Returns the number of unassigned courses.
func (s *TrainerService) Delete(ctx context.Context, id int64, actor string) (int, error) {
	unassigned, err := s.trainers.DeleteCascade(ctx, id, actor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "trainer not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete trainer")
	}
	s.logger.Info("trainer deleted",
		zap.Int64("trainer_id", id),
		zap.Int("courses_unassigned", unassigned),
	)
	return unassigned, nil
}

func trainerFromRequest(req dto.TrainerRequest) (*models.Trainer, error) {
	ranges, err := parseAvailabilityRanges(req.AvailabilityRanges)
	if err != nil {
		return nil, err
	}
	return &models.Trainer{
		Name:               req.Name,
		Email:              req.Email,
		Location:           req.Location,
		TrainingSubjects:   req.TrainingSubjects,
		AvailabilityRanges: ranges,
		HourlyRate:         req.HourlyRate,
		Rating:             req.Rating,
	}, nil
}

func parseAvailabilityRanges(inputs []dto.AvailabilityRangeInput) (models.AvailabilityRanges, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	ranges := make(models.AvailabilityRanges, 0, len(inputs))
	for i, input := range inputs {
		start, err := time.Parse(time.RFC3339, input.Start)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("availabilityRanges[%d].start is not a valid RFC3339 timestamp", i))
		}
		end, err := time.Parse(time.RFC3339, input.End)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("availabilityRanges[%d].end is not a valid RFC3339 timestamp", i))
		}
		if !end.After(start) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("availabilityRanges[%d] must end after it starts", i))
		}
		ranges = append(ranges, models.AvailabilityRange{Start: start, End: end})
	}
	return ranges, nil
}
