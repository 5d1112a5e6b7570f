package service

import (
	"context"
	"fmt"
	"time"

	"github.com/seminar-ops/scheduling-api/internal/models"
	"github.com/seminar-ops/scheduling-api/internal/repository"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
)

type overlappingCourseFinder interface {
	FindOverlapping(ctx context.Context, q repository.OverlapQuery) ([]models.Course, error)
}

// ConflictService detects scheduling collisions between a proposed course
// window and existing bookings. Detection is read-only; conflicts are
// returned as data and never persisted.
type ConflictService struct {
	courses overlappingCourseFinder
}

// NewConflictService constructs a ConflictService.
func NewConflictService(courses overlappingCourseFinder) *ConflictService {
	return &ConflictService{courses: courses}
}

// Detect returns all location and trainer conflicts for the candidate.
// Both rules are additive: one Conflict per colliding course per rule.
// Location matching is a case-sensitive exact string comparison and the
// overlap predicate is inclusive on both edges. Ordering follows storage
// order and is not part of the contract.
func (s *ConflictService) Detect(ctx context.Context, candidate models.ConflictCandidate) ([]models.Conflict, error) {
	conflicts := []models.Conflict{}

	atLocation, err := s.courses.FindOverlapping(ctx, repository.OverlapQuery{
		Location:  &candidate.Location,
		Start:     candidate.StartDate,
		End:       candidate.EndDate,
		ExcludeID: candidate.CourseID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check location conflicts")
	}
	for _, other := range atLocation {
		conflicts = append(conflicts, models.Conflict{
			Type:       models.ConflictTypeLocation,
			CourseID:   other.ID,
			CourseName: other.Name,
			Reason: fmt.Sprintf("Location conflict with course %q (%s - %s)",
				other.Name, other.StartDate.UTC().Format(time.RFC3339), other.EndDate.UTC().Format(time.RFC3339)),
		})
	}

	if candidate.AssignedTrainerID != nil {
		withTrainer, err := s.courses.FindOverlapping(ctx, repository.OverlapQuery{
			TrainerID: candidate.AssignedTrainerID,
			Start:     candidate.StartDate,
			End:       candidate.EndDate,
			ExcludeID: candidate.CourseID,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check trainer conflicts")
		}
		for _, other := range withTrainer {
			conflicts = append(conflicts, models.Conflict{
				Type:       models.ConflictTypeTrainer,
				CourseID:   other.ID,
				CourseName: other.Name,
				Reason: fmt.Sprintf("Trainer is already assigned to %q (%s - %s)",
					other.Name, other.StartDate.UTC().Format(time.RFC3339), other.EndDate.UTC().Format(time.RFC3339)),
			})
		}
	}

	return conflicts, nil
}
