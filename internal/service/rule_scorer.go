package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/seminar-ops/scheduling-api/internal/models"
)

const maxSuggestions = 5

// RuleScorer is the deterministic trainer recommendation strategy. It is
// always available and serves as the fallback when the external scorer is
// unconfigured or failing.
type RuleScorer struct{}

// NewRuleScorer constructs a RuleScorer.
func NewRuleScorer() *RuleScorer {
	return &RuleScorer{}
}

// Rank scores every trainer against the course and returns the top five
// suggestions, highest score first.
func (s *RuleScorer) Rank(ctx context.Context, course models.Course, trainers []models.Trainer, activeCourses []models.Course) ([]models.Suggestion, error) {
	suggestions := make([]models.Suggestion, 0, len(trainers))
	for _, trainer := range trainers {
		suggestions = append(suggestions, scoreTrainer(course, trainer, activeCourses))
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions, nil
}

func scoreTrainer(course models.Course, trainer models.Trainer, activeCourses []models.Course) models.Suggestion {
	var score float64
	var reasons []string

	matched := subjectOverlap(course.Subject, trainer.TrainingSubjects)
	if len(matched) > 0 {
		score += math.Min(45, float64(len(matched))*15)
		reasons = append(reasons, fmt.Sprintf("Subject fit: %s", strings.Join(matched, ", ")))
	} else {
		score -= 10
		reasons = append(reasons, "No direct subject overlap")
	}

	if strings.EqualFold(trainer.Location, course.Location) {
		score += 15
		reasons = append(reasons, "Same city as course")
	}

	switch {
	case len(trainer.AvailabilityRanges) == 0:
		score += 12
		reasons = append(reasons, "No availability provided; assuming flexible")
	case trainer.AvailableFor(course.StartDate, course.EndDate):
		score += 12
		reasons = append(reasons, "Available for the course date range")
	default:
		score -= 18
		reasons = append(reasons, "Unavailable for the full date range")
	}

	if trainer.Rating != nil {
		score += clampFloat(float64(*trainer.Rating), 1, 5) * 2.5
		reasons = append(reasons, fmt.Sprintf("Rating %d/5", *trainer.Rating))
	}

	concurrent := 0
	for _, other := range activeCourses {
		if other.AssignedTrainerID == nil || *other.AssignedTrainerID != trainer.ID {
			continue
		}
		if other.ID == course.ID || other.DeletedAt != nil {
			continue
		}
		if other.Overlaps(course.StartDate, course.EndDate) {
			concurrent++
		}
	}
	score += clampFloat(10-float64(concurrent)*3, -10, 10)
	if concurrent > 0 {
		reasons = append(reasons, fmt.Sprintf("Already assigned to %d overlapping course(s)", concurrent))
	} else {
		reasons = append(reasons, "No overlapping courses")
	}

	if trainer.HourlyRate != nil {
		rate := *trainer.HourlyRate
		switch {
		case rate <= 80:
			score += 8
		case rate <= 120:
			score += 4
		}
		reasons = append(reasons, fmt.Sprintf("Hourly rate ~%g", rate))
	}

	normalized := clampInt(int(math.Round(score+20)), 0, 100)
	confidence := clampInt(int(math.Round(55+float64(normalized)/3)), 45, 95)

	return models.Suggestion{
		TrainerID:  trainer.ID,
		Score:      normalized,
		Confidence: confidence,
		Reasons:    reasons,
	}
}

// subjectOverlap returns the course subjects the trainer covers,
// case-insensitively, preserving course subject order.
func subjectOverlap(courseSubjects, trainerSubjects []string) []string {
	var matched []string
	for _, subject := range courseSubjects {
		for _, known := range trainerSubjects {
			if strings.EqualFold(subject, known) {
				matched = append(matched, subject)
				break
			}
		}
	}
	return matched
}

func clampFloat(v, min, max float64) float64 {
	return math.Min(max, math.Max(min, v))
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
