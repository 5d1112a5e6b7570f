package dto

import "github.com/seminar-ops/scheduling-api/internal/models"

// AvailabilityRangeInput mirrors models.AvailabilityRange for payloads.
type AvailabilityRangeInput struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// TrainerRequest is the create/update payload for a trainer profile.
type TrainerRequest struct {
	Name               string                   `json:"name" validate:"required"`
	Email              string                   `json:"email" validate:"required,email"`
	Location           string                   `json:"location" validate:"required"`
	TrainingSubjects   []string                 `json:"trainingSubjects" validate:"required,min=1,dive,required"`
	AvailabilityRanges []AvailabilityRangeInput `json:"availabilityRanges,omitempty" validate:"omitempty,dive"`
	HourlyRate         *float64                 `json:"hourlyRate,omitempty" validate:"omitempty,gte=0"`
	Rating             *int                     `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
}

// TrainerDetail embeds the trainer's upcoming non-deleted courses.
type TrainerDetail struct {
	Trainer *models.Trainer `json:"trainer"`
	Courses []models.Course `json:"courses"`
}
