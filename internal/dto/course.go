package dto

import (
	"time"

	"github.com/seminar-ops/scheduling-api/internal/models"
)

// CourseRequest is the create/update payload for a course. AllowOverride
// lets the caller proceed despite detected conflicts.
type CourseRequest struct {
	Name              string    `json:"name" validate:"required"`
	StartDate         time.Time `json:"startDate" validate:"required"`
	EndDate           time.Time `json:"endDate" validate:"required,gtfield=StartDate"`
	Subject           []string  `json:"subject" validate:"required,min=1,dive,required"`
	Location          string    `json:"location" validate:"required"`
	Participants      int       `json:"participants" validate:"required,gt=0"`
	Notes             *string   `json:"notes,omitempty"`
	Price             float64   `json:"price" validate:"gte=0"`
	TrainerPrice      float64   `json:"trainerPrice" validate:"gte=0"`
	Status            string    `json:"status,omitempty" validate:"omitempty,oneof=draft scheduled completed cancelled"`
	AssignedTrainerID *int64    `json:"assignedTrainerId,omitempty"`
	AllowOverride     bool      `json:"allowOverride,omitempty"`
}

// CourseResponse pairs a course with the conflicts detected while saving it.
type CourseResponse struct {
	Course    *models.Course    `json:"course"`
	Conflicts []models.Conflict `json:"conflicts"`
}
