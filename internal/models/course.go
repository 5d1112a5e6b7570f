package models

import (
	"time"

	"github.com/lib/pq"
)

// CourseStatus enumerates the lifecycle states of a course.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusScheduled CourseStatus = "scheduled"
	CourseStatusCompleted CourseStatus = "completed"
	CourseStatusCancelled CourseStatus = "cancelled"
)

// Course represents a scheduled training course. Courses are never hard
// deleted; DeletedAt marks them as removed and excludes them from listings,
// conflict checks, and assignment eligibility.
type Course struct {
	ID                int64          `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	StartDate         time.Time      `db:"start_date" json:"startDate"`
	EndDate           time.Time      `db:"end_date" json:"endDate"`
	Subject           pq.StringArray `db:"subject" json:"subject"`
	Location          string         `db:"location" json:"location"`
	Participants      int            `db:"participants" json:"participants"`
	Notes             *string        `db:"notes" json:"notes,omitempty"`
	Price             float64        `db:"price" json:"price"`
	TrainerPrice      float64        `db:"trainer_price" json:"trainerPrice"`
	Status            CourseStatus   `db:"status" json:"status"`
	AssignedTrainerID *int64         `db:"assigned_trainer_id" json:"assignedTrainerId,omitempty"`
	DeletedAt         *time.Time     `db:"deleted_at" json:"deletedAt,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updatedAt"`
}

// Overlaps reports whether the course interval intersects [start, end].
// The predicate is inclusive on both edges to match the conflict rules.
func (c Course) Overlaps(start, end time.Time) bool {
	return !c.StartDate.After(end) && !c.EndDate.Before(start)
}
