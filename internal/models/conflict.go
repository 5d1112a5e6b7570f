package models

import "time"

// ConflictType distinguishes the two collision rules.
type ConflictType string

const (
	ConflictTypeLocation ConflictType = "location"
	ConflictTypeTrainer  ConflictType = "trainer"
)

// Conflict describes a scheduling collision with another course. Conflicts
// are computed fresh on every check and never persisted.
type Conflict struct {
	Type       ConflictType `json:"type"`
	CourseID   int64        `json:"courseId"`
	CourseName string       `json:"courseName"`
	Reason     string       `json:"reason"`
}

// ConflictCandidate is the proposed course window and assignment checked
// against existing bookings. CourseID excludes the course itself on edits.
type ConflictCandidate struct {
	CourseID          *int64
	StartDate         time.Time
	EndDate           time.Time
	Location          string
	AssignedTrainerID *int64
}
