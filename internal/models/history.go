package models

import "time"

// Assignment history actions. Free-form tags in storage; these are the
// values the services write.
const (
	HistoryActionAssigned              = "assigned"
	HistoryActionUnassigned            = "unassigned"
	HistoryActionUnassignedTrainerGone = "unassigned (trainer deleted)"
)

// AssignmentHistory is an append-only audit entry recording one transition
// of a course's assigned trainer. Entries are never updated or deleted.
type AssignmentHistory struct {
	ID        int64     `db:"id" json:"id"`
	CourseID  int64     `db:"course_id" json:"courseId"`
	TrainerID int64     `db:"trainer_id" json:"trainerId"`
	Action    string    `db:"action" json:"action"`
	Actor     string    `db:"actor" json:"actor"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	// Joined display fields, populated on listing.
	CourseName  *string `db:"course_name" json:"courseName,omitempty"`
	TrainerName *string `db:"trainer_name" json:"trainerName,omitempty"`
}

// HistoryFilter narrows assignment history listings.
type HistoryFilter struct {
	CourseID  *int64
	TrainerID *int64
	Limit     int
}
