package dto

import "github.com/seminar-ops/scheduling-api/internal/models"

// AssignRequest asks to put a trainer on a course.
type AssignRequest struct {
	TrainerID     int64 `json:"trainerId" validate:"required,gt=0"`
	AllowOverride bool  `json:"allowOverride,omitempty"`
}

// AssignResult is the orchestrator outcome. When conflicts block the write
// only Conflicts is populated; otherwise Course reflects the new
// assignment and EmailStatus carries the best-effort notification outcome.
type AssignResult struct {
	Course      *models.Course      `json:"course,omitempty"`
	Conflicts   []models.Conflict   `json:"conflicts"`
	EmailStatus *models.EmailStatus `json:"emailStatus,omitempty"`
}

// Blocked reports whether the assignment was stopped by conflicts.
func (r AssignResult) Blocked() bool {
	return r.Course == nil && len(r.Conflicts) > 0
}
