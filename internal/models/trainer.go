package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// AvailabilityRange is a window in which a trainer can be booked.
type AvailabilityRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether the range fully covers [start, end].
func (r AvailabilityRange) Contains(start, end time.Time) bool {
	return !r.Start.After(start) && !r.End.Before(end)
}

// AvailabilityRanges is stored as a JSONB column.
type AvailabilityRanges []AvailabilityRange

// Value implements driver.Valuer.
func (a AvailabilityRanges) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *AvailabilityRanges) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported availability ranges type %T", src)
	}
	return json.Unmarshal(raw, a)
}

// Trainer represents an instructor profile.
type Trainer struct {
	ID                 int64              `db:"id" json:"id"`
	Name               string             `db:"name" json:"name"`
	Email              string             `db:"email" json:"email"`
	Location           string             `db:"location" json:"location"`
	TrainingSubjects   pq.StringArray     `db:"training_subjects" json:"trainingSubjects"`
	AvailabilityRanges AvailabilityRanges `db:"availability_ranges" json:"availabilityRanges,omitempty"`
	HourlyRate         *float64           `db:"hourly_rate" json:"hourlyRate,omitempty"`
	Rating             *int               `db:"rating" json:"rating,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updatedAt"`
}

// AvailableFor reports whether the trainer can cover the course window.
// A trainer without declared ranges is treated as flexible.
func (t Trainer) AvailableFor(start, end time.Time) bool {
	if len(t.AvailabilityRanges) == 0 {
		return true
	}
	for _, r := range t.AvailabilityRanges {
		if r.Contains(start, end) {
			return true
		}
	}
	return false
}
