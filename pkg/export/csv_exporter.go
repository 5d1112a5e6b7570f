package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/seminar-ops/scheduling-api/internal/models"
)

// CSVExporter renders the course schedule into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

var scheduleHeaders = []string{"id", "name", "start", "end", "location", "subjects", "participants", "status", "trainer"}

// RenderSchedule produces a CSV listing of the given courses. Trainer names
// are resolved through the provided id lookup; unassigned courses render an
// empty trainer column.
func (e *CSVExporter) RenderSchedule(courses []models.Course, trainerNames map[int64]string) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(scheduleHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}

	for _, course := range courses {
		trainer := ""
		if course.AssignedTrainerID != nil {
			trainer = trainerNames[*course.AssignedTrainerID]
		}
		record := []string{
			strconv.FormatInt(course.ID, 10),
			course.Name,
			course.StartDate.UTC().Format(time.RFC3339),
			course.EndDate.UTC().Format(time.RFC3339),
			course.Location,
			strings.Join(course.Subject, "; "),
			strconv.Itoa(course.Participants),
			string(course.Status),
			trainer,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
