package service

import (
	"context"
	"fmt"
	"time"

	"github.com/seminar-ops/scheduling-api/internal/models"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
	"github.com/seminar-ops/scheduling-api/pkg/export"
)

type exportCourseLister interface {
	List(ctx context.Context) ([]models.Course, error)
}

type exportTrainerLister interface {
	List(ctx context.Context) ([]models.Trainer, error)
}

type exportHistoryLister interface {
	List(ctx context.Context, filter models.HistoryFilter) ([]models.AssignmentHistory, error)
}

// ExportService produces downloadable renditions of the schedule and the
// assignment audit log.
type ExportService struct {
	courses  exportCourseLister
	trainers exportTrainerLister
	history  exportHistoryLister
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
}

// NewExportService constructs an ExportService.
func NewExportService(courses exportCourseLister, trainers exportTrainerLister, history exportHistoryLister) *ExportService {
	return &ExportService{
		courses:  courses,
		trainers: trainers,
		history:  history,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
	}
}

// ScheduleCSV renders all non-deleted courses as CSV with trainer names
// resolved.
func (s *ExportService) ScheduleCSV(ctx context.Context) ([]byte, string, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	trainers, err := s.trainers.List(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trainers")
	}

	names := make(map[int64]string, len(trainers))
	for _, t := range trainers {
		names[t.ID] = t.Name
	}

	data, err := s.csv.RenderSchedule(courses, names)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule csv")
	}
	filename := fmt.Sprintf("schedule-%s.csv", time.Now().UTC().Format("2006-01-02"))
	return data, filename, nil
}

// HistoryPDF renders the assignment audit log as a PDF, newest first.
func (s *ExportService) HistoryPDF(ctx context.Context, filter models.HistoryFilter) ([]byte, string, error) {
	entries, err := s.history.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignment history")
	}

	data, err := s.pdf.RenderHistory(entries, "Assignment History")
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render history pdf")
	}
	filename := fmt.Sprintf("assignment-history-%s.pdf", time.Now().UTC().Format("2006-01-02"))
	return data, filename, nil
}
