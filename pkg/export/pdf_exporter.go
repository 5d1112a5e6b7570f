package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/seminar-ops/scheduling-api/internal/models"
)

// PDFExporter renders the assignment audit log into a tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderHistory creates a PDF document listing assignment history entries,
// newest first as supplied.
func (e *PDFExporter) RenderHistory(entries []models.AssignmentHistory, title string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	headers := []string{"When", "Course", "Trainer", "Action", "Actor"}
	widths := []float64{34, 48, 40, 38, 30}

	pdf.SetFont("Arial", "B", 10)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, entry := range entries {
		course := strconv.FormatInt(entry.CourseID, 10)
		if entry.CourseName != nil {
			course = *entry.CourseName
		}
		trainer := strconv.FormatInt(entry.TrainerID, 10)
		if entry.TrainerName != nil {
			trainer = *entry.TrainerName
		}
		cells := []string{
			entry.CreatedAt.UTC().Format("2006-01-02 15:04"),
			course,
			trainer,
			entry.Action,
			entry.Actor,
		}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
