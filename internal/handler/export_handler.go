package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seminar-ops/scheduling-api/internal/models"
	"github.com/seminar-ops/scheduling-api/internal/service"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
	"github.com/seminar-ops/scheduling-api/pkg/response"
)

// ExportHandler serves downloadable schedule and audit exports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// ScheduleCSV godoc
// @Summary Export the course schedule as CSV
// @Tags Exports
// @Produce text/csv
// @Success 200 {file} file
// @Router /export/schedule [get]
func (h *ExportHandler) ScheduleCSV(c *gin.Context) {
	data, filename, err := h.service.ScheduleCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// HistoryPDF godoc
// @Summary Export assignment history as PDF
// @Tags Exports
// @Produce application/pdf
// @Param courseId query int false "Filter by course"
// @Param trainerId query int false "Filter by trainer"
// @Success 200 {file} file
// @Router /export/history [get]
func (h *ExportHandler) HistoryPDF(c *gin.Context) {
	var filter models.HistoryFilter
	if raw := c.Query("courseId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courseId must be a positive integer"))
			return
		}
		filter.CourseID = &id
	}
	if raw := c.Query("trainerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "trainerId must be a positive integer"))
			return
		}
		filter.TrainerID = &id
	}

	data, filename, err := h.service.HistoryPDF(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
