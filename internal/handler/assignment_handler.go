package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seminar-ops/scheduling-api/internal/dto"
	"github.com/seminar-ops/scheduling-api/internal/models"
	"github.com/seminar-ops/scheduling-api/internal/service"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
	"github.com/seminar-ops/scheduling-api/pkg/response"
)

// AssignmentHandler handles the assignment and history endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
	history     *service.HistoryService
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(assignments *service.AssignmentService, history *service.HistoryService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, history: history}
}

// Assign godoc
// @Summary Assign a trainer to a course
// @Description Detected conflicts block the assignment with a 409 unless
// @Description allowOverride is set. On success the trainer is notified by
// @Description email best-effort; emailStatus reports the outcome.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body dto.AssignRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/assign [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	courseID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	if req.TrainerID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "trainerId must be a positive integer"))
		return
	}

	result, err := h.assignments.Assign(c.Request.Context(), courseID, req.TrainerID, req.AllowOverride, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Blocked() {
		response.Conflicts(c, result.Conflicts)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary List assignment history
// @Description Audit entries newest first, optionally filtered by course
// @Description or trainer, capped at the configured limit.
// @Tags Assignments
// @Produce json
// @Param courseId query int false "Filter by course"
// @Param trainerId query int false "Filter by trainer"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} response.Envelope
// @Router /assignments/history [get]
func (h *AssignmentHandler) History(c *gin.Context) {
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
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}

	entries, err := h.history.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
