package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seminar-ops/scheduling-api/internal/models"
	"github.com/seminar-ops/scheduling-api/internal/service"
)

type assignCourseStoreMock struct {
	course  *models.Course
	assigns int
}

func (m *assignCourseStoreMock) FindByID(_ context.Context, id int64) (*models.Course, error) {
	if m.course == nil || m.course.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *m.course
	return &cp, nil
}

func (m *assignCourseStoreMock) AssignTrainer(_ context.Context, _ int64, trainerID int64, _ string) (*models.Course, error) {
	m.assigns++
	cp := *m.course
	cp.AssignedTrainerID = &trainerID
	return &cp, nil
}

type historyStoreMock struct {
	entries []models.AssignmentHistory
	filters []models.HistoryFilter
}

func (m *historyStoreMock) List(_ context.Context, filter models.HistoryFilter) ([]models.AssignmentHistory, error) {
	m.filters = append(m.filters, filter)
	return m.entries, nil
}

func newAssignmentHandler(courses *assignCourseStoreMock, detector *detectorMock, history *historyStoreMock) *AssignmentHandler {
	trainers := &trainerFinderMock{byID: map[int64]models.Trainer{5: {ID: 5, Name: "Alice Martin"}}}
	assignments := service.NewAssignmentService(courses, trainers, detector, nil, nil, nil)
	return NewAssignmentHandler(assignments, service.NewHistoryService(history, 100))
}

func TestAssignmentHandlerAssignConflict(t *testing.T) {
	courses := &assignCourseStoreMock{course: &models.Course{ID: 3, Location: "Paris"}}
	detector := &detectorMock{conflicts: []models.Conflict{
		{Type: models.ConflictTypeTrainer, CourseID: 9, CourseName: "Other", Reason: "Trainer is already assigned"},
	}}
	h := newAssignmentHandler(courses, detector, &historyStoreMock{})

	c, w := adminContext(t, http.MethodPost, "/courses/3/assign", []byte(`{"trainerId":5}`))
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	h.Assign(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Zero(t, courses.assigns)
}

func TestAssignmentHandlerAssignSuccess(t *testing.T) {
	courses := &assignCourseStoreMock{course: &models.Course{ID: 3, Location: "Paris"}}
	h := newAssignmentHandler(courses, &detectorMock{}, &historyStoreMock{})

	c, w := adminContext(t, http.MethodPost, "/courses/3/assign", []byte(`{"trainerId":5}`))
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	h.Assign(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Course      *models.Course      `json:"course"`
			EmailStatus *models.EmailStatus `json:"emailStatus"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Data.Course)
	require.NotNil(t, body.Data.EmailStatus)
	assert.False(t, body.Data.EmailStatus.Sent)
	assert.Equal(t, 1, courses.assigns)
}

func TestAssignmentHandlerAssignInvalidTrainerID(t *testing.T) {
	h := newAssignmentHandler(&assignCourseStoreMock{}, &detectorMock{}, &historyStoreMock{})

	c, w := adminContext(t, http.MethodPost, "/courses/3/assign", []byte(`{"trainerId":0}`))
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	h.Assign(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignmentHandlerHistoryFilters(t *testing.T) {
	history := &historyStoreMock{entries: []models.AssignmentHistory{
		{ID: 2, CourseID: 3, TrainerID: 5, Action: models.HistoryActionAssigned},
	}}
	h := newAssignmentHandler(&assignCourseStoreMock{}, &detectorMock{}, history)

	c, w := adminContext(t, http.MethodGet, "/assignments/history?courseId=3&trainerId=5&limit=10", nil)
	h.History(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, history.filters, 1)
	require.NotNil(t, history.filters[0].CourseID)
	assert.Equal(t, int64(3), *history.filters[0].CourseID)
	require.NotNil(t, history.filters[0].TrainerID)
	assert.Equal(t, int64(5), *history.filters[0].TrainerID)
	assert.Equal(t, 10, history.filters[0].Limit)
}

func TestAssignmentHandlerHistoryBadFilter(t *testing.T) {
	h := newAssignmentHandler(&assignCourseStoreMock{}, &detectorMock{}, &historyStoreMock{})

	c, w := adminContext(t, http.MethodGet, "/assignments/history?courseId=zero", nil)
	h.History(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
