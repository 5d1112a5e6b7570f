package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seminar-ops/scheduling-api/internal/dto"
	"github.com/seminar-ops/scheduling-api/internal/models"
	"github.com/seminar-ops/scheduling-api/internal/service"
)

type matchCourseReaderMock struct {
	course *models.Course
}

func (m *matchCourseReaderMock) FindByID(_ context.Context, id int64) (*models.Course, error) {
	if m.course == nil || m.course.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *m.course
	return &cp, nil
}

func (m *matchCourseReaderMock) List(_ context.Context) ([]models.Course, error) {
	if m.course == nil {
		return nil, nil
	}
	return []models.Course{*m.course}, nil
}

type matchTrainerListerMock struct {
	trainers []models.Trainer
}

func (m *matchTrainerListerMock) List(_ context.Context) ([]models.Trainer, error) {
	return m.trainers, nil
}

func TestMatchingHandlerMatchFallback(t *testing.T) {
	course := &models.Course{ID: 3, Name: "Go Fundamentals", Subject: []string{"Go"}, Location: "Paris",
		StartDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)}
	trainers := &matchTrainerListerMock{trainers: []models.Trainer{
		{ID: 5, Name: "Alice Martin", Location: "Paris", TrainingSubjects: []string{"Go"}},
	}}
	svc := service.NewMatchingService(&matchCourseReaderMock{course: course}, trainers, nil, service.NewRuleScorer(), nil, "", nil, nil)
	h := NewMatchingHandler(svc)

	c, w := adminContext(t, http.MethodGet, "/courses/3/match", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	h.Match(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data dto.MatchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "fallback", body.Data.Source)
	assert.Equal(t, "external matching service not configured", body.Data.FallbackReason)
	require.Len(t, body.Data.Suggestions, 1)
	require.NotNil(t, body.Data.Suggestions[0].Trainer)
	assert.Equal(t, "Alice Martin", body.Data.Suggestions[0].Trainer.Name)
}

func TestMatchingHandlerCachedSource(t *testing.T) {
	course := &models.Course{ID: 3, Name: "Go Fundamentals", Subject: []string{"Go"}, Location: "Paris",
		StartDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)}
	trainers := &matchTrainerListerMock{trainers: []models.Trainer{
		{ID: 5, Name: "Alice Martin", Location: "Paris", TrainingSubjects: []string{"Go"}},
	}}
	cache := service.NewMemorySuggestionCache(5*time.Minute, nil)
	svc := service.NewMatchingService(&matchCourseReaderMock{course: course}, trainers, nil, service.NewRuleScorer(), cache, "", nil, nil)
	h := NewMatchingHandler(svc)

	c, _ := adminContext(t, http.MethodGet, "/courses/3/match", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	h.Match(c)

	c, w := adminContext(t, http.MethodGet, "/courses/3/match", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	h.Match(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data dto.MatchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "cached", body.Data.Source)
	assert.True(t, body.Data.UsedCache)
}

func TestMatchingHandlerCourseNotFound(t *testing.T) {
	svc := service.NewMatchingService(&matchCourseReaderMock{}, &matchTrainerListerMock{}, nil, service.NewRuleScorer(), nil, "", nil, nil)
	h := NewMatchingHandler(svc)

	c, w := adminContext(t, http.MethodGet, "/courses/42/match", nil)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	h.Match(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
