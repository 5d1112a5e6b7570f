package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seminar-ops/scheduling-api/internal/models"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
)

type stubScorer struct {
	suggestions []models.Suggestion
	err         error
	calls       int
}

func (s *stubScorer) Rank(ctx context.Context, course models.Course, trainers []models.Trainer, activeCourses []models.Course) ([]models.Suggestion, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.suggestions, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func matchFixture() (models.Course, []models.Trainer) {
	course := models.Course{ID: 1, Name: "Go Fundamentals", Subject: []string{"Go"}, Location: "Paris",
		StartDate: day(10), EndDate: day(12), UpdatedAt: day(1)}
	trainers := []models.Trainer{
		{ID: 5, Name: "Alice Martin", Location: "Paris", TrainingSubjects: []string{"Go"}, UpdatedAt: day(1)},
		{ID: 6, Name: "Bob Stone", Location: "Lyon", TrainingSubjects: []string{"Go"}, UpdatedAt: day(1)},
	}
	return course, trainers
}

func TestMatchUsesPrimaryAndCaches(t *testing.T) {
	course, trainers := matchFixture()
	primary := &stubScorer{suggestions: []models.Suggestion{
		{TrainerID: 5, Score: 90, Confidence: 80, Reasons: []string{"Strong subject fit"}},
	}}
	clock := &fakeClock{now: day(1)}
	cache := NewMemorySuggestionCache(5*time.Minute, clock.Now)
	svc := NewMatchingService(nil, nil, primary, NewRuleScorer(), cache, "gpt-4o-mini", nil, nil)

	result, err := svc.Match(context.Background(), course, trainers, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchSourcePrimary, result.Source)
	assert.Equal(t, "gpt-4o-mini", result.Model)
	assert.False(t, result.UsedCache)
	require.Len(t, result.Suggestions, 1)

	again, err := svc.Match(context.Background(), course, trainers, nil)
	require.NoError(t, err)
	assert.True(t, again.UsedCache)
	assert.Equal(t, models.MatchSourcePrimary, again.Source)
	assert.Equal(t, 1, primary.calls)
}

func TestMatchCacheExpiresAfterTTL(t *testing.T) {
	course, trainers := matchFixture()
	primary := &stubScorer{suggestions: []models.Suggestion{{TrainerID: 5, Score: 90, Confidence: 80, Reasons: []string{"fit"}}}}
	clock := &fakeClock{now: day(1)}
	cache := NewMemorySuggestionCache(5*time.Minute, clock.Now)
	svc := NewMatchingService(nil, nil, primary, NewRuleScorer(), cache, "gpt-4o-mini", nil, nil)

	_, err := svc.Match(context.Background(), course, trainers, nil)
	require.NoError(t, err)

	clock.Advance(4 * time.Minute)
	result, err := svc.Match(context.Background(), course, trainers, nil)
	require.NoError(t, err)
	assert.True(t, result.UsedCache)
	assert.Equal(t, 1, primary.calls)

	clock.Advance(2 * time.Minute)
	result, err = svc.Match(context.Background(), course, trainers, nil)
	require.NoError(t, err)
	assert.False(t, result.UsedCache)
	assert.Equal(t, 2, primary.calls)
}

func TestMatchCacheInvalidatedByTrainerEdit(t *testing.T) {
	course, trainers := matchFixture()
	primary := &stubScorer{suggestions: []models.Suggestion{{TrainerID: 5, Score: 90, Confidence: 80, Reasons: []string{"fit"}}}}
	cache := NewMemorySuggestionCache(5*time.Minute, nil)
	svc := NewMatchingService(nil, nil, primary, NewRuleScorer(), cache, "gpt-4o-mini", nil, nil)

	_, err := svc.Match(context.Background(), course, trainers, nil)
	require.NoError(t, err)

	trainers[1].UpdatedAt = trainers[1].UpdatedAt.Add(time.Second)
	result, err := svc.Match(context.Background(), course, trainers, nil)
	require.NoError(t, err)
	assert.False(t, result.UsedCache)
	assert.Equal(t, 2, primary.calls)
}

func TestMatchFallsBackOnPrimaryFailure(t *testing.T) {
	course, trainers := matchFixture()
	primary := &stubScorer{err: errors.New("matching service temporary error 503")}
	cache := NewMemorySuggestionCache(5*time.Minute, nil)
	svc := NewMatchingService(nil, nil, primary, NewRuleScorer(), cache, "gpt-4o-mini", nil, nil)

	result, err := svc.Match(context.Background(), course, trainers, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchSourceFallback, result.Source)
	assert.Equal(t, "matching service temporary error 503", result.FallbackReason)
	assert.NotEmpty(t, result.Suggestions)

	// The fallback result is cached like any other.
	again, err := svc.Match(context.Background(), course, trainers, nil)
	require.NoError(t, err)
	assert.True(t, again.UsedCache)
	assert.Equal(t, models.MatchSourceFallback, again.Source)
	assert.Equal(t, 1, primary.calls)
}

func TestMatchWithoutPrimaryUsesRules(t *testing.T) {
	course, trainers := matchFixture()
	svc := NewMatchingService(nil, nil, nil, NewRuleScorer(), NewMemorySuggestionCache(5*time.Minute, nil), "", nil, nil)

	result, err := svc.Match(context.Background(), course, trainers, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchSourceFallback, result.Source)
	assert.Equal(t, "external matching service not configured", result.FallbackReason)
	assert.NotEmpty(t, result.Suggestions)
}

func TestMatchEmptyPool(t *testing.T) {
	course, _ := matchFixture()
	cache := NewMemorySuggestionCache(5*time.Minute, nil)
	svc := NewMatchingService(nil, nil, nil, NewRuleScorer(), cache, "", nil, nil)

	result, err := svc.Match(context.Background(), course, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Suggestions)
	assert.Equal(t, models.MatchSourceFallback, result.Source)
	assert.Equal(t, "no trainers available", result.FallbackReason)
	assert.Empty(t, cache.entries)
}

func TestMatchCancelledContextWritesNothing(t *testing.T) {
	course, trainers := matchFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &stubScorer{err: context.Canceled}
	cache := NewMemorySuggestionCache(5*time.Minute, nil)
	svc := NewMatchingService(nil, nil, primary, NewRuleScorer(), cache, "gpt-4o-mini", nil, nil)

	_, err := svc.Match(ctx, course, trainers, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, cache.entries)
}

func TestMatchFiltersUnknownTrainers(t *testing.T) {
	course, trainers := matchFixture()
	primary := &stubScorer{suggestions: []models.Suggestion{
		{TrainerID: 5, Score: 90, Confidence: 80, Reasons: []string{"fit"}},
		{TrainerID: 99, Score: 95, Confidence: 90, Reasons: []string{"invented"}},
	}}
	svc := NewMatchingService(nil, nil, primary, NewRuleScorer(), nil, "gpt-4o-mini", nil, nil)

	result, err := svc.Match(context.Background(), course, trainers, nil)
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, int64(5), result.Suggestions[0].TrainerID)
}

type fakeMatchCourseStore struct {
	course *models.Course
	list   []models.Course
}

func (f *fakeMatchCourseStore) FindByID(_ context.Context, id int64) (*models.Course, error) {
	if f.course == nil || f.course.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *f.course
	return &cp, nil
}

func (f *fakeMatchCourseStore) List(_ context.Context) ([]models.Course, error) {
	return f.list, nil
}

type fakeMatchTrainerStore struct {
	trainers []models.Trainer
}

func (f *fakeMatchTrainerStore) List(_ context.Context) ([]models.Trainer, error) {
	return f.trainers, nil
}

func TestMatchForCourseNotFound(t *testing.T) {
	svc := NewMatchingService(&fakeMatchCourseStore{}, &fakeMatchTrainerStore{}, nil, NewRuleScorer(), nil, "", nil, nil)

	_, _, err := svc.MatchForCourse(context.Background(), 42)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestMatchForCourseRanksPool(t *testing.T) {
	course, trainers := matchFixture()
	svc := NewMatchingService(
		&fakeMatchCourseStore{course: &course, list: []models.Course{course}},
		&fakeMatchTrainerStore{trainers: trainers},
		nil, NewRuleScorer(), nil, "", nil, nil,
	)

	result, pool, err := svc.MatchForCourse(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Len(t, pool, 2)
	require.NotEmpty(t, result.Suggestions)
	// The Paris trainer with the matching subject ranks first.
	assert.Equal(t, int64(5), result.Suggestions[0].TrainerID)
}
