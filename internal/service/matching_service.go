package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/seminar-ops/scheduling-api/internal/models"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
)

// Scorer ranks the trainer pool against a course. The rule scorer and the
// external-model scorer both satisfy it.
type Scorer interface {
	Rank(ctx context.Context, course models.Course, trainers []models.Trainer, activeCourses []models.Course) ([]models.Suggestion, error)
}

type matchingCourseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
}

type matchingTrainerLister interface {
	List(ctx context.Context) ([]models.Trainer, error)
}

// MatchingService coordinates the two ranking strategies behind a single
// cache. The primary scorer handles transient-failure retries internally;
// any failure it surfaces downgrades the request to the rule-based
// fallback, which always completes. Only context cancellation aborts a
// match, and a cancelled match writes nothing to the cache.
type MatchingService struct {
	courses  matchingCourseReader
	trainers matchingTrainerLister
	primary  Scorer
	fallback Scorer
	cache    SuggestionCache
	model    string
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewMatchingService builds a MatchingService. primary may be nil when no
// external matching service is configured.
func NewMatchingService(
	courses matchingCourseReader,
	trainers matchingTrainerLister,
	primary Scorer,
	fallback Scorer,
	cache SuggestionCache,
	model string,
	metrics *MetricsService,
	logger *zap.Logger,
) *MatchingService {
	if fallback == nil {
		fallback = NewRuleScorer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchingService{
		courses:  courses,
		trainers: trainers,
		primary:  primary,
		fallback: fallback,
		cache:    cache,
		model:    model,
		metrics:  metrics,
		logger:   logger,
	}
}

// MatchForCourse loads the course, the trainer pool, and the active
// schedule, then ranks the pool.
func (s *MatchingService) MatchForCourse(ctx context.Context, courseID int64) (*models.TrainerMatchResult, []models.Trainer, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	trainers, err := s.trainers.List(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trainers")
	}

	activeCourses, err := s.courses.List(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	result, err := s.Match(ctx, *course, trainers, activeCourses)
	if err != nil {
		return nil, nil, err
	}
	return result, trainers, nil
}

// Match ranks the trainer pool for the course. It always returns a result
// unless the context is cancelled: an empty pool yields an empty fallback
// result, a primary failure yields the rule-based ranking with
// FallbackReason set, and a fresh cache entry short-circuits both.
func (s *MatchingService) Match(ctx context.Context, course models.Course, trainers []models.Trainer, activeCourses []models.Course) (*models.TrainerMatchResult, error) {
	if len(trainers) == 0 {
		return &models.TrainerMatchResult{
			Suggestions:    []models.Suggestion{},
			Source:         models.MatchSourceFallback,
			FallbackReason: "no trainers available",
		}, nil
	}

	key := buildMatchCacheKey(course, trainers)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			result := *cached
			result.UsedCache = true
			s.recordOutcome(result.Source, true)
			s.logger.Info("trainer match served from cache",
				zap.Int64("course_id", course.ID),
				zap.String("source", string(result.Source)),
				zap.Int("suggestions", len(result.Suggestions)),
			)
			return &result, nil
		}
	}

	result := s.rank(ctx, course, trainers, activeCourses)
	if ctx.Err() != nil {
		// Abandoned request: surface the cancellation and keep the cache
		// untouched.
		return nil, ctx.Err()
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, *result)
	}
	s.recordOutcome(result.Source, false)
	return result, nil
}

func (s *MatchingService) rank(ctx context.Context, course models.Course, trainers []models.Trainer, activeCourses []models.Course) *models.TrainerMatchResult {
	if s.primary != nil {
		suggestions, err := s.primary.Rank(ctx, course, trainers, activeCourses)
		if err == nil {
			return &models.TrainerMatchResult{
				Suggestions: filterKnownTrainers(suggestions, trainers),
				Source:      models.MatchSourcePrimary,
				Model:       s.model,
			}
		}
		if ctx.Err() != nil {
			return &models.TrainerMatchResult{}
		}
		s.logger.Warn("primary trainer matching failed, using rule-based fallback",
			zap.Int64("course_id", course.ID),
			zap.Error(err),
		)
		suggestions, _ = s.fallback.Rank(ctx, course, trainers, activeCourses)
		return &models.TrainerMatchResult{
			Suggestions:    suggestions,
			Source:         models.MatchSourceFallback,
			Model:          s.model,
			FallbackReason: err.Error(),
			Error:          err.Error(),
		}
	}

	suggestions, _ := s.fallback.Rank(ctx, course, trainers, activeCourses)
	return &models.TrainerMatchResult{
		Suggestions:    suggestions,
		Source:         models.MatchSourceFallback,
		FallbackReason: "external matching service not configured",
	}
}

func (s *MatchingService) recordOutcome(source models.MatchSource, cached bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordMatchOutcome(string(source), cached)
}

// buildMatchCacheKey composes the freshness signature: the course id and
// last-modified time plus each trainer's id and last-modified time. Any
// edit to the course or the pool changes the key.
func buildMatchCacheKey(course models.Course, trainers []models.Trainer) string {
	parts := make([]string, 0, len(trainers))
	for _, t := range trainers {
		parts = append(parts, fmt.Sprintf("%d:%d", t.ID, t.UpdatedAt.UnixMilli()))
	}
	return fmt.Sprintf("match:%d:%d:%s", course.ID, course.UpdatedAt.UnixMilli(), strings.Join(parts, "|"))
}

// filterKnownTrainers drops suggestions referencing trainers outside the
// supplied pool. The external model must not invent trainers.
func filterKnownTrainers(suggestions []models.Suggestion, trainers []models.Trainer) []models.Suggestion {
	known := make(map[int64]struct{}, len(trainers))
	for _, t := range trainers {
		known[t.ID] = struct{}{}
	}
	filtered := make([]models.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if _, ok := known[s.TrainerID]; ok {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
