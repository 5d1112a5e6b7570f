package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seminar-ops/scheduling-api/internal/dto"
	"github.com/seminar-ops/scheduling-api/internal/models"
	"github.com/seminar-ops/scheduling-api/internal/service"
	"github.com/seminar-ops/scheduling-api/pkg/response"
)

// MatchingHandler exposes trainer recommendations.
type MatchingHandler struct {
	service *service.MatchingService
}

// NewMatchingHandler constructs a matching handler.
func NewMatchingHandler(svc *service.MatchingService) *MatchingHandler {
	return &MatchingHandler{service: svc}
}

// Match godoc
// @Summary Recommend trainers for a course
// @Description Ranks the trainer pool for the course. Falls back to the
// @Description rule-based scorer when the external model is unavailable;
// @Description source is "cached" when served from the suggestion cache.
// @Tags Matching
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/match [get]
func (h *MatchingHandler) Match(c *gin.Context) {
	courseID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, trainers, err := h.service.MatchForCourse(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, buildMatchResponse(result, trainers), nil)
}

func buildMatchResponse(result *models.TrainerMatchResult, trainers []models.Trainer) dto.MatchResponse {
	byID := make(map[int64]*models.Trainer, len(trainers))
	for i := range trainers {
		byID[trainers[i].ID] = &trainers[i]
	}

	source := string(result.Source)
	if result.UsedCache {
		source = "cached"
	}

	suggestions := make([]dto.MatchSuggestion, 0, len(result.Suggestions))
	for _, s := range result.Suggestions {
		suggestions = append(suggestions, dto.MatchSuggestion{
			Suggestion: s,
			Source:     string(result.Source),
			Trainer:    byID[s.TrainerID],
		})
	}

	return dto.MatchResponse{
		Suggestions:    suggestions,
		Source:         source,
		UsedCache:      result.UsedCache,
		Model:          result.Model,
		FallbackReason: result.FallbackReason,
		Error:          result.Error,
	}
}
