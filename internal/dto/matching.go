package dto

import "github.com/seminar-ops/scheduling-api/internal/models"

// MatchSuggestion is one ranked recommendation with the trainer embedded
// for display.
type MatchSuggestion struct {
	models.Suggestion
	Source  string          `json:"source"`
	Trainer *models.Trainer `json:"trainer,omitempty"`
}

// MatchResponse is the HTTP payload of GET /courses/:id/match. Source is
// "cached" when the result came from the suggestion cache.
type MatchResponse struct {
	Suggestions    []MatchSuggestion `json:"suggestions"`
	Source         string            `json:"source"`
	UsedCache      bool              `json:"usedCache"`
	Model          string            `json:"model,omitempty"`
	FallbackReason string            `json:"fallbackReason,omitempty"`
	Error          string            `json:"error,omitempty"`
}
