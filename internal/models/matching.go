package models

// MatchSource identifies which scorer produced a match result.
type MatchSource string

const (
	MatchSourcePrimary  MatchSource = "primary"
	MatchSourceFallback MatchSource = "fallback"
)

// Suggestion is one ranked trainer recommendation.
type Suggestion struct {
	TrainerID  int64    `json:"trainerId"`
	Score      int      `json:"score"`
	Confidence int      `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// TrainerMatchResult is the outcome of a recommendation request. The
// fallback path always yields a result; FallbackReason explains why the
// primary scorer was skipped or abandoned.
type TrainerMatchResult struct {
	Suggestions    []Suggestion `json:"suggestions"`
	Source         MatchSource  `json:"source"`
	UsedCache      bool         `json:"usedCache"`
	Model          string       `json:"model,omitempty"`
	FallbackReason string       `json:"fallbackReason,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// EmailStatus reports the outcome of the best-effort assignment
// notification alongside a successful assignment.
type EmailStatus struct {
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}
