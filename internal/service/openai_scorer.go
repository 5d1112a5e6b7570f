package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seminar-ops/scheduling-api/internal/models"
	"github.com/seminar-ops/scheduling-api/pkg/config"
)

const maxReasonsPerSuggestion = 5

// OpenAIScorer ranks trainers through an external chat-completions model.
// Transient failures (HTTP 429/5xx, attempt timeouts) are retried with
// exponential backoff up to the configured attempt budget; anything else
// fails fast so the caller can fall back to the rule scorer.
type OpenAIScorer struct {
	apiKey         string
	model          string
	baseURL        string
	maxAttempts    int
	attemptTimeout time.Duration
	backoffBase    time.Duration
	httpClient     *http.Client
	sleep          func(ctx context.Context, d time.Duration) error
	logger         *zap.Logger
}

// NewOpenAIScorer constructs a scorer from matching configuration.
func NewOpenAIScorer(cfg config.MatchingConfig, logger *zap.Logger) *OpenAIScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	attemptTimeout := cfg.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = 15 * time.Second
	}
	backoffBase := cfg.BackoffBase
	if backoffBase <= 0 {
		backoffBase = 300 * time.Millisecond
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIScorer{
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		baseURL:        baseURL,
		maxAttempts:    maxAttempts,
		attemptTimeout: attemptTimeout,
		backoffBase:    backoffBase,
		httpClient:     &http.Client{},
		sleep:          sleepContext,
		logger:         logger,
	}
}

// Model returns the configured model identifier.
func (s *OpenAIScorer) Model() string {
	return s.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type rawSuggestion struct {
	TrainerID  json.Number   `json:"trainerId"`
	Score      json.Number   `json:"score"`
	MatchScore json.Number   `json:"matchScore"`
	Confidence json.Number   `json:"confidence"`
	Reasons    []interface{} `json:"reasons"`
	Reason     interface{}   `json:"reason"`
}

// Rank requests a JSON ranking from the external model and normalises it.
// Returned suggestions are clamped to [0,100], reasons truncated, and
// entries without a trainer id or reasons dropped. An empty or unparseable
// ranking is an error.
func (s *OpenAIScorer) Rank(ctx context.Context, course models.Course, trainers []models.Trainer, activeCourses []models.Course) ([]models.Suggestion, error) {
	if s.apiKey == "" {
		return nil, errors.New("external matching service not configured")
	}

	body := chatRequest{
		Model:       s.model,
		Temperature: 0.2,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(course, trainers)},
		},
	}
	body.ResponseFormat.Type = "json_object"
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal matching request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.backoffBase*time.Duration(1<<attempt)); err != nil {
				return nil, err
			}
		}

		suggestions, retryable, err := s.attempt(ctx, payload)
		if err == nil {
			return suggestions, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("matching attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

// attempt performs one request within the per-attempt timeout. The second
// return value reports whether the failure is retryable.
func (s *OpenAIScorer) attempt(ctx context.Context, payload []byte) ([]models.Suggestion, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("build matching request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport errors are retryable.
		return nil, true, fmt.Errorf("matching request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("matching service temporary error %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, false, fmt.Errorf("matching service failed: %d %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, false, fmt.Errorf("decode matching response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, false, errors.New("matching response missing content")
	}

	suggestions, err := normalizeSuggestions(parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, false, err
	}
	return suggestions, false, nil
}

func normalizeSuggestions(content string) ([]models.Suggestion, error) {
	var wrapper struct {
		Suggestions []rawSuggestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(content), &wrapper); err != nil {
		return nil, fmt.Errorf("parse matching content: %w", err)
	}

	normalized := make([]models.Suggestion, 0, len(wrapper.Suggestions))
	for _, raw := range wrapper.Suggestions {
		trainerID, err := raw.TrainerID.Int64()
		if err != nil || trainerID <= 0 {
			continue
		}
		score := numberOr(raw.Score, numberOr(raw.MatchScore, 0))
		confidence := numberOr(raw.Confidence, 0)

		reasons := make([]string, 0, len(raw.Reasons))
		for _, r := range raw.Reasons {
			if text := strings.TrimSpace(fmt.Sprintf("%v", r)); text != "" {
				reasons = append(reasons, text)
			}
		}
		if len(reasons) == 0 && raw.Reason != nil {
			if text := strings.TrimSpace(fmt.Sprintf("%v", raw.Reason)); text != "" {
				reasons = append(reasons, text)
			}
		}
		if len(reasons) == 0 {
			continue
		}
		if len(reasons) > maxReasonsPerSuggestion {
			reasons = reasons[:maxReasonsPerSuggestion]
		}

		normalized = append(normalized, models.Suggestion{
			TrainerID:  trainerID,
			Score:      clampInt(int(score+0.5), 0, 100),
			Confidence: clampInt(int(confidence+0.5), 0, 100),
			Reasons:    reasons,
		})
	}

	if len(normalized) == 0 {
		return nil, errors.New("matching response empty or unparseable")
	}
	if len(normalized) > maxSuggestions {
		normalized = normalized[:maxSuggestions]
	}
	return normalized, nil
}

func numberOr(n json.Number, fallback float64) float64 {
	if n == "" {
		return fallback
	}
	v, err := n.Float64()
	if err != nil {
		return fallback
	}
	return v
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

const systemPrompt = `You are an expert operations coordinator for in-person training. Recommend the best trainers for a given course.
Return ONLY JSON with this shape:
{
  "suggestions": [
    { "trainerId": number, "score": 0-100, "confidence": 0-100, "reasons": string[] }
  ]
}
Rules:
- Score must reflect subject expertise first, then location proximity, then availability, then experience/rating, then cost efficiency.
- Prefer trainers in the same city as the course; note travel if different.
- If availability data is missing, treat the trainer as flexible but do not boost score.
- If no strong match exists, return an empty array.
- Reasons must be concise (max 3) and evidence-based.
- Never invent trainers; use trainerId from the provided list.`

func buildUserPrompt(course models.Course, trainers []models.Trainer) string {
	var b strings.Builder
	notes := "none"
	if course.Notes != nil && *course.Notes != "" {
		notes = *course.Notes
	}
	fmt.Fprintf(&b, "Course:\n- id: %d\n- name: %s\n- subject(s): %s\n- location: %s\n- start: %s\n- end: %s\n- participants: %d\n- notes: %s\n\nTrainers:\n",
		course.ID, course.Name, strings.Join(course.Subject, ", "), course.Location,
		course.StartDate.UTC().Format(time.RFC3339), course.EndDate.UTC().Format(time.RFC3339),
		course.Participants, notes)

	for _, t := range trainers {
		rating := "n/a"
		if t.Rating != nil {
			rating = fmt.Sprintf("%d", *t.Rating)
		}
		rate := "n/a"
		if t.HourlyRate != nil {
			rate = fmt.Sprintf("%g", *t.HourlyRate)
		}
		availability := "not provided"
		if len(t.AvailabilityRanges) > 0 {
			windows := make([]string, 0, len(t.AvailabilityRanges))
			for _, r := range t.AvailabilityRanges {
				windows = append(windows, fmt.Sprintf("%s to %s", r.Start.UTC().Format(time.RFC3339), r.End.UTC().Format(time.RFC3339)))
			}
			availability = strings.Join(windows, " | ")
		}
		fmt.Fprintf(&b, "- id: %d; name: %s; subjects: %s; location: %s; rating: %s; hourlyRate: %s; availability: %s\n",
			t.ID, t.Name, strings.Join(t.TrainingSubjects, ", "), t.Location, rating, rate, availability)
	}

	b.WriteString("\nReturn the top 3-5 trainers ranked by fit.")
	return b.String()
}
