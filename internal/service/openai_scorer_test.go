package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seminar-ops/scheduling-api/internal/models"
	"github.com/seminar-ops/scheduling-api/pkg/config"
)

func newTestScorer(t *testing.T, handler http.HandlerFunc) (*OpenAIScorer, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	scorer := NewOpenAIScorer(config.MatchingConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: server.URL,
	}, nil)
	scorer.httpClient = server.Client()

	var slept []time.Duration
	scorer.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return scorer, &slept
}

func chatCompletion(t *testing.T, content string) []byte {
	t.Helper()
	payload := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return data
}

func TestOpenAIScorerRetriesTransientErrors(t *testing.T) {
	course, trainers := matchFixture()
	var calls int
	scorer, slept := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		switch calls {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write(chatCompletion(t, `{"suggestions":[{"trainerId":5,"score":91,"confidence":84,"reasons":["Strong subject fit"]}]}`))
		}
	})

	suggestions, err := scorer.Rank(context.Background(), course, trainers, nil)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, int64(5), suggestions[0].TrainerID)
	assert.Equal(t, 91, suggestions[0].Score)
	assert.Equal(t, 3, calls)
	// Backoff doubles per retry.
	require.Len(t, *slept, 2)
	assert.Equal(t, 600*time.Millisecond, (*slept)[0])
	assert.Equal(t, 1200*time.Millisecond, (*slept)[1])
}

func TestOpenAIScorerExhaustsAttempts(t *testing.T) {
	course, trainers := matchFixture()
	var calls int
	scorer, _ := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := scorer.Rank(context.Background(), course, trainers, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matching service temporary error 503")
	assert.Equal(t, 3, calls)
}

func TestOpenAIScorerFailsFastOnClientError(t *testing.T) {
	course, trainers := matchFixture()
	var calls int
	scorer, slept := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "invalid model")
	})

	_, err := scorer.Rank(context.Background(), course, trainers, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400 invalid model")
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestOpenAIScorerRequiresAPIKey(t *testing.T) {
	course, trainers := matchFixture()
	scorer := NewOpenAIScorer(config.MatchingConfig{Model: "gpt-4o-mini"}, nil)

	_, err := scorer.Rank(context.Background(), course, trainers, nil)
	require.Error(t, err)
	assert.Equal(t, "external matching service not configured", err.Error())
}

func TestOpenAIScorerEmptyRankingIsAnError(t *testing.T) {
	course, trainers := matchFixture()
	scorer, _ := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(chatCompletion(t, `{"suggestions":[]}`))
	})

	_, err := scorer.Rank(context.Background(), course, trainers, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty or unparseable")
}

func TestNormalizeSuggestions(t *testing.T) {
	content := `{"suggestions":[
		{"trainerId":5,"matchScore":130.4,"confidence":88,"reasons":["a","b","c","d","e","f","g"]},
		{"trainerId":6,"score":-12,"confidence":70,"reason":"single reason"},
		{"trainerId":0,"score":50,"confidence":50,"reasons":["dropped, no id"]},
		{"trainerId":7,"score":50,"confidence":50,"reasons":["  "]}
	]}`

	suggestions, err := normalizeSuggestions(content)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	// matchScore is accepted as an alias, scores clamp to [0,100] and
	// reasons truncate to five.
	assert.Equal(t, int64(5), suggestions[0].TrainerID)
	assert.Equal(t, 100, suggestions[0].Score)
	assert.Len(t, suggestions[0].Reasons, 5)

	assert.Equal(t, int64(6), suggestions[1].TrainerID)
	assert.Equal(t, 0, suggestions[1].Score)
	assert.Equal(t, []string{"single reason"}, suggestions[1].Reasons)
}

func TestNormalizeSuggestionsCapsAtFive(t *testing.T) {
	var entries []string
	for i := 1; i <= 8; i++ {
		entries = append(entries, fmt.Sprintf(`{"trainerId":%d,"score":%d,"confidence":60,"reasons":["fit"]}`, i, 100-i))
	}
	content := fmt.Sprintf(`{"suggestions":[%s]}`, strings.Join(entries, ","))

	suggestions, err := normalizeSuggestions(content)
	require.NoError(t, err)
	assert.Len(t, suggestions, 5)
}

func TestOpenAIScorerMatchingServiceIntegration(t *testing.T) {
	course, trainers := matchFixture()
	scorer, _ := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(chatCompletion(t, `{"suggestions":[{"trainerId":5,"score":91,"confidence":84,"reasons":["Strong subject fit"]}]}`))
	})

	svc := NewMatchingService(nil, nil, scorer, NewRuleScorer(), nil, scorer.Model(), nil, nil)
	result, err := svc.Match(context.Background(), course, trainers, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchSourcePrimary, result.Source)
	assert.Equal(t, "gpt-4o-mini", result.Model)
}
