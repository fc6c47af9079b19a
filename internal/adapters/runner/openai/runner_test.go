package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoke233/metting/internal/domain"
)

func testExecution() domain.ExecutionContext {
	return domain.ExecutionContext{
		MeetingID:          "m-1",
		RunID:              "r-1",
		Round:              1,
		Speaker:            "Skeptic",
		Mode:               domain.ContextModeShared,
		SystemInstructions: "Be precise.",
		Task:               "Pick a queue",
	}
}

func collect(t *testing.T, runner *Runner) ([]domain.Event, error) {
	t.Helper()

	var events []domain.Event
	for event, err := range runner.Run(context.Background(), testExecution()) {
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}

	return events, nil
}

func newTestRunner(t *testing.T, baseURL string) *Runner {
	t.Helper()

	runner, err := NewRunner(Config{APIKey: "sk-test", BaseURL: baseURL, Model: "test-model"}, nil, nil)
	require.NoError(t, err)

	return runner
}

func TestNewRunnerRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewRunner(Config{}, nil, nil)
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNormalizeBaseURL(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"":                          "https://api.openai.com/v1",
		"https://api.openai.com":    "https://api.openai.com/v1",
		"https://gateway.local/v1/": "https://gateway.local/v1",
		"gateway.local:8443":        "https://gateway.local:8443/v1",
		"http://127.0.0.1:1234/v1":  "http://127.0.0.1:1234/v1",
	}

	for input, want := range testCases {
		assert.Equal(t, want, normalizeBaseURL(input), input)
	}
}

func TestRunnerStreamsTokensAndFinalMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Stream)
		assert.Equal(t, "test-model", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "Be precise.", body.Messages[0].Content)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"Use ", "Kafka"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	events, err := collect(t, newTestRunner(t, server.URL))
	require.NoError(t, err)
	require.Len(t, events, 3)

	first, ok := events[0].Payload.(domain.TokenPayload)
	require.True(t, ok)
	assert.Equal(t, "Use ", first.Text)
	assert.Equal(t, "agent:Skeptic", events[0].Actor)

	final, ok := events[2].Payload.(domain.AgentMessagePayload)
	require.True(t, ok)
	assert.Equal(t, "Use Kafka", final.Message.Content)
	assert.Equal(t, first.MessageID, final.MessageID)
	assert.Equal(t, "Skeptic", final.Message.Name)
}

func TestRunnerFallsBackToNonStreamingCall(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Stream {
			http.Error(w, "stream unsupported", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": " fallback answer "}},
			},
		})
	}))
	defer server.Close()

	events, err := collect(t, newTestRunner(t, server.URL+"/v1"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int32(2), calls.Load())

	final, ok := events[0].Payload.(domain.AgentMessagePayload)
	require.True(t, ok)
	assert.Equal(t, "fallback answer", final.Message.Content)
}

func TestRunnerFailsWhenFallbackFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := collect(t, newTestRunner(t, server.URL))
	require.Error(t, err)
	assert.ErrorContains(t, err, "openai.api_key")
	assert.ErrorContains(t, err, "openai.base_url")
	assert.ErrorContains(t, err, "500")
}

func TestBuildPromptIncludesHistoryMemoryAndTask(t *testing.T) {
	t.Parallel()

	execution := testExecution()
	execution.SystemInstructions = ""
	execution.Mode = domain.ContextModeLayered
	execution.PrivateMemory = &domain.Memory{Assumptions: []string{"peak 1k qps"}}
	execution.Limits.HistoryMaxMessages = 1
	execution.Messages = []domain.Message{
		{Role: domain.MessageRoleAssistant, Content: "old", Name: "Infra Architect"},
		{Role: domain.MessageRoleSystem, Content: "latest summary", Name: "summary"},
	}

	messages := buildPrompt(execution)
	require.Len(t, messages, 2)
	assert.Equal(t, "你是Skeptic。", messages[0].Content)

	user := messages[1].Content
	assert.True(t, strings.HasPrefix(user, "公共摘要:\nsummary: latest summary\n\n私有记忆:\n"))
	assert.NotContains(t, user, "old")
	assert.Contains(t, user, "peak 1k qps")
	assert.True(t, strings.HasSuffix(user, "任务:\nPick a queue\n\n请以Skeptic身份作答。"))
}

func TestBuildPromptSkipsMemoryInSharedMode(t *testing.T) {
	t.Parallel()

	execution := testExecution()
	execution.PrivateMemory = &domain.Memory{Assumptions: []string{"hidden"}}

	messages := buildPrompt(execution)
	assert.NotContains(t, messages[1].Content, "私有记忆")
}
