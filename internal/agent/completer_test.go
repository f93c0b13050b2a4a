package agent_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dairy/internal/agent"
)

func TestOpenAICompleter(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","created":1,"model":"llama-3.1-8b-instant",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Milk volume is steady."}}]}`))
	}))
	t.Cleanup(srv.Close)

	c := agent.NewOpenAICompleter(agent.OpenAIConfig{
		BaseURL:     srv.URL + "/openai/v1/",
		APIKey:      "gsk_test",
		Model:       "llama-3.1-8b-instant",
		Temperature: 0.3,
		Timeout:     time.Second,
	})
	reply, err := c.Complete(context.Background(), agent.SystemPrompt, "How is volume?")
	require.NoError(t, err)
	require.Equal(t, "Milk volume is steady.", reply)

	require.Equal(t, "Bearer gsk_test", auth)
	require.True(t, strings.HasSuffix(path, "/chat/completions"), path)
	require.Equal(t, "llama-3.1-8b-instant", got.Model)
	require.InDelta(t, 0.3, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Equal(t, agent.SystemPrompt, got.Messages[0].Content)
	require.Equal(t, "How is volume?", got.Messages[1].Content)
}

func TestOpenAICompleterUpstreamError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	t.Cleanup(srv.Close)

	c := agent.NewOpenAICompleter(agent.OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m", Timeout: time.Second})
	_, err := c.Complete(context.Background(), "s", "p")
	require.Error(t, err)
	require.Equal(t, 1, calls, "retries are disabled")
}

func TestOpenAICompleterEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	t.Cleanup(srv.Close)

	c := agent.NewOpenAICompleter(agent.OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m", Timeout: time.Second})
	_, err := c.Complete(context.Background(), "s", "p")
	require.ErrorIs(t, err, agent.ErrEmptyCompletion)
}
