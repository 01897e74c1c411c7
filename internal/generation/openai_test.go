package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "{\"overall\": 72}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120}
		}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(OpenAIConfig{
		BaseURL: srv.URL + "/v1",
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
	})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), Request{
		System:    "You are an evaluator.",
		User:      "Evaluate this vendor.",
		ForceJSON: true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"overall": 72}`, resp.Content)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.Equal(t, 120, resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", gotReq["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, gotReq["response_format"])

	msgs, ok := gotReq["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, map[string]any{"role": "system", "content": "You are an evaluator."}, msgs[0])
}

func TestOpenAIClient_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), Request{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIClient_NoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{User: "hi"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 400, statusErr.Code)
	assert.Contains(t, statusErr.Error(), "status 400")
}

func TestOpenAIClient_RequiresModel(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{})
	require.Error(t, err)
}

func TestMockClient_MatchesBySubstring(t *testing.T) {
	client := NewMockClient("mock-model",
		MockResponse{Match: "delivery", Content: `{"role": "delivery"}`},
		MockResponse{Content: `{"role": "any"}`},
	)

	resp, err := client.Complete(context.Background(), Request{User: "assess delivery risk"})
	require.NoError(t, err)
	assert.Equal(t, `{"role": "delivery"}`, resp.Content)

	resp, err = client.Complete(context.Background(), Request{User: "something else"})
	require.NoError(t, err)
	assert.Equal(t, `{"role": "any"}`, resp.Content)

	assert.Len(t, client.Calls(), 2)
}
