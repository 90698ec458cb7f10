package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model          string  `json:"model"`
	Temperature    float64 `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func fakeEndpoint(t *testing.T, status int, body string, got *capturedRequest, auth *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if auth != nil {
			*auth = r.Header.Get("Authorization")
		}
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const okBody = `{
  "id": "cmpl-1",
  "object": "chat.completion",
  "model": "test-model",
  "choices": [{"index": 0, "finish_reason": "stop",
    "message": {"role": "assistant", "content": "  {\"action\":\"unknown\"}  "}}]
}`

func TestComplete_SendsRequestAndReturnsContent(t *testing.T) {
	var got capturedRequest
	var auth string
	srv := fakeEndpoint(t, http.StatusOK, okBody, &got, &auth)

	c := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/", Model: "test-model", Timeout: 5 * time.Second})
	out, err := c.Complete(context.Background(), Request{
		System:      "sys",
		User:        "thêm chi tiêu ăn trưa 50k",
		Temperature: 0.3,
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"action":"unknown"}`, out)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "test-model", got.Model)
	assert.InDelta(t, 0.3, got.Temperature, 1e-6)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "thêm chi tiêu ăn trưa 50k", got.Messages[1].Content)
}

func TestComplete_NoSystemNoJSON(t *testing.T) {
	var got capturedRequest
	srv := fakeEndpoint(t, http.StatusOK, okBody, &got, nil)

	c := New(Config{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	_, err := c.Complete(context.Background(), Request{User: "hi"})
	require.NoError(t, err)
	assert.Nil(t, got.ResponseFormat)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := fakeEndpoint(t, http.StatusOK, `{"id":"x","object":"chat.completion","choices":[]}`, nil, nil)
	c := New(Config{APIKey: "k", BaseURL: srv.URL, Model: "m"})

	_, err := c.Complete(context.Background(), Request{User: "hi"})
	assert.True(t, errors.Is(err, ErrEmptyCompletion), "got %v", err)
}

func TestComplete_BlankContent(t *testing.T) {
	body := `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"   "}}]}`
	srv := fakeEndpoint(t, http.StatusOK, body, nil, nil)
	c := New(Config{APIKey: "k", BaseURL: srv.URL, Model: "m"})

	_, err := c.Complete(context.Background(), Request{User: "hi"})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestComplete_APIError(t *testing.T) {
	srv := fakeEndpoint(t, http.StatusInternalServerError,
		`{"error":{"message":"upstream exploded","type":"server_error"}}`, nil, nil)
	c := New(Config{APIKey: "k", BaseURL: srv.URL, Model: "m"})

	_, err := c.Complete(context.Background(), Request{User: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
	assert.NotErrorIs(t, err, ErrEmptyCompletion)
}

func TestComplete_ContextCanceled(t *testing.T) {
	srv := fakeEndpoint(t, http.StatusOK, okBody, nil, nil)
	c := New(Config{APIKey: "k", BaseURL: srv.URL, Model: "m"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Complete(ctx, Request{User: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModel(t *testing.T) {
	assert.Equal(t, "m", New(Config{Model: "m"}).Model())
}
