package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIInvoker(t *testing.T) {
	var gotReq apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, apiVersion, r.Header.Get("Anthropic-Version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"done "},{"type":"text","text":"<promise>COMPLETE</promise>"}]}`))
	}))
	defer srv.Close()

	inv := &APIInvoker{
		APIKey:  "test-key",
		Model:   "claude-3-7-sonnet-20250219",
		BaseURL: srv.URL,
		Client:  srv.Client(),
		Timeout: 5 * time.Second,
	}

	out, err := inv.Invoke(context.Background(), Request{Prompt: "build it", Iteration: 1})
	require.NoError(t, err)
	assert.Equal(t, "done <promise>COMPLETE</promise>", out)

	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "build it", gotReq.Messages[0].Content)
	assert.Equal(t, "claude-3-7-sonnet-20250219", gotReq.Model)
}

func TestAPIInvokerErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	inv := &APIInvoker{APIKey: "k", Model: "m", BaseURL: srv.URL, Client: srv.Client()}

	_, err := inv.Invoke(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit_error")
	assert.Contains(t, err.Error(), "slow down")
}
