package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-counselor-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, apiKey string, handler http.HandlerFunc) *HuggingFaceProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHuggingFaceProvider(apiKey, srv.URL, "meta-llama/Llama-3.1-8B-Instruct")
}

func TestChatPostsCompletionRequest(t *testing.T) {
	var got chatRequest
	var auth string
	p := newServer(t, "hf_secret", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"That sounds hard."}}]}`))
	})

	reply, err := p.Chat(context.Background(), []llm.Message{
		{Role: "system", Content: "be kind"},
		{Role: "user", Content: "rough day"},
	}, llm.WithTemperature(0.3), llm.WithJSONMode())

	require.NoError(t, err)
	assert.Equal(t, "That sounds hard.", reply)
	assert.Equal(t, "Bearer hf_secret", auth)
	assert.Equal(t, "meta-llama/Llama-3.1-8B-Instruct", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	assert.Equal(t, 0.3, got.Temperature)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.Len(t, got.Messages, 2)
}

func TestMissingKeySendsNoAuthorization(t *testing.T) {
	p := newServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	reply, err := p.Generate(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}

func TestProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"non-ok status", http.StatusTooManyRequests, `rate limited`, "status 429"},
		{"error body", http.StatusOK, `{"error":{"message":"model is loading"}}`, "model is loading"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "empty choices"},
		{"garbage", http.StatusOK, `<html>`, "failed to decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newServer(t, "k", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.Generate(context.Background(), "hi")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
