package llm

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

func TestOpenAIClient_Complete(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, "system", req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Hello, how can I help?"}},
			},
			"usage": map[string]int{"prompt_tokens": 42, "completion_tokens": 9},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "gpt-4o-mini", Timeout: 5 * time.Second})

	resp, err := c.Complete(context.Background(), CompletionRequest{
		System:   "You are an intake assistant.",
		Messages: []Message{{Role: "user", Content: "Hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, how can I help?", resp.Content)
	assert.Equal(t, 42, resp.PromptTokens)
	assert.Equal(t, 9, resp.OutputTokens)
}

func TestOpenAIClient_Complete_BackendError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{BaseURL: srv.URL, Model: "gpt-4o-mini"})

	_, err := c.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: "user", Content: "Hi"}}})
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestOpenAIClient_Complete_EmptyChoice(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{BaseURL: srv.URL, Model: "gpt-4o-mini"})

	_, err := c.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: "user", Content: "Hi"}}})
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestOpenAIClient_Complete_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{BaseURL: srv.URL, Model: "gpt-4o-mini"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, CompletionRequest{Messages: []Message{{Role: "user", Content: "Hi"}}})
	assert.Error(t, err)
}

func TestEmbeddingClient_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Equal(t, []string{"Acme Corp"}, req.Input)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer srv.Close()

	c := NewEmbeddingClient(Config{BaseURL: srv.URL, Model: "text-embedding-3-small"})

	vec, err := c.Embed(context.Background(), "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbeddingClient_Embed_Failures(t *testing.T) {
	t.Parallel()

	t.Run("backend error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewEmbeddingClient(Config{BaseURL: srv.URL, Model: "text-embedding-3-small"})

		_, err := c.Embed(context.Background(), "Acme Corp")
		assert.ErrorIs(t, err, ErrEmbeddingFailed)
	})

	t.Run("empty vector", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
		}))
		defer srv.Close()

		c := NewEmbeddingClient(Config{BaseURL: srv.URL, Model: "text-embedding-3-small"})

		_, err := c.Embed(context.Background(), "Acme Corp")
		assert.ErrorIs(t, err, ErrEmbeddingFailed)
	})
}
