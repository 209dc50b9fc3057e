package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var body ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3", body.Model)
		assert.False(t, body.Stream)
		assert.Equal(t, "System: be brief\n\nUser: hi\n\nAssistant:", body.Prompt)
		assert.Equal(t, float64(50), body.Options["num_predict"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"response":   "  Hello there, friend  ",
			"done":       true,
			"eval_count": 4,
		})
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "llama3")
	gen, err := p.Generate(context.Background(), Request{Text: "hi", SystemPrompt: "be brief", MaxTokens: 50, Temperature: 0.7, TopP: 0.9})
	require.NoError(t, err)
	assert.Equal(t, "Hello there, friend", gen.Text)
	assert.Equal(t, 3, gen.TokensUsed) // 3 words * 1.3
	assert.Equal(t, "ollama", gen.Metadata["provider"])
	assert.Equal(t, 4, gen.Metadata["eval_count"])
}

func TestOllamaGenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "llama3").Generate(context.Background(), Request{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestOllamaEnsureModelPullsMissing(t *testing.T) {
	pulled := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{"models": []map[string]any{{"name": "phi3:mini", "size": 10}}})
		case "/api/pull":
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"name":"llama3"`)
			pulled = true
			_, _ = w.Write([]byte(`{"status":"success"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "llama3")
	p.EnsureModel(context.Background(), discardLogger())
	assert.True(t, pulled)

	models, err := p.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "phi3:mini", models[0].Name)
	assert.Equal(t, int64(10), models[0].Size)
}

func TestOllamaEnsureModelPullOutlivesRequestTimeout(t *testing.T) {
	tests := []struct {
		name        string
		pullTimeout time.Duration
		wantLog     string
	}{
		{name: "slow pull completes", pullTimeout: time.Second, wantLog: "pulled model"},
		{name: "pull bounded by its own deadline", pullTimeout: 20 * time.Millisecond, wantLog: "could not pull model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/api/tags":
					_ = json.NewEncoder(w).Encode(map[string]any{"models": []map[string]any{}})
				case "/api/pull":
					select {
					case <-time.After(200 * time.Millisecond):
					case <-r.Context().Done():
						return
					}
					_, _ = w.Write([]byte(`{"status":"success"}`))
				}
			}))
			defer srv.Close()

			p := NewOllama(srv.URL, "llama3")
			p.client.Timeout = 50 * time.Millisecond
			p.pullTimeout = tt.pullTimeout

			var logs bytes.Buffer
			p.EnsureModel(context.Background(), slog.New(slog.NewTextHandler(&logs, nil)))
			assert.Contains(t, logs.String(), tt.wantLog)
		})
	}
}

func TestOpenAICompatibleGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3-8b-8192", body["model"])
		msgs := body["messages"].([]any)
		assert.Equal(t, DefaultSystemPrompt, msgs[0].(map[string]any)["content"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 0, "model": "llama3-8b-8192",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": " Paris. "}}],
			"usage": {"prompt_tokens": 7, "completion_tokens": 2, "total_tokens": 9}
		}`))
	}))
	defer srv.Close()

	p, err := NewOpenAICompatible(ProviderGroq, "test-key", "llama3", srv.URL+"/openai/v1", nil)
	require.NoError(t, err)
	assert.Equal(t, "llama3-8b-8192", p.Model())

	gen, err := p.Generate(context.Background(), Request{Text: "Capital of France?", MaxTokens: 100, Temperature: 0.7, TopP: 0.9})
	require.NoError(t, err)
	assert.Equal(t, "Paris.", gen.Text)
	assert.Equal(t, 9, gen.TokensUsed)
	assert.Equal(t, "stop", gen.Metadata["finish_reason"])
	assert.Equal(t, "groq", gen.Metadata["provider"])
}

func TestOpenAICompatibleRequiresKey(t *testing.T) {
	_, err := NewOpenAICompatible(ProviderOpenAI, "", "", "", nil)
	require.Error(t, err)
}

func TestProviderDefaults(t *testing.T) {
	tests := []struct {
		name, model, baseURL string
		wantURL, wantModel   string
	}{
		{ProviderOpenAI, "llama3", "", OpenAIBaseURL, "gpt-3.5-turbo"},
		{ProviderOpenAI, "gpt-4o", "", OpenAIBaseURL, "gpt-4o"},
		{ProviderGroq, "phi3:mini", "", GroqBaseURL, "llama3-8b-8192"},
		{ProviderAnthropic, "claude-3-haiku-20240307", "", AnthropicBaseURL, "claude-3-haiku-20240307"},
		{ProviderGenericOpenAI, "mistral", "http://localhost:1234/v1", "http://localhost:1234/v1", "mistral"},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.model, func(t *testing.T) {
			url, model := providerDefaults(tt.name, tt.model, tt.baseURL)
			assert.Equal(t, tt.wantURL, url)
			assert.Equal(t, tt.wantModel, model)
		})
	}
}
