package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agent-cag/internal/app"
	"agent-cag/internal/cache"
	"agent-cag/internal/llm"
)

func newTestService(p llm.Provider) app.LLMService {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return app.LLMService{
		Deps:      app.Deps{Log: log, Service: "agent-llm"},
		Generator: llm.NewService(p, cache.NewNoOpCache(), 0, log),
	}
}

func mockProvider() *llm.MockProvider {
	p := new(llm.MockProvider)
	p.On("Name").Return("ollama").Maybe()
	p.On("Model").Return("llama3").Maybe()
	return p
}

func TestGenerateHandler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		setup      func(*llm.MockProvider)
		wantStatus int
		wantText   string
		wantMeta   map[string]any
	}{
		{
			name: "defaults applied",
			path: "/generate",
			body: `{"text":"hi"}`,
			setup: func(p *llm.MockProvider) {
				p.On("Generate", mock.Anything, llm.Request{Text: "hi", MaxTokens: 1000, Temperature: 0.7, TopP: 0.9}).
					Return(llm.Generation{Text: "hello", TokensUsed: 1, Model: "llama3", Metadata: map[string]any{"provider": "ollama"}}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantText:   "hello",
		},
		{
			name: "explicit zero temperature",
			path: "/generate",
			body: `{"text":"hi","max_tokens":20,"temperature":0,"top_p":0.5,"system_prompt":"be brief"}`,
			setup: func(p *llm.MockProvider) {
				p.On("Generate", mock.Anything, llm.Request{Text: "hi", SystemPrompt: "be brief", MaxTokens: 20, Temperature: 0, TopP: 0.5}).
					Return(llm.Generation{Text: "yo"}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantText:   "yo",
		},
		{
			name: "chat uses default system prompt",
			path: "/chat",
			body: `{"text":"hi"}`,
			setup: func(p *llm.MockProvider) {
				p.On("Generate", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
					return r.SystemPrompt == llm.DefaultSystemPrompt
				})).Return(llm.Generation{Text: "hello"}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantText:   "hello",
		},
		{
			name: "provider failure returns fallback",
			path: "/generate",
			body: `{"text":"hi"}`,
			setup: func(p *llm.MockProvider) {
				p.On("Generate", mock.Anything, mock.Anything).Return(llm.Generation{}, errors.New("connection refused")).Once()
			},
			wantStatus: http.StatusOK,
			wantText:   llm.FallbackText,
			wantMeta:   map[string]any{"fallback": true, "error": "connection refused", "provider": "ollama"},
		},
		{
			name:       "temperature out of range",
			path:       "/generate",
			body:       `{"text":"hi","temperature":3}`,
			setup:      func(*llm.MockProvider) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "missing text",
			path:       "/generate",
			body:       `{}`,
			setup:      func(*llm.MockProvider) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "malformed body",
			path:       "/chat",
			body:       `[`,
			setup:      func(*llm.MockProvider) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mockProvider()
			tt.setup(p)

			rr := httptest.NewRecorder()
			newRouter(newTestService(p)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantStatus == http.StatusOK {
				var gen llm.Generation
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &gen))
				assert.Equal(t, tt.wantText, gen.Text)
				for k, v := range tt.wantMeta {
					assert.Equal(t, v, gen.Metadata[k], k)
				}
			}
			p.AssertExpectations(t)
		})
	}
}

func TestModelsAndHealth(t *testing.T) {
	p := mockProvider()
	p.On("Models", mock.Anything).Return([]llm.ModelInfo{{Name: "llama3:latest"}, {Name: "mistral"}}, nil)

	svc := newTestService(p)
	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/models", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var models map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &models))
	assert.Equal(t, "llama3", models["current_model"])
	assert.Equal(t, "ollama", models["provider"])
	assert.Len(t, models["models"], 2)

	rr = httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "agent-llm", health["service"])
	assert.Equal(t, []any{"llama3:latest", "mistral"}, health["available_models"])
}

func TestHealthUnavailable(t *testing.T) {
	p := mockProvider()
	p.On("Models", mock.Anything).Return(nil, errors.New("ollama down"))

	rr := httptest.NewRecorder()
	newRouter(newTestService(p)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestDemoProviderEndToEnd(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(newTestService(llm.NewDemo())).ServeHTTP(rr,
		httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"text":"what is 2 + 2"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "4")
}
