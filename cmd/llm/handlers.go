package main

import (
	"context"
	"net/http"
	"time"

	"agent-cag/internal/app"
	"agent-cag/internal/httputil"
	"agent-cag/internal/llm"
)

const (
	defaultMaxTokens   = 1000
	defaultTemperature = 0.7
	defaultTopP        = 0.9
)

type generateRequest struct {
	Text         string   `json:"text" validate:"required,max=8000"`
	MaxTokens    int      `json:"max_tokens" validate:"gte=0,lte=8192"`
	Temperature  *float64 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
	TopP         *float64 `json:"top_p" validate:"omitempty,gte=0,lte=1"`
	SystemPrompt string   `json:"system_prompt"`
}

func (r generateRequest) toRequest(defaultSystem string) llm.Request {
	req := llm.Request{
		Text:         r.Text,
		SystemPrompt: r.SystemPrompt,
		MaxTokens:    r.MaxTokens,
		Temperature:  defaultTemperature,
		TopP:         defaultTopP,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = defaultMaxTokens
	}
	if r.Temperature != nil {
		req.Temperature = *r.Temperature
	}
	if r.TopP != nil {
		req.TopP = *r.TopP
	}
	if req.SystemPrompt == "" {
		req.SystemPrompt = defaultSystem
	}
	return req
}

// generateHandler serves /generate and /chat; chat differs only in the
// default system prompt.
func generateHandler(svc app.LLMService, defaultSystem string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body generateRequest
		if err := httputil.DecodeJSON(r, &body); err != nil {
			httputil.FailRequest(svc.Log, w, err)
			return
		}
		gen := svc.Generator.Generate(r.Context(), body.toRequest(defaultSystem))
		httputil.WriteJSON(w, http.StatusOK, gen)
	}
}

func modelsHandler(svc app.LLMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := svc.Generator.Provider()
		models, err := provider.Models(r.Context())
		if err != nil {
			httputil.Fail(svc.Log, w, "failed to list models", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"models":        models,
			"current_model": provider.Model(),
			"provider":      provider.Name(),
		})
	}
}

func healthHandler(svc app.LLMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		provider := svc.Generator.Provider()
		models, err := provider.Models(ctx)
		if err != nil {
			httputil.Fail(svc.Log, w, "Service unhealthy", err, http.StatusServiceUnavailable)
			return
		}
		names := make([]string, 0, len(models))
		for _, m := range models {
			names = append(names, m.Name)
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":           "healthy",
			"service":          svc.Service,
			"provider":         provider.Name(),
			"model":            provider.Model(),
			"available_models": names,
		})
	}
}
