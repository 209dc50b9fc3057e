package client

import (
	"context"
	"time"
)

type GenerateRequest struct {
	Text         string  `json:"text"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature,omitempty"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
}

type GenerateResponse struct {
	Text       string         `json:"text"`
	TokensUsed int            `json:"tokens_used"`
	Model      string         `json:"model"`
	Metadata   map[string]any `json:"metadata"`
}

// LLM calls the llm service.
type LLM struct {
	*Client
}

func NewLLM(baseURL string) *LLM {
	return &LLM{Client: New("llm", baseURL, 60*time.Second)}
}

func (c *LLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	var out GenerateResponse
	if err := c.postJSON(ctx, "/generate", req, &out); err != nil {
		return GenerateResponse{}, err
	}
	return out, nil
}
