package llm

import (
	"context"
	"strings"
)

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderOllama        = "ollama"
	ProviderOpenAI        = "openai"
	ProviderGroq          = "groq"
	ProviderAnthropic     = "anthropic"
	ProviderGenericOpenAI = "generic_openai"
	ProviderDemo          = "demo"
)

// DefaultSystemPrompt is used by chat requests without their own prompt.
const DefaultSystemPrompt = "You are a helpful AI assistant."

// Request is one completion request.
type Request struct {
	Text         string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	TopP         float64
}

// Generation is a completion produced by a provider.
type Generation struct {
	Text       string         `json:"text"`
	TokensUsed int            `json:"tokens_used"`
	Model      string         `json:"model"`
	Metadata   map[string]any `json:"metadata"`
}

// ModelInfo describes one model a provider can serve.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size,omitempty"`
	Digest     string `json:"digest,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

// Provider is a language-model backend.
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req Request) (Generation, error)
	Models(ctx context.Context) ([]ModelInfo, error)
}

// estimateTokens approximates a token count as 1.3 tokens per word.
func estimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * 1.3)
}
