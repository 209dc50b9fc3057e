package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache stores language-model generations keyed by their request.
type Cache interface {
	// GetGeneration returns nil, nil on a miss.
	GetGeneration(ctx context.Context, key string) (*Generation, error)
	SetGeneration(ctx context.Context, key string, gen *Generation, ttl time.Duration) error
	Close() error
}

// Generation is a cached completion.
type Generation struct {
	Text       string         `json:"text"`
	TokensUsed int            `json:"tokens_used"`
	Model      string         `json:"model"`
	Metadata   map[string]any `json:"metadata"`
}

// GenerationKey derives a stable key from everything that shapes a completion.
func GenerationKey(provider, model, systemPrompt, text string, maxTokens int, temperature, topP float64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%d\x00%g\x00%g", provider, model, systemPrompt, text, maxTokens, temperature, topP)
	return hex.EncodeToString(h.Sum(nil))
}
