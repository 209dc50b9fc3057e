package cache

import (
	"context"
	"testing"
	"time"
)

func TestNoOpCache(t *testing.T) {
	cache := NewNoOpCache()
	ctx := context.Background()

	gen, err := cache.GetGeneration(ctx, "test-key")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if gen != nil {
		t.Errorf("Expected nil result (cache miss), got %v", gen)
	}

	err = cache.SetGeneration(ctx, "test-key", &Generation{Text: "hi", TokensUsed: 1, Model: "demo-model"}, time.Hour)
	if err != nil {
		t.Errorf("Expected no error on SetGeneration, got %v", err)
	}

	gen, err = cache.GetGeneration(ctx, "test-key")
	if err != nil || gen != nil {
		t.Errorf("Expected miss after set, got %v, %v", gen, err)
	}

	if err := cache.Close(); err != nil {
		t.Errorf("Expected no error on Close, got %v", err)
	}
}

func TestGenerationKey(t *testing.T) {
	base := GenerationKey("ollama", "llama3", "", "hello", 1000, 0.7, 0.9)

	tests := []struct {
		name string
		key  string
		same bool
	}{
		{"identical request", GenerationKey("ollama", "llama3", "", "hello", 1000, 0.7, 0.9), true},
		{"different text", GenerationKey("ollama", "llama3", "", "hello!", 1000, 0.7, 0.9), false},
		{"different model", GenerationKey("ollama", "mistral", "", "hello", 1000, 0.7, 0.9), false},
		{"different temperature", GenerationKey("ollama", "llama3", "", "hello", 1000, 0.2, 0.9), false},
		{"system prompt", GenerationKey("ollama", "llama3", "be brief", "hello", 1000, 0.7, 0.9), false},
		{"field boundaries", GenerationKey("ollama", "llama3", "hel", "lo", 1000, 0.7, 0.9), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.key == base) != tt.same {
				t.Errorf("key equality = %v, want %v", tt.key == base, tt.same)
			}
		})
	}
	if len(base) != 64 {
		t.Errorf("expected hex sha256 key, got %q", base)
	}
}
