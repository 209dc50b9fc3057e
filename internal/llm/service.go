package llm

import (
	"context"
	"log/slog"
	"time"

	"agent-cag/internal/cache"
)

// FallbackText is returned when the provider cannot produce a completion.
const FallbackText = "I apologize, but I'm currently unable to process your request. The language model service is experiencing issues."

const fallbackTokens = 20

// Service fronts a Provider with a generation cache and the apology fallback.
type Service struct {
	provider Provider
	cache    cache.Cache
	ttl      time.Duration
	log      *slog.Logger
}

func NewService(provider Provider, c cache.Cache, ttl time.Duration, log *slog.Logger) *Service {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return &Service{provider: provider, cache: c, ttl: ttl, log: log}
}

func (s *Service) Provider() Provider { return s.provider }

// Generate never fails: provider errors become a fallback generation
// flagged with metadata.fallback=true. Fallbacks are not cached.
func (s *Service) Generate(ctx context.Context, req Request) Generation {
	key := cache.GenerationKey(s.provider.Name(), s.provider.Model(), req.SystemPrompt, req.Text, req.MaxTokens, req.Temperature, req.TopP)

	cached, err := s.cache.GetGeneration(ctx, key)
	if err != nil {
		s.log.Warn("generation cache lookup failed", "err", err)
	}
	if cached != nil {
		meta := make(map[string]any, len(cached.Metadata)+1)
		for k, v := range cached.Metadata {
			meta[k] = v
		}
		meta["cached"] = true
		return Generation{Text: cached.Text, TokensUsed: cached.TokensUsed, Model: cached.Model, Metadata: meta}
	}

	gen, err := s.provider.Generate(ctx, req)
	if err != nil {
		s.log.Error("generation failed, returning fallback", "provider", s.provider.Name(), "err", err)
		return Generation{
			Text:       FallbackText,
			TokensUsed: fallbackTokens,
			Model:      s.provider.Model(),
			Metadata: map[string]any{
				"error":    err.Error(),
				"fallback": true,
				"provider": s.provider.Name(),
			},
		}
	}

	if err := s.cache.SetGeneration(ctx, key, &cache.Generation{
		Text:       gen.Text,
		TokensUsed: gen.TokensUsed,
		Model:      gen.Model,
		Metadata:   gen.Metadata,
	}, s.ttl); err != nil {
		s.log.Warn("generation cache store failed", "err", err)
	}
	return gen
}
