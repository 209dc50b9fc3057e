package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"agent-cag/internal/cache"
	"agent-cag/internal/config"
	"agent-cag/internal/embeddings"
	"agent-cag/internal/llm"
	"agent-cag/internal/proxy"
	"agent-cag/internal/queue"
	"agent-cag/internal/speech"
	"agent-cag/internal/store"
	"agent-cag/internal/transcribe"
)

const startupTimeout = 30 * time.Second

func buildStore(cfg config.Config, embedder embeddings.Embedder, log *slog.Logger) (store.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	switch cfg.DeploymentProfile {
	case "lightweight":
		db, err := store.NewSQLite(ctx, cfg.DataPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		log.Info("using embedded SQLite store", "path", cfg.DataPath)
		return db, nil
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when DEPLOYMENT_PROFILE=postgres")
		}
		db, err := store.NewPostgres(ctx, cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	case "full":
		graph, err := store.NewGraph(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Neo4j: %w", err)
		}
		vectors, err := store.NewVector(ctx, cfg.QdrantAddr, cfg.VectorCollection, embedder.Dimension())
		if err != nil {
			graph.Close()
			return nil, fmt.Errorf("failed to initialize Qdrant: %w", err)
		}
		log.Info("using Neo4j + Qdrant store", "neo4j", cfg.Neo4jURI, "qdrant", cfg.QdrantAddr, "collection", cfg.VectorCollection)
		return store.NewFull(graph, vectors, embedder), nil
	default:
		return nil, fmt.Errorf("invalid DEPLOYMENT_PROFILE: %s (valid option: lightweight, full, postgres)", cfg.DeploymentProfile)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nil
	case "inline":
		log.Info("using inline queue")
		return queue.NewInline(log), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid option: nats, inline)", cfg.QueueProvider)
	}
}

func buildEmbedder(cfg config.Config, log *slog.Logger) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_PROVIDER=openai")
		}
		httpClient, err := proxy.HTTPClient(cfg.OutboundProxy, 60*time.Second)
		if err != nil {
			return nil, err
		}
		embedder, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, openai.EmbeddingModel(cfg.EmbeddingModel), cfg.EmbeddingDim, httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
		}
		log.Info("using OpenAI embedder", "model", cfg.EmbeddingModel, "dim", cfg.EmbeddingDim)
		return embedder, nil
	case "ollama":
		log.Info("using Ollama embedder", "model", cfg.EmbeddingModel, "host", cfg.OllamaHost)
		return embeddings.NewOllamaEmbedder(cfg.OllamaHost, cfg.EmbeddingModel, cfg.EmbeddingDim), nil
	case "hash":
		log.Info("using hashing embedder", "dim", cfg.EmbeddingDim)
		return embeddings.NewHashEmbedder(cfg.EmbeddingDim), nil
	default:
		return nil, fmt.Errorf("invalid EMBEDDING_PROVIDER: %s (valid option: openai, ollama, hash)", cfg.EmbeddingProvider)
	}
}

// buildCache falls back to no caching when Redis is unreachable.
func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable, generation cache disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache(), nil
		}
		log.Info("using Redis generation cache", "addr", cfg.RedisAddr, "ttl_s", cfg.CacheTTL)
		return c, nil
	case "none", "":
		return cache.NewNoOpCache(), nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid option: redis, none)", cfg.CacheProvider)
	}
}

func buildProvider(cfg config.Config, log *slog.Logger) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case llm.ProviderOllama:
		log.Info("using Ollama provider", "host", cfg.OllamaHost, "model", cfg.ModelName)
		return llm.NewOllama(cfg.OllamaHost, cfg.ModelName), nil
	case llm.ProviderOpenAI, llm.ProviderGroq, llm.ProviderAnthropic, llm.ProviderGenericOpenAI:
		if cfg.LLMAPIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required when LLM_PROVIDER=%s", cfg.LLMProvider)
		}
		httpClient, err := proxy.HTTPClient(cfg.OutboundProxy, 120*time.Second)
		if err != nil {
			return nil, err
		}
		p, err := llm.NewOpenAICompatible(cfg.LLMProvider, cfg.LLMAPIKey, cfg.ModelName, cfg.LLMBaseURL, httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s provider: %w", cfg.LLMProvider, err)
		}
		log.Info("using OpenAI-compatible provider", "provider", cfg.LLMProvider, "model", p.Model())
		return p, nil
	case llm.ProviderDemo:
		log.Info("using demo provider")
		return llm.NewDemo(), nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid option: ollama, openai, groq, anthropic, generic_openai, demo)", cfg.LLMProvider)
	}
}

func buildSynthesizer(cfg config.Config, log *slog.Logger) (speech.Synthesizer, error) {
	switch cfg.TTSEngine {
	case speech.EngineEspeak:
		log.Info("using espeak-ng engine", "voice", cfg.TTSVoice)
		return speech.NewEspeak(), nil
	case speech.EngineOpenAI:
		httpClient, err := proxy.HTTPClient(cfg.OutboundProxy, 60*time.Second)
		if err != nil {
			return nil, err
		}
		s, err := speech.NewOpenAISpeech(cfg.OpenAIKey, httpClient)
		if err != nil {
			return nil, err
		}
		log.Info("using OpenAI speech engine")
		return s, nil
	default:
		return nil, fmt.Errorf("invalid TTS_ENGINE: %s (valid option: espeak, openai)", cfg.TTSEngine)
	}
}

func buildTranscriber(cfg config.Config, log *slog.Logger) (transcribe.Transcriber, error) {
	switch cfg.ASREngine {
	case transcribe.EngineOpenAI:
		httpClient, err := proxy.HTTPClient(cfg.OutboundProxy, 120*time.Second)
		if err != nil {
			return nil, err
		}
		t, err := transcribe.NewOpenAI(cfg.OpenAIKey, httpClient)
		if err != nil {
			return nil, err
		}
		log.Info("using OpenAI transcription")
		return t, nil
	case transcribe.EngineWhisper:
		t, err := transcribe.NewWhisper(cfg.WhisperModelPath)
		if err != nil {
			return nil, err
		}
		log.Info("using local whisper.cpp", "model", cfg.WhisperModel, "path", cfg.WhisperModelPath)
		return t, nil
	default:
		return nil, fmt.Errorf("invalid ASR_ENGINE: %s (valid option: openai, whisper)", cfg.ASREngine)
	}
}
