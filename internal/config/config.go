package config

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration shared by every service binary.
// Each service only reads the keys it needs.
type Config struct {
	// Server
	Port           int    `env:"PORT" envDefault:"8000"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "console"
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes

	// Store
	DeploymentProfile string `env:"DEPLOYMENT_PROFILE" envDefault:"lightweight"` // "lightweight", "full" or "postgres"
	DataPath          string `env:"DATA_PATH" envDefault:"/app/data/agent.db"`
	DBURL             string `env:"DB_URL"`
	Neo4jURI          string `env:"NEO4J_URI" envDefault:"bolt://neo4j:7687"`
	Neo4jUser         string `env:"NEO4J_USER" envDefault:"neo4j"`
	Neo4jPassword     string `env:"NEO4J_PASSWORD" envDefault:"password"`
	QdrantAddr        string `env:"QDRANT_ADDR" envDefault:"qdrant:6334"`
	VectorCollection  string `env:"VECTOR_COLLECTION" envDefault:"agent_embeddings"`

	// Embeddings
	EmbeddingProvider string `env:"EMBEDDING_PROVIDER" envDefault:"hash"` // "openai", "ollama" or "hash"
	EmbeddingModel    string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDim      int    `env:"EMBEDDING_DIM" envDefault:"384"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"inline"` // "inline" (in-process) or "nats"
	QueueURL      string `env:"QUEUE_URL"`

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none"` // "redis" or "none"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"redis:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"` // seconds

	// Downstream services
	LLMServiceURL string `env:"LLM_SERVICE_URL" envDefault:"http://llm:8002"`
	TTSServiceURL string `env:"TTS_SERVICE_URL" envDefault:"http://tts:8003"`
	ASRServiceURL string `env:"ASR_SERVICE_URL" envDefault:"http://asr:8001"`
	MaxTokens     int    `env:"MAX_TOKENS" envDefault:"1000"`

	// LLM
	LLMProvider   string `env:"LLM_PROVIDER" envDefault:"ollama"` // ollama, openai, groq, anthropic, generic_openai, demo
	ModelName     string `env:"MODEL_NAME" envDefault:"llama3"`
	LLMAPIKey     string `env:"LLM_API_KEY"`
	LLMBaseURL    string `env:"LLM_BASE_URL"`
	OllamaHost    string `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	OutboundProxy string `env:"OUTBOUND_PROXY"` // optional SOCKS5 address for cloud providers

	// TTS
	TTSEngine              string `env:"TTS_ENGINE" envDefault:"espeak"` // "espeak" or "openai"
	PiperModel             string `env:"PIPER_MODEL" envDefault:"en_US-lessac-medium"`
	TTSVoice               string `env:"TTS_VOICE" envDefault:"en+f3"`
	OutputDir              string `env:"OUTPUT_DIR" envDefault:"/app/output"`
	SardaukarTranslatorURL string `env:"SARDAUKAR_TRANSLATOR_URL"`

	// ASR
	ASREngine        string `env:"ASR_ENGINE" envDefault:"openai"` // "openai" or "whisper"
	WhisperModel     string `env:"WHISPER_MODEL" envDefault:"base"`
	WhisperModelPath string `env:"WHISPER_MODEL_PATH" envDefault:"models/ggml-base.bin"`

	// OpenAI speech and embeddings
	OpenAIKey string `env:"OPENAI_API_KEY"`

	// Telemetry
	TelemetryExporter string `env:"TELEMETRY_EXPORTER" envDefault:"prometheus"` // "none", "prometheus", "stdout" or "otlp"
	OTLPEndpoint      string `env:"OTLP_ENDPOINT"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
