package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-cag/internal/cache"
	"agent-cag/internal/config"
	"agent-cag/internal/embeddings"
	"agent-cag/internal/llm"
	"agent-cag/internal/queue"
	"agent-cag/internal/speech"
	"agent-cag/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.env")
	require.NoError(t, os.WriteFile(path, []byte("AGENT_CAG_TEST_KEY=from-file\n"), 0o644))
	t.Setenv("AGENT_CAG_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("AGENT_CAG_TEST_KEY"))

	require.NoError(t, loadEnv([]string{"--env", path}))
	assert.Equal(t, "from-file", os.Getenv("AGENT_CAG_TEST_KEY"))

	// The default .env may be absent.
	t.Chdir(dir)
	assert.NoError(t, loadEnv(nil))

	assert.Error(t, loadEnv([]string{"-e", filepath.Join(dir, "missing.env")}))
	assert.NoError(t, loadEnv([]string{"--unknown-flag"}))
}

func TestDefaultPort(t *testing.T) {
	assert.Equal(t, 8002, defaultPort("agent-llm", 8000))
	assert.Equal(t, 8001, defaultPort("agent-asr", 8000))
	assert.Equal(t, 9000, defaultPort("unknown", 9000))
}

func TestBuildStore(t *testing.T) {
	log := discardLogger()

	t.Run("lightweight", func(t *testing.T) {
		cfg := config.Config{DeploymentProfile: "lightweight", DataPath: filepath.Join(t.TempDir(), "agent.db")}
		st, err := buildStore(cfg, embeddings.NewHashEmbedder(8), log)
		require.NoError(t, err)
		defer st.Close()
		assert.IsType(t, &store.SQLStore{}, st)
	})

	t.Run("postgres needs DB_URL", func(t *testing.T) {
		_, err := buildStore(config.Config{DeploymentProfile: "postgres"}, embeddings.NewHashEmbedder(8), log)
		assert.ErrorContains(t, err, "DB_URL")
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := buildStore(config.Config{DeploymentProfile: "cloud"}, embeddings.NewHashEmbedder(8), log)
		assert.ErrorContains(t, err, "invalid DEPLOYMENT_PROFILE")
	})
}

func TestBuildProviders(t *testing.T) {
	log := discardLogger()

	q, err := buildQueue(config.Config{QueueProvider: "inline"}, log)
	require.NoError(t, err)
	assert.IsType(t, &queue.InlineQueue{}, q)
	_, err = buildQueue(config.Config{QueueProvider: "nats"}, log)
	assert.ErrorContains(t, err, "QUEUE_URL")
	_, err = buildQueue(config.Config{QueueProvider: "kafka"}, log)
	assert.ErrorContains(t, err, "invalid QUEUE_PROVIDER")

	e, err := buildEmbedder(config.Config{EmbeddingProvider: "hash", EmbeddingDim: 16}, log)
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimension())
	_, err = buildEmbedder(config.Config{EmbeddingProvider: "openai"}, log)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	c, err := buildCache(config.Config{CacheProvider: "none"}, log)
	require.NoError(t, err)
	assert.IsType(t, &cache.NoOpCache{}, c)
	_, err = buildCache(config.Config{CacheProvider: "memcached"}, log)
	assert.Error(t, err)

	p, err := buildProvider(config.Config{LLMProvider: "demo"}, log)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderDemo, p.Name())
	_, err = buildProvider(config.Config{LLMProvider: "groq"}, log)
	assert.ErrorContains(t, err, "LLM_API_KEY")
	_, err = buildProvider(config.Config{LLMProvider: "bard"}, log)
	assert.ErrorContains(t, err, "invalid LLM_PROVIDER")

	s, err := buildSynthesizer(config.Config{TTSEngine: "espeak"}, log)
	require.NoError(t, err)
	assert.Equal(t, speech.EngineEspeak, s.Name())
	_, err = buildSynthesizer(config.Config{TTSEngine: "piper"}, log)
	assert.Error(t, err)

	_, err = buildTranscriber(config.Config{ASREngine: "openai"}, log)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
	_, err = buildTranscriber(config.Config{ASREngine: "vosk"}, log)
	assert.ErrorContains(t, err, "invalid ASR_ENGINE")
}

func TestBuildGatewayReleasesResources(t *testing.T) {
	newDeps := func(queueProvider string) (Deps, *int) {
		closed := 0
		deps := Deps{
			Config: config.Config{
				DeploymentProfile: "lightweight",
				DataPath:          filepath.Join(t.TempDir(), "data", "agent.db"),
				EmbeddingProvider: "hash",
				EmbeddingDim:      8,
				QueueProvider:     queueProvider,
			},
			Log: discardLogger(),
		}
		deps.onClose(func() error {
			closed++
			return nil
		})
		return deps, &closed
	}

	t.Run("queue failure closes the store", func(t *testing.T) {
		deps, closed := newDeps("kafka")
		_, err := buildGateway(deps)
		assert.ErrorContains(t, err, "invalid QUEUE_PROVIDER")
		assert.Equal(t, 1, *closed)
	})

	t.Run("close releases store and queue", func(t *testing.T) {
		deps, closed := newDeps("inline")
		gw, err := buildGateway(deps)
		require.NoError(t, err)
		require.NoError(t, gw.Store.Health(context.Background()))

		gw.Close()
		assert.Equal(t, 1, *closed)
		assert.Error(t, gw.Store.Health(context.Background()))
	})
}

func TestBuildIndexerRequiresNATS(t *testing.T) {
	closed := 0
	deps := Deps{Config: config.Config{QueueProvider: "inline"}, Log: discardLogger()}
	deps.onClose(func() error {
		closed++
		return nil
	})
	_, err := buildIndexer(deps)
	assert.ErrorContains(t, err, "QUEUE_PROVIDER=nats")
	assert.Equal(t, 1, closed)
}
