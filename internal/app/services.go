package app

import (
	"fmt"
	"time"

	"agent-cag/internal/client"
	"agent-cag/internal/index"
	"agent-cag/internal/llm"
	"agent-cag/internal/pipeline"
	"agent-cag/internal/queue"
	"agent-cag/internal/speech"
	"agent-cag/internal/store"
	"agent-cag/internal/telemetry"
	"agent-cag/internal/transcribe"
	"agent-cag/internal/translator"
)

// Gateway holds what the api gateway serves from.
type Gateway struct {
	Deps
	Store    store.Store
	Queue    queue.Queue
	Pipeline *pipeline.Orchestrator
	LLM      *client.LLM
	TTS      *client.TTS
	ASR      *client.ASR
}

// BuildGateway wires storage, the task queue and the downstream clients.
// With the inline queue the indexer runs inside the gateway process.
func BuildGateway() (Gateway, error) {
	deps, err := Build("agent-api")
	if err != nil {
		return Gateway{}, err
	}
	return buildGateway(deps)
}

// buildGateway releases everything built so far when a later step fails.
func buildGateway(deps Deps) (Gateway, error) {
	cfg, log := deps.Config, deps.Log

	embedder, err := buildEmbedder(cfg, log)
	if err != nil {
		deps.Close()
		return Gateway{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	st, err := buildStore(cfg, embedder, log)
	if err != nil {
		deps.Close()
		return Gateway{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	deps.onClose(st.Close)

	q, err := buildQueue(cfg, log)
	if err != nil {
		deps.Close()
		return Gateway{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	deps.onClose(q.Close)
	if inline, ok := q.(*queue.InlineQueue); ok {
		inline.Handle(queue.TaskTypeIndex, index.New(st, embedder, log).Handle)
	}

	metrics, err := telemetry.NewPipelineMetrics()
	if err != nil {
		log.Warn("pipeline metrics disabled", "err", err)
	}
	llmClient := client.NewLLM(cfg.LLMServiceURL)
	ttsClient := client.NewTTS(cfg.TTSServiceURL)
	asrClient := client.NewASR(cfg.ASRServiceURL)

	return Gateway{
		Deps:     deps,
		Store:    st,
		Queue:    q,
		Pipeline: pipeline.New(llmClient, ttsClient, asrClient, st, cfg.MaxTokens, metrics, log),
		LLM:      llmClient,
		TTS:      ttsClient,
		ASR:      asrClient,
	}, nil
}

// LLMService holds the provider adapter behind the llm service.
type LLMService struct {
	Deps
	Generator *llm.Service
}

func BuildLLM() (LLMService, error) {
	deps, err := Build("agent-llm")
	if err != nil {
		return LLMService{}, err
	}
	provider, err := buildProvider(deps.Config, deps.Log)
	if err != nil {
		deps.Close()
		return LLMService{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	c, err := buildCache(deps.Config, deps.Log)
	if err != nil {
		deps.Close()
		return LLMService{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	deps.onClose(c.Close)

	ttl := time.Duration(deps.Config.CacheTTL) * time.Second
	return LLMService{Deps: deps, Generator: llm.NewService(provider, c, ttl, deps.Log)}, nil
}

// TTSService holds the speech pipeline behind the tts service.
type TTSService struct {
	Deps
	Speech     *speech.Service
	Files      *speech.AudioDir
	Translator *translator.Sardaukar
}

func BuildTTS() (TTSService, error) {
	deps, err := Build("agent-tts")
	if err != nil {
		return TTSService{}, err
	}
	cfg := deps.Config
	engine, err := buildSynthesizer(cfg, deps.Log)
	if err != nil {
		deps.Close()
		return TTSService{}, fmt.Errorf("failed to initialize TTS engine: %w", err)
	}
	files, err := speech.NewAudioDir(cfg.OutputDir)
	if err != nil {
		deps.Close()
		return TTSService{}, err
	}
	tr := translator.NewSardaukar(cfg.SardaukarTranslatorURL)
	if !tr.Enabled() {
		deps.Log.Info("sardaukar translator not configured")
	}
	return TTSService{
		Deps:       deps,
		Speech:     speech.NewService(engine, tr, files, cfg.TTSVoice, deps.Log),
		Files:      files,
		Translator: tr,
	}, nil
}

// ASRService holds the transcription engine behind the asr service.
type ASRService struct {
	Deps
	Transcriber transcribe.Transcriber
}

func BuildASR() (ASRService, error) {
	deps, err := Build("agent-asr")
	if err != nil {
		return ASRService{}, err
	}
	t, err := buildTranscriber(deps.Config, deps.Log)
	if err != nil {
		deps.Close()
		return ASRService{}, fmt.Errorf("failed to initialize transcriber: %w", err)
	}
	deps.onClose(t.Close)
	return ASRService{Deps: deps, Transcriber: t}, nil
}

// Indexer holds the queue consumer that fills the search index.
type Indexer struct {
	Deps
	Queue   queue.Queue
	Indexer *index.Indexer
	Store   store.Store
}

func BuildIndexer() (Indexer, error) {
	deps, err := Build("agent-indexer")
	if err != nil {
		return Indexer{}, err
	}
	return buildIndexer(deps)
}

func buildIndexer(deps Deps) (Indexer, error) {
	cfg, log := deps.Config, deps.Log
	if cfg.QueueProvider != "nats" {
		deps.Close()
		return Indexer{}, fmt.Errorf("indexer requires QUEUE_PROVIDER=nats; inline queues are consumed by the gateway")
	}
	embedder, err := buildEmbedder(cfg, log)
	if err != nil {
		deps.Close()
		return Indexer{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	st, err := buildStore(cfg, embedder, log)
	if err != nil {
		deps.Close()
		return Indexer{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	deps.onClose(st.Close)
	q, err := buildQueue(cfg, log)
	if err != nil {
		deps.Close()
		return Indexer{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	deps.onClose(q.Close)
	return Indexer{Deps: deps, Queue: q, Indexer: index.New(st, embedder, log), Store: st}, nil
}
