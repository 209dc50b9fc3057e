// Package pipeline runs one conversation turn across the llm, storage and
// tts services.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agent-cag/internal/client"
	"agent-cag/internal/store"
	"agent-cag/internal/telemetry"
)

const defaultUserID = "anonymous"

var (
	ErrInvalidRequest = errors.New("invalid query")
	ErrGeneration     = errors.New("language model service failed")
	ErrStorage        = errors.New("failed to record conversation")
	ErrTranscription  = errors.New("speech recognition failed")
)

type Request struct {
	Text           string          `json:"text" validate:"required,max=4000"`
	UserID         string          `json:"user_id,omitempty" validate:"max=128"`
	InputType      store.InputType `json:"input_type,omitempty" validate:"omitempty,oneof=text speech"`
	GenerateSpeech bool            `json:"generate_speech"`
	UseSardaukar   bool            `json:"use_sardaukar"`
	Context        map[string]any  `json:"context,omitempty"`
}

type Response struct {
	QueryID    string         `json:"query_id"`
	ResponseID string         `json:"response_id"`
	Text       string         `json:"text"`
	AudioURL   *string        `json:"audio_url"`
	Metadata   map[string]any `json:"metadata"`
}

// Generator produces the answer text.
type Generator interface {
	Generate(ctx context.Context, req client.GenerateRequest) (client.GenerateResponse, error)
}

// Synthesizer renders the answer as audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req client.SynthesizeRequest) (client.SynthesizeResponse, error)
}

// Transcriber turns a voice query into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio client.Audio) (client.Transcription, error)
}

// Orchestrator wires the downstream services together.
type Orchestrator struct {
	llm       Generator
	tts       Synthesizer
	asr       Transcriber
	store     store.Store
	maxTokens int
	metrics   *telemetry.PipelineMetrics
	tracer    trace.Tracer
	log       *slog.Logger
}

func New(llm Generator, tts Synthesizer, asr Transcriber, st store.Store, maxTokens int, metrics *telemetry.PipelineMetrics, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		llm:       llm,
		tts:       tts,
		asr:       asr,
		store:     st,
		maxTokens: maxTokens,
		metrics:   metrics,
		tracer:    otel.Tracer("agent-cag/pipeline"),
		log:       log,
	}
}

// Normalize fills defaults and rejects blank text.
func Normalize(req Request) (Request, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req, fmt.Errorf("%w: text must not be blank", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = defaultUserID
	}
	if req.InputType == "" {
		req.InputType = store.InputText
	}
	return req, nil
}

// Process answers a query. The turn is stored only after the llm succeeds;
// speech synthesis failures degrade to a text-only response.
func (o *Orchestrator) Process(ctx context.Context, req Request) (Response, error) {
	req, err := Normalize(req)
	if err != nil {
		return Response{}, err
	}
	ctx, span := o.tracer.Start(ctx, "pipeline.process", trace.WithAttributes(
		attribute.String("user_id", req.UserID),
		attribute.String("input_type", string(req.InputType)),
		attribute.Bool("generate_speech", req.GenerateSpeech),
	))
	defer span.End()

	log := o.log.With("user_id", req.UserID, "input_type", req.InputType)
	log.Info("processing query", "chars", len(req.Text))

	gen, err := o.generate(ctx, req.Text)
	if err != nil {
		o.finish(ctx, span, req, "llm_error", err)
		return Response{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	queryID, responseID, err := o.record(ctx, req, gen)
	if err != nil {
		o.finish(ctx, span, req, "store_error", err)
		return Response{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	meta := make(map[string]any, len(gen.Metadata)+4)
	maps.Copy(meta, gen.Metadata)
	resp := Response{QueryID: queryID, ResponseID: responseID, Text: gen.Text, Metadata: meta}

	if req.GenerateSpeech {
		o.speak(ctx, log, req, &resp)
	}

	o.finish(ctx, span, req, "ok", nil)
	log.Info("query answered", "query_id", queryID, "response_id", responseID, "audio", resp.AudioURL != nil)
	return resp, nil
}

// VoiceRequest is a recorded question plus the /query options.
type VoiceRequest struct {
	Audio          client.Audio
	UserID         string
	GenerateSpeech bool
	UseSardaukar   bool
}

// ProcessVoice transcribes the recording and answers it as a speech query.
// The transcript is echoed in metadata.transcript.
func (o *Orchestrator) ProcessVoice(ctx context.Context, req VoiceRequest) (Response, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.transcribe")
	tr, err := o.asr.Transcribe(ctx, req.Audio)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transcription failed")
		span.End()
		o.metrics.Query(ctx, string(store.InputSpeech), "asr_error")
		return Response{}, fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	span.End()

	if strings.TrimSpace(tr.Text) == "" {
		return Response{}, fmt.Errorf("%w: no speech detected", ErrInvalidRequest)
	}

	resp, err := o.Process(ctx, Request{
		Text:           strings.TrimSpace(tr.Text),
		UserID:         req.UserID,
		InputType:      store.InputSpeech,
		GenerateSpeech: req.GenerateSpeech,
		UseSardaukar:   req.UseSardaukar,
	})
	if err != nil {
		return Response{}, err
	}
	resp.Metadata["transcript"] = tr.Text
	resp.Metadata["transcription_confidence"] = tr.Confidence
	if tr.Language != "" {
		resp.Metadata["language"] = tr.Language
	}
	return resp, nil
}

func (o *Orchestrator) generate(ctx context.Context, text string) (client.GenerateResponse, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.generate")
	defer span.End()
	gen, err := o.llm.Generate(ctx, client.GenerateRequest{Text: text, MaxTokens: o.maxTokens})
	if err != nil {
		span.RecordError(err)
		return client.GenerateResponse{}, err
	}
	span.SetAttributes(attribute.String("model", gen.Model), attribute.Int("tokens_used", gen.TokensUsed))
	return gen, nil
}

func (o *Orchestrator) record(ctx context.Context, req Request, gen client.GenerateResponse) (string, string, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.store")
	defer span.End()

	queryID, err := o.store.StoreQuery(ctx, req.Text, req.UserID, req.InputType)
	if err != nil {
		span.RecordError(err)
		return "", "", err
	}
	responseID, err := o.store.StoreResponse(ctx, queryID, gen.Text, gen.Metadata)
	if err != nil {
		span.RecordError(err)
		return "", "", err
	}
	return queryID, responseID, nil
}

func (o *Orchestrator) speak(ctx context.Context, log *slog.Logger, req Request, resp *Response) {
	ctx, span := o.tracer.Start(ctx, "pipeline.synthesize", trace.WithAttributes(
		attribute.Bool("use_sardaukar", req.UseSardaukar),
	))
	defer span.End()

	out, err := o.tts.Synthesize(ctx, client.SynthesizeRequest{Text: resp.Text, UseSardaukar: req.UseSardaukar})
	if err != nil {
		span.RecordError(err)
		log.Warn("speech synthesis failed, returning text only", "err", err)
		o.metrics.Fallback(ctx, "tts")
		resp.Metadata["tts_error"] = err.Error()
		resp.Metadata["used_sardaukar"] = false
		return
	}

	if out.AudioURL != "" {
		resp.AudioURL = &out.AudioURL
	}
	resp.Metadata["used_sardaukar"] = out.UsedSardaukar
	resp.Metadata["tts_format"] = out.Format
	if out.Duration != nil {
		resp.Metadata["tts_duration"] = *out.Duration
	}
	if out.UsedSardaukar {
		resp.Metadata["sardaukar_text"] = out.FinalText
	} else if req.UseSardaukar {
		o.metrics.Fallback(ctx, "sardaukar")
	}
}

func (o *Orchestrator) finish(ctx context.Context, span trace.Span, req Request, outcome string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		o.log.Error("query failed", "outcome", outcome, "err", err)
	}
	o.metrics.Query(ctx, string(req.InputType), outcome)
}
