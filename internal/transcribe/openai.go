package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI sends audio to the hosted Whisper API.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey string, httpClient *http.Client) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required when ASR_ENGINE=openai")
	}
	cfg := openai.DefaultConfig(apiKey)
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: openai.Whisper1}, nil
}

func (o *OpenAI) Name() string { return EngineOpenAI }

func (o *OpenAI) Transcribe(ctx context.Context, in Input) (Result, error) {
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: in.Filename,
		Reader:   in.Data,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: in.Language,
	})
	if err != nil {
		return Result{}, fmt.Errorf("openai transcription failed: %w", err)
	}

	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		logprob := s.AvgLogprob
		segments = append(segments, Segment{
			ID:         s.ID,
			Start:      s.Start,
			End:        s.End,
			Text:       s.Text,
			AvgLogprob: &logprob,
		})
	}
	return Result{
		Text:       strings.TrimSpace(resp.Text),
		Language:   resp.Language,
		Confidence: Confidence(segments),
		Segments:   segments,
	}, nil
}

func (o *OpenAI) Close() error { return nil }
