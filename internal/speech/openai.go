package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAISpeech uses the OpenAI speech endpoint, requesting WAV output.
type OpenAISpeech struct {
	client *openai.Client
	model  openai.SpeechModel
}

func NewOpenAISpeech(apiKey string, httpClient *http.Client) (*OpenAISpeech, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai tts engine")
	}
	cfg := openai.DefaultConfig(apiKey)
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAISpeech{client: openai.NewClientWithConfig(cfg), model: openai.TTSModel1}, nil
}

func (o *OpenAISpeech) Name() string { return EngineOpenAI }

// Synthesize maps unknown voices to alloy.
func (o *OpenAISpeech) Synthesize(ctx context.Context, text, voice, path string) error {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          openaiVoice(voice),
		ResponseFormat: openai.SpeechResponseFormat("wav"),
	})
	if err != nil {
		return fmt.Errorf("openai speech request failed: %w", err)
	}
	defer resp.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, resp); err != nil {
		f.Close()
		return fmt.Errorf("failed to write speech audio: %w", err)
	}
	return f.Close()
}

func openaiVoice(voice string) openai.SpeechVoice {
	switch v := openai.SpeechVoice(voice); v {
	case openai.VoiceAlloy, openai.VoiceEcho, openai.VoiceFable, openai.VoiceOnyx, openai.VoiceNova, openai.VoiceShimmer:
		return v
	}
	return openai.VoiceAlloy
}
