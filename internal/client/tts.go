package client

import (
	"context"
	"time"
)

type SynthesizeRequest struct {
	Text         string `json:"text"`
	Voice        string `json:"voice,omitempty"`
	UseSardaukar bool   `json:"use_sardaukar"`
}

type SynthesizeResponse struct {
	AudioURL      string   `json:"audio_url"`
	Duration      *float64 `json:"duration"`
	Format        string   `json:"format"`
	OriginalText  string   `json:"original_text"`
	FinalText     string   `json:"final_text"`
	UsedSardaukar bool     `json:"used_sardaukar"`
}

// TTS calls the tts service.
type TTS struct {
	*Client
}

func NewTTS(baseURL string) *TTS {
	return &TTS{Client: New("tts", baseURL, 30*time.Second)}
}

func (c *TTS) Synthesize(ctx context.Context, req SynthesizeRequest) (SynthesizeResponse, error) {
	var out SynthesizeResponse
	if err := c.postJSON(ctx, "/synthesize", req, &out); err != nil {
		return SynthesizeResponse{}, err
	}
	return out, nil
}
