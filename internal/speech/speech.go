// Package speech synthesises answers to WAV files, optionally translating
// them to Sardaukar first.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"agent-cag/internal/audio"
	"agent-cag/internal/translator"
)

const (
	EngineEspeak = "espeak"
	EngineOpenAI = "openai"
)

// Synthesizer renders text to a WAV file at path.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text, voice, path string) error
}

type Request struct {
	Text         string `json:"text" validate:"required"`
	Voice        string `json:"voice,omitempty"`
	UseSardaukar bool   `json:"use_sardaukar"`
}

type Result struct {
	AudioURL      string   `json:"audio_url"`
	Duration      *float64 `json:"duration"`
	Format        string   `json:"format"`
	OriginalText  string   `json:"original_text"`
	FinalText     string   `json:"final_text"`
	UsedSardaukar bool     `json:"used_sardaukar"`
}

// Service runs translation, synthesis and duration lookup for one request.
type Service struct {
	engine     Synthesizer
	translator translator.Translator
	files      *AudioDir
	voice      string
	log        *slog.Logger
}

func NewService(engine Synthesizer, tr translator.Translator, files *AudioDir, defaultVoice string, log *slog.Logger) *Service {
	return &Service{engine: engine, translator: tr, files: files, voice: defaultVoice, log: log}
}

func (s *Service) Engine() string { return s.engine.Name() }

// Synthesize fails only when the engine fails. A failed translation falls
// back to the original text.
func (s *Service) Synthesize(ctx context.Context, req Request) (Result, error) {
	final, used := req.Text, false
	if req.UseSardaukar {
		res := translator.TranslateOrFallback(ctx, s.translator, req.Text)
		if res.Err != nil {
			s.log.Warn("sardaukar translation failed, using original text", "err", res.Err)
		} else {
			s.log.Info("translated to sardaukar", "chars", len(res.Text))
		}
		final, used = res.Text, res.Translated
	}

	voice := req.Voice
	if voice == "" {
		voice = s.voice
	}
	filename, path := s.files.New()
	if err := s.engine.Synthesize(ctx, final, voice, path); err != nil {
		_ = os.Remove(path)
		return Result{}, fmt.Errorf("%s synthesis failed: %w", s.engine.Name(), err)
	}

	return Result{
		AudioURL:      "/audio/" + filename,
		Duration:      s.duration(path),
		Format:        "wav",
		OriginalText:  req.Text,
		FinalText:     final,
		UsedSardaukar: used,
	}, nil
}

func (s *Service) duration(path string) *float64 {
	f, err := os.Open(path)
	if err != nil {
		s.log.Warn("could not open audio for duration", "err", err)
		return nil
	}
	defer f.Close()
	d, err := audio.WAVDuration(f)
	if err != nil {
		s.log.Warn("could not determine audio duration", "err", err)
		return nil
	}
	return &d
}
