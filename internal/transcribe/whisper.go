//go:build whisper

package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"agent-cag/internal/audio"
)

// Whisper runs whisper.cpp in-process on decoded 16 kHz audio.
type Whisper struct {
	mu    sync.Mutex
	model whisper.Model
}

func NewWhisper(modelPath string) (Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("WHISPER_MODEL_PATH is required when ASR_ENGINE=whisper")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model %s: %w", modelPath, err)
	}
	return &Whisper{model: m}, nil
}

func (w *Whisper) Name() string { return EngineWhisper }

func (w *Whisper) Transcribe(ctx context.Context, in Input) (Result, error) {
	samples, err := audio.Decode(in.Data, in.Filename)
	if err != nil {
		return Result{}, err
	}
	if len(samples) == 0 {
		return Result{}, errors.New("no audio samples")
	}

	// A whisper context is not safe for concurrent use.
	w.mu.Lock()
	defer w.mu.Unlock()

	wctx, err := w.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("failed to create whisper context: %w", err)
	}
	lang := in.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return Result{}, fmt.Errorf("failed to set language %q: %w", lang, err)
	}
	wctx.SetThreads(uint(runtime.NumCPU()))

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("whisper processing failed: %w", err)
	}

	var segments []Segment
	var text []string
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("failed to read segment: %w", err)
		}
		segments = append(segments, Segment{
			ID:    s.Num,
			Start: s.Start.Seconds(),
			End:   s.End.Seconds(),
			Text:  strings.TrimSpace(s.Text),
		})
		text = append(text, strings.TrimSpace(s.Text))
	}

	detected := wctx.DetectedLanguage()
	if detected == "" {
		detected = wctx.Language()
	}
	return Result{
		Text:       strings.Join(text, " "),
		Language:   detected,
		Confidence: Confidence(segments),
		Segments:   segments,
	}, nil
}

func (w *Whisper) Close() error {
	return w.model.Close()
}
