// Package transcribe turns recorded speech into text.
package transcribe

import (
	"context"
	"io"
)

const (
	EngineOpenAI  = "openai"
	EngineWhisper = "whisper"
)

// defaultConfidence is reported when no segment carries a log probability.
const defaultConfidence = 0.8

type Input struct {
	Filename string
	Data     io.Reader
	Language string
}

type Segment struct {
	ID         int      `json:"id"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	AvgLogprob *float64 `json:"avg_logprob,omitempty"`
}

type Result struct {
	Text       string    `json:"text"`
	Language   string    `json:"language"`
	Confidence float64   `json:"confidence"`
	Segments   []Segment `json:"segments"`
}

type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, in Input) (Result, error)
	Close() error
}

// Confidence averages clamp(avg_logprob+1, 0, 1) over segments that report
// a log probability.
func Confidence(segments []Segment) float64 {
	var total float64
	var n int
	for _, s := range segments {
		if s.AvgLogprob == nil {
			continue
		}
		total += min(1, max(0, *s.AvgLogprob+1))
		n++
	}
	if n == 0 {
		return defaultConfidence
	}
	return total / float64(n)
}
