package transcribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func logprob(v float64) *float64 { return &v }

func TestConfidence(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		want     float64
	}{
		{name: "no segments", want: 0.8},
		{name: "segments without logprob", segments: []Segment{{Text: "a"}}, want: 0.8},
		{name: "single segment", segments: []Segment{{AvgLogprob: logprob(-0.25)}}, want: 0.75},
		{name: "clamped low", segments: []Segment{{AvgLogprob: logprob(-3)}}, want: 0},
		{name: "clamped high", segments: []Segment{{AvgLogprob: logprob(0.5)}}, want: 1},
		{
			name: "mean ignores missing",
			segments: []Segment{
				{AvgLogprob: logprob(-0.2)},
				{Text: "no score"},
				{AvgLogprob: logprob(-0.4)},
			},
			want: 0.7,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Confidence(tt.segments), 1e-9)
		})
	}
}

func TestOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI("", nil)
	assert.Error(t, err)
}
