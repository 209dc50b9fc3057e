package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"agent-cag/internal/client"
)

// MockGenerator is a mock implementation of Generator using testify/mock.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req client.GenerateRequest) (client.GenerateResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(client.GenerateResponse), args.Error(1)
}

// MockSynthesizer is a mock implementation of Synthesizer using testify/mock.
type MockSynthesizer struct {
	mock.Mock
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, req client.SynthesizeRequest) (client.SynthesizeResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(client.SynthesizeResponse), args.Error(1)
}

// MockTranscriber is a mock implementation of Transcriber using testify/mock.
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio client.Audio) (client.Transcription, error) {
	args := m.Called(ctx, audio)
	return args.Get(0).(client.Transcription), args.Error(1)
}
