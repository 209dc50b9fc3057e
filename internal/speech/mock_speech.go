package speech

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSynthesizer is a mock implementation of Synthesizer using testify/mock.
type MockSynthesizer struct {
	mock.Mock
}

func (m *MockSynthesizer) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text, voice, path string) error {
	args := m.Called(ctx, text, voice, path)
	return args.Error(0)
}
