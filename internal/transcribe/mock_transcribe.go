package transcribe

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTranscriber is a mock implementation of Transcriber using testify/mock.
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockTranscriber) Transcribe(ctx context.Context, in Input) (Result, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(Result), args.Error(1)
}

func (m *MockTranscriber) Close() error {
	args := m.Called()
	return args.Error(0)
}
