package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of Provider using testify/mock.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return m.Called().String(0)
}

func (m *MockProvider) Model() string {
	return m.Called().String(0)
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (Generation, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Generation), args.Error(1)
}

func (m *MockProvider) Models(ctx context.Context) ([]ModelInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ModelInfo), args.Error(1)
}
