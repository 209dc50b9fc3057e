package store

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) StoreQuery(ctx context.Context, text, userID string, inputType InputType) (string, error) {
	args := m.Called(ctx, text, userID, inputType)
	return args.String(0), args.Error(1)
}

func (m *MockStore) StoreResponse(ctx context.Context, queryID, text string, metadata map[string]any) (string, error) {
	args := m.Called(ctx, queryID, text, metadata)
	return args.String(0), args.Error(1)
}

func (m *MockStore) History(ctx context.Context, userID string, limit int) ([]ConversationEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ConversationEntry), args.Error(1)
}

func (m *MockStore) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SearchResult), args.Error(1)
}

func (m *MockStore) Index(ctx context.Context, entries []IndexEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
