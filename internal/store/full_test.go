package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agent-cag/internal/embeddings"
)

type mockGraph struct {
	mock.Mock
}

func (m *mockGraph) Health(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockGraph) StoreQuery(ctx context.Context, text, userID string, inputType InputType) (string, error) {
	args := m.Called(ctx, text, userID, inputType)
	return args.String(0), args.Error(1)
}

func (m *mockGraph) StoreResponse(ctx context.Context, queryID, text string, metadata map[string]any) (string, error) {
	args := m.Called(ctx, queryID, text, metadata)
	return args.String(0), args.Error(1)
}

func (m *mockGraph) DeleteResponse(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockGraph) History(ctx context.Context, userID string, limit int) ([]ConversationEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ConversationEntry), args.Error(1)
}

func (m *mockGraph) Close() error {
	return m.Called().Error(0)
}

type mockVectors struct {
	mock.Mock
}

func (m *mockVectors) Health(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockVectors) Upsert(ctx context.Context, entries []IndexEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *mockVectors) Search(ctx context.Context, vec embeddings.Vector, limit int) ([]SearchResult, error) {
	args := m.Called(ctx, vec, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SearchResult), args.Error(1)
}

func (m *mockVectors) Close() error {
	return m.Called().Error(0)
}

type fullFakes struct {
	graph    *mockGraph
	vectors  *mockVectors
	embedder *embeddings.MockEmbedder
}

func newFullFakes() (fullFakes, *FullStore) {
	f := fullFakes{graph: new(mockGraph), vectors: new(mockVectors), embedder: new(embeddings.MockEmbedder)}
	return f, newFull(f.graph, f.vectors, f.embedder)
}

func (f fullFakes) assertExpectations(t *testing.T) {
	f.graph.AssertExpectations(t)
	f.vectors.AssertExpectations(t)
	f.embedder.AssertExpectations(t)
}

func TestFullStoreStoreResponse(t *testing.T) {
	vec := embeddings.Vector{0.1, 0.2}
	tests := []struct {
		name    string
		setup   func(fullFakes)
		wantID  string
		wantErr string
	}{
		{
			name: "graph then index",
			setup: func(f fullFakes) {
				f.graph.On("StoreResponse", mock.Anything, "q1", "Paris.", mock.Anything).Return("r1", nil).Once()
				f.embedder.On("Embed", mock.Anything, "Paris.").Return(vec, nil).Once()
				f.vectors.On("Upsert", mock.Anything, mock.MatchedBy(func(entries []IndexEntry) bool {
					return len(entries) == 1 && entries[0].ID == "r1" && entries[0].ContentType == ContentResponse &&
						entries[0].Metadata["query_id"] == "q1" && len(entries[0].Vector) == 2
				})).Return(nil).Once()
			},
			wantID: "r1",
		},
		{
			name: "unknown query writes nothing",
			setup: func(f fullFakes) {
				f.graph.On("StoreResponse", mock.Anything, "q1", "Paris.", mock.Anything).Return("", ErrNotFound).Once()
			},
			wantErr: "not found",
		},
		{
			name: "index failure rolls back the response",
			setup: func(f fullFakes) {
				f.graph.On("StoreResponse", mock.Anything, "q1", "Paris.", mock.Anything).Return("r1", nil).Once()
				f.embedder.On("Embed", mock.Anything, "Paris.").Return(vec, nil).Once()
				f.vectors.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("qdrant unavailable")).Once()
				f.graph.On("DeleteResponse", mock.Anything, "r1").Return(nil).Once()
			},
			wantErr: "qdrant unavailable",
		},
		{
			name: "embed failure rolls back the response",
			setup: func(f fullFakes) {
				f.graph.On("StoreResponse", mock.Anything, "q1", "Paris.", mock.Anything).Return("r1", nil).Once()
				f.embedder.On("Embed", mock.Anything, "Paris.").Return(nil, errors.New("ollama down")).Once()
				f.graph.On("DeleteResponse", mock.Anything, "r1").Return(nil).Once()
			},
			wantErr: "ollama down",
		},
		{
			name: "failed rollback is reported",
			setup: func(f fullFakes) {
				f.graph.On("StoreResponse", mock.Anything, "q1", "Paris.", mock.Anything).Return("r1", nil).Once()
				f.embedder.On("Embed", mock.Anything, "Paris.").Return(vec, nil).Once()
				f.vectors.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("qdrant unavailable")).Once()
				f.graph.On("DeleteResponse", mock.Anything, "r1").Return(errors.New("neo4j gone")).Once()
			},
			wantErr: "neo4j gone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, s := newFullFakes()
			tt.setup(f)

			id, err := s.StoreResponse(context.Background(), "q1", "Paris.", map[string]any{"model": "demo"})
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				assert.Empty(t, id)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
			}
			f.assertExpectations(t)
		})
	}
}

func TestFullStoreDelegates(t *testing.T) {
	ctx := context.Background()
	f, s := newFullFakes()

	f.graph.On("StoreQuery", mock.Anything, "hi", "alice", InputSpeech).Return("q1", nil).Once()
	id, err := s.StoreQuery(ctx, "hi", "alice", InputSpeech)
	require.NoError(t, err)
	assert.Equal(t, "q1", id)

	newest := ConversationEntry{QueryID: "q2", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	oldest := ConversationEntry{QueryID: "q1", Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.graph.On("History", mock.Anything, "alice", 2).Return([]ConversationEntry{newest, oldest}, nil).Once()
	history, err := s.History(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"q2", "q1"}, []string{history[0].QueryID, history[1].QueryID})

	vec := embeddings.Vector{1, 0}
	f.embedder.On("Embed", mock.Anything, "capital").Return(vec, nil).Once()
	f.vectors.On("Search", mock.Anything, vec, 5).Return([]SearchResult{{ID: "r1", Score: 0.9}}, nil).Once()
	results, err := s.Search(ctx, "capital", 5)
	require.NoError(t, err)
	assert.Equal(t, "r1", results[0].ID)

	f.assertExpectations(t)
}

func TestFullStoreIndexKeepsGivenVectors(t *testing.T) {
	f, s := newFullFakes()
	given := embeddings.Vector{0.5, 0.5}
	embedded := embeddings.Vector{1, 0}

	f.embedder.On("Embed", mock.Anything, "needs a vector").Return(embedded, nil).Once()
	f.vectors.On("Upsert", mock.Anything, []IndexEntry{
		{ID: "a", Text: "has a vector", Vector: given},
		{ID: "b", Text: "needs a vector", Vector: embedded},
	}).Return(nil).Once()

	require.NoError(t, s.Index(context.Background(), []IndexEntry{
		{ID: "a", Text: "has a vector", Vector: given},
		{ID: "b", Text: "needs a vector"},
	}))
	f.assertExpectations(t)
}

func TestFullStoreHealthAndClose(t *testing.T) {
	f, s := newFullFakes()
	f.graph.On("Health", mock.Anything).Return(nil).Once()
	f.vectors.On("Health", mock.Anything).Return(errors.New("connection refused")).Once()
	assert.ErrorContains(t, s.Health(context.Background()), "vectors")

	f.graph.On("Close").Return(nil).Once()
	f.vectors.On("Close").Return(nil).Once()
	assert.NoError(t, s.Close())
	f.assertExpectations(t)
}
