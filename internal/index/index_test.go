package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agent-cag/internal/chunker"
	"agent-cag/internal/embeddings"
	"agent-cag/internal/queue"
	"agent-cag/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewTask(t *testing.T) {
	task, payload, err := NewTask("doc-1", "notes.txt", "First sentence here. Second sentence here.", chunker.Options{MaxTokens: 3})
	require.NoError(t, err)

	assert.Equal(t, queue.TaskTypeIndex, task.Type)
	assert.Equal(t, 5, task.MaxAttempts)
	require.Len(t, payload.Chunks, 2)
	assert.Equal(t, "First sentence here.", payload.Chunks[0].Text)
	assert.Equal(t, store.ContentKnowledge, payload.ContentType)
	assert.NotEqual(t, payload.Chunks[0].ID, payload.Chunks[1].ID)
}

func TestIndexerHandle(t *testing.T) {
	task, payload, err := NewTask("doc-1", "notes.txt", "Alpha beta. Gamma delta.", chunker.Options{MaxTokens: 2})
	require.NoError(t, err)

	tests := []struct {
		name    string
		task    queue.Task
		setup   func(*store.MockStore, *embeddings.MockEmbedder)
		wantErr bool
	}{
		{
			name: "embeds and indexes every chunk",
			task: task,
			setup: func(st *store.MockStore, em *embeddings.MockEmbedder) {
				em.On("Embed", mock.Anything, "Alpha beta.").Return(embeddings.Vector{1, 0}, nil)
				em.On("Embed", mock.Anything, "Gamma delta.").Return(embeddings.Vector{0, 1}, nil)
				st.On("Index", mock.Anything, mock.MatchedBy(func(entries []store.IndexEntry) bool {
					return len(entries) == 2 &&
						entries[0].ID == payload.Chunks[0].ID &&
						entries[0].ContentID == "doc-1" &&
						entries[1].Vector[1] == 1 &&
						entries[1].Metadata["filename"] == "notes.txt"
				})).Return(nil)
			},
		},
		{
			name: "embedding failure is retried",
			task: task,
			setup: func(st *store.MockStore, em *embeddings.MockEmbedder) {
				em.On("Embed", mock.Anything, "Alpha beta.").Return(nil, errors.New("rate limited"))
			},
			wantErr: true,
		},
		{
			name: "store failure is retried",
			task: task,
			setup: func(st *store.MockStore, em *embeddings.MockEmbedder) {
				em.On("Embed", mock.Anything, mock.Anything).Return(embeddings.Vector{1}, nil)
				st.On("Index", mock.Anything, mock.Anything).Return(errors.New("db down"))
			},
			wantErr: true,
		},
		{
			name:  "malformed payload is dropped",
			task:  queue.Task{Type: queue.TaskTypeIndex, Payload: []byte("not json")},
			setup: func(*store.MockStore, *embeddings.MockEmbedder) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := new(store.MockStore)
			em := new(embeddings.MockEmbedder)
			tt.setup(st, em)

			err := New(st, em, discardLogger()).Handle(context.Background(), tt.task)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Handle error = %v, wantErr %v", err, tt.wantErr)
			}
			st.AssertExpectations(t)
			em.AssertExpectations(t)
		})
	}
}
