// Package index turns queued text into search index entries.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"agent-cag/internal/chunker"
	"agent-cag/internal/embeddings"
	"agent-cag/internal/queue"
	"agent-cag/internal/store"
)

// Chunk is one piece of a document awaiting indexing.
type Chunk struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Payload is the body of an index task.
type Payload struct {
	DocumentID  string  `json:"document_id"`
	Filename    string  `json:"filename,omitempty"`
	ContentType string  `json:"content_type"`
	Chunks      []Chunk `json:"chunks"`
}

// NewTask chunks text of a document and wraps it in an index task.
func NewTask(documentID, filename, text string, opts chunker.Options) (queue.Task, Payload, error) {
	payload := Payload{DocumentID: documentID, Filename: filename, ContentType: store.ContentKnowledge}
	for _, c := range chunker.ChunkText(text, opts) {
		payload.Chunks = append(payload.Chunks, Chunk{ID: uuid.NewString(), Index: c.Index, Text: c.Text})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return queue.Task{}, Payload{}, fmt.Errorf("failed to encode index payload: %w", err)
	}
	return queue.Task{ID: uuid.New(), Type: queue.TaskTypeIndex, Payload: body, MaxAttempts: 5}, payload, nil
}

// Indexer embeds chunks and writes them to the store.
type Indexer struct {
	store    store.Store
	embedder embeddings.Embedder
	log      *slog.Logger
}

func New(st store.Store, embedder embeddings.Embedder, log *slog.Logger) *Indexer {
	return &Indexer{store: st, embedder: embedder, log: log}
}

// Handle is a queue.Handler for index tasks.
func (ix *Indexer) Handle(ctx context.Context, task queue.Task) error {
	var payload Payload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		// A malformed payload never succeeds; drop it.
		ix.log.Error("invalid index payload", "task_id", task.ID, "err", err)
		return nil
	}
	if len(payload.Chunks) == 0 {
		return nil
	}

	entries := make([]store.IndexEntry, 0, len(payload.Chunks))
	for _, c := range payload.Chunks {
		vec, err := ix.embedder.Embed(ctx, c.Text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %s: %w", c.ID, err)
		}
		meta := map[string]any{"chunk_index": c.Index}
		if payload.Filename != "" {
			meta["filename"] = payload.Filename
		}
		entries = append(entries, store.IndexEntry{
			ID:          c.ID,
			ContentID:   payload.DocumentID,
			ContentType: payload.ContentType,
			Text:        c.Text,
			Vector:      vec,
			Metadata:    meta,
		})
	}

	if err := ix.store.Index(ctx, entries); err != nil {
		return fmt.Errorf("failed to index document %s: %w", payload.DocumentID, err)
	}
	ix.log.Info("indexed document", "document_id", payload.DocumentID, "chunks", len(entries), "attempt", task.Attempts)
	return nil
}
