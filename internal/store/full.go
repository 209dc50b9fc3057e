package store

import (
	"context"
	"errors"
	"fmt"

	"agent-cag/internal/embeddings"
)

// conversationGraph is the graph half of the full profile (*GraphStore).
type conversationGraph interface {
	Health(ctx context.Context) error
	StoreQuery(ctx context.Context, text, userID string, inputType InputType) (string, error)
	StoreResponse(ctx context.Context, queryID, text string, metadata map[string]any) (string, error)
	DeleteResponse(ctx context.Context, id string) error
	History(ctx context.Context, userID string, limit int) ([]ConversationEntry, error)
	Close() error
}

// vectorIndex is the similarity-search half of the full profile (*VectorStore).
type vectorIndex interface {
	Health(ctx context.Context) error
	Upsert(ctx context.Context, entries []IndexEntry) error
	Search(ctx context.Context, vec embeddings.Vector, limit int) ([]SearchResult, error)
	Close() error
}

// FullStore combines the Neo4j conversation graph with a Qdrant index.
type FullStore struct {
	graph    conversationGraph
	vectors  vectorIndex
	embedder embeddings.Embedder
}

func NewFull(graph *GraphStore, vectors *VectorStore, embedder embeddings.Embedder) *FullStore {
	return newFull(graph, vectors, embedder)
}

func newFull(graph conversationGraph, vectors vectorIndex, embedder embeddings.Embedder) *FullStore {
	return &FullStore{graph: graph, vectors: vectors, embedder: embedder}
}

func (s *FullStore) Health(ctx context.Context) error {
	if err := s.graph.Health(ctx); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	if err := s.vectors.Health(ctx); err != nil {
		return fmt.Errorf("vectors: %w", err)
	}
	return nil
}

func (s *FullStore) StoreQuery(ctx context.Context, text, userID string, inputType InputType) (string, error) {
	return s.graph.StoreQuery(ctx, text, userID, inputType)
}

// StoreResponse writes the response node and then indexes it. When indexing
// fails the node is removed again so the turn never shows up in history
// without being searchable.
func (s *FullStore) StoreResponse(ctx context.Context, queryID, text string, metadata map[string]any) (string, error) {
	id, err := s.graph.StoreResponse(ctx, queryID, text, metadata)
	if err != nil {
		return "", err
	}
	entry := IndexEntry{ID: id, ContentID: id, ContentType: ContentResponse, Text: text, Metadata: map[string]any{"query_id": queryID}}
	if err := s.Index(ctx, []IndexEntry{entry}); err != nil {
		indexErr := fmt.Errorf("failed to index response %s: %w", id, err)
		if derr := s.graph.DeleteResponse(context.WithoutCancel(ctx), id); derr != nil {
			return "", errors.Join(indexErr, fmt.Errorf("failed to roll back response %s: %w", id, derr))
		}
		return "", indexErr
	}
	return id, nil
}

func (s *FullStore) History(ctx context.Context, userID string, limit int) ([]ConversationEntry, error) {
	return s.graph.History(ctx, userID, limit)
}

func (s *FullStore) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.vectors.Search(ctx, vec, limit)
}

// Index embeds entries that arrive without a vector and upserts them.
func (s *FullStore) Index(ctx context.Context, entries []IndexEntry) error {
	ready := make([]IndexEntry, 0, len(entries))
	for _, e := range entries {
		if len(e.Vector) == 0 {
			vec, err := s.embedder.Embed(ctx, e.Text)
			if err != nil {
				return fmt.Errorf("failed to embed entry %s: %w", e.ID, err)
			}
			e.Vector = vec
		}
		ready = append(ready, e)
	}
	return s.vectors.Upsert(ctx, ready)
}

func (s *FullStore) Close() error {
	return errors.Join(s.graph.Close(), s.vectors.Close())
}
