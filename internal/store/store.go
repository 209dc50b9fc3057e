package store

import (
	"context"
	"errors"
	"time"

	"agent-cag/internal/embeddings"
)

type InputType string

const (
	InputText   InputType = "text"
	InputSpeech InputType = "speech"
)

// Content types of index entries.
const (
	ContentResponse  = "response"
	ContentKnowledge = "knowledge"
)

// Relationship types between conversation nodes.
const (
	RelAsked   = "ASKED"
	RelAnswers = "ANSWERS"
)

var ErrNotFound = errors.New("not found")

// ConversationEntry is one answered query in a user's history.
type ConversationEntry struct {
	QueryID      string    `json:"query_id"`
	ResponseID   string    `json:"response_id"`
	QueryText    string    `json:"query_text"`
	ResponseText string    `json:"response_text"`
	Timestamp    time.Time `json:"timestamp"`
	InputType    InputType `json:"input_type"`
}

type SearchResult struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// IndexEntry is a searchable piece of text. Vector may be nil; stores that
// search by similarity embed the text themselves in that case.
type IndexEntry struct {
	ID          string
	ContentID   string
	ContentType string
	Text        string
	Vector      embeddings.Vector
	Metadata    map[string]any
}

// Store persists conversation turns and the search index for one deployment profile.
type Store interface {
	Health(ctx context.Context) error
	StoreQuery(ctx context.Context, text, userID string, inputType InputType) (string, error)
	// StoreResponse links the response to queryID and indexes its text.
	// It returns ErrNotFound when the query does not exist.
	StoreResponse(ctx context.Context, queryID, text string, metadata map[string]any) (string, error)
	History(ctx context.Context, userID string, limit int) ([]ConversationEntry, error)
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Index(ctx context.Context, entries []IndexEntry) error
	Close() error
}
