package embeddings

import "context"

// Vector is a simple float32 slice wrapper.
type Vector []float32

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	// Dimension is the length of every vector this embedder returns.
	Dimension() int
}
