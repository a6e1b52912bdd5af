// Package embed defines the embedder contract consumed by the orchestrator
// and provides a deterministic hash-based fallback implementation.
package embed

import "context"

// Embedder turns canonical text into a fixed-dimension vector.
//
// Implementations must be stateless with respect to query history and safe
// for concurrent use: the same input must yield identical output within a
// process, and instances may be shared across concurrent callers.
type Embedder interface {
	// ModelID identifies the embedder; recorded as the vector index's
	// embedder_id and compared on load.
	ModelID() string
	// Dimension is the fixed output length of Embed/EmbedBatch.
	Dimension() int
	// Embed vectorizes a single canonical text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch vectorizes multiple canonical texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
