// Package embed generates vector embeddings for code chunks and queries.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the number of texts sent per embedding request.
	DefaultBatchSize = 32

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 60 * time.Second

	// WarmupTimeout bounds the construction-time warm-up call. Cold model
	// loads can take tens of seconds.
	WarmupTimeout = 180 * time.Second

	// DefaultMaxRetries is the number of attempts per embedding request.
	DefaultMaxRetries = 3

	// StaticDimensions is the embedding dimension of the static embedder.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. The result
	// preserves input order: result[i] corresponds to texts[i].
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
