// Package embed turns the descriptive text of a file into a vector.
//
// Providers implement Embedder. The static provider works offline and is
// deterministic; ollama and openai call remote models. Vectors are returned
// as produced and are never normalized here.
package embed

import (
	"context"
	"time"
)

const (
	// StaticDimensions is the embedding dimension of the static embedder.
	StaticDimensions = 256

	// DefaultMaxFileBytes is the largest file that gets an embedding (1MB).
	DefaultMaxFileBytes int64 = 1024 * 1024

	// DefaultTimeout bounds a single embedding call.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of texts sent per remote request.
	DefaultBatchSize = 32

	// DefaultEmbeddingCacheSize is the number of vectors kept by CachedEmbedder.
	DefaultEmbeddingCacheSize = 1000
)

// Embedder generates vector embeddings for text
type Embedder interface {
	// Embed generates embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Available checks if the embedder is ready
	Available(ctx context.Context) bool

	// Close releases resources
	Close() error
}
