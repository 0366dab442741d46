package embed

import "time"

// Ollama API constants
const (
	// DefaultOllamaHost is the default Ollama API endpoint
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is a small general-purpose text embedding model.
	DefaultOllamaModel = "nomic-embed-text"

	// OllamaConnectTimeout for initial health check
	OllamaConnectTimeout = 10 * time.Second

	// OllamaPoolSize for connection pool
	OllamaPoolSize = 4

	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3
)

// FallbackOllamaModels are tried in order if the primary model is not pulled.
var FallbackOllamaModels = []string{
	"all-minilm",
	"mxbai-embed-large",
}

// OllamaConfig configures the Ollama embedder
type OllamaConfig struct {
	// Host is the Ollama API endpoint (default: http://localhost:11434)
	Host string

	// Model is the embedding model to use
	Model string

	// FallbackModels are tried in order if primary model unavailable
	FallbackModels []string

	// Dimensions can be set to override auto-detection (0 = auto-detect)
	Dimensions int

	// BatchSize for batch embedding requests (default: 32)
	BatchSize int

	// MaxRetries for transient failures (0 = 3, negative disables retries)
	MaxRetries int

	// ConnectTimeout for initial health check (default: 10s)
	ConnectTimeout time.Duration

	// PoolSize for HTTP connection pool (default: 4)
	PoolSize int

	// SkipHealthCheck skips the model lookup at construction (for testing)
	SkipHealthCheck bool
}

// DefaultOllamaConfig returns sensible defaults
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:           DefaultOllamaHost,
		Model:          DefaultOllamaModel,
		FallbackModels: FallbackOllamaModels,
		BatchSize:      DefaultBatchSize,
		MaxRetries:     DefaultMaxRetries,
		ConnectTimeout: OllamaConnectTimeout,
		PoolSize:       OllamaPoolSize,
	}
}

// OllamaEmbedRequest is the Ollama /api/embed request
type OllamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"` // string or []string for batch
}

// OllamaEmbedResponse is the Ollama /api/embed response
type OllamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaModelListResponse is the Ollama /api/tags response
type OllamaModelListResponse struct {
	Models []OllamaModelInfo `json:"models"`
}

// OllamaModelInfo describes an installed model
type OllamaModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}
