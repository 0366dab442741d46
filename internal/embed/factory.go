package embed

import (
	"context"
	"log/slog"
	"os"
	"strings"

	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderStatic uses offline hash-based embeddings (default)
	ProviderStatic ProviderType = "static"

	// ProviderOllama uses a local Ollama server
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI uses the OpenAI embeddings API or a compatible server
	ProviderOpenAI ProviderType = "openai"

	// ProviderNone disables embeddings
	ProviderNone ProviderType = "none"
)

// EnvProvider overrides the configured provider when set.
const EnvProvider = "FSINDEX_EMBEDDER"

// Options selects and configures a provider.
type Options struct {
	Provider   ProviderType
	Model      string
	Dimensions int

	OllamaHost    string
	OpenAIBaseURL string
	OpenAIAPIKey  string

	// CacheSize of the LRU decorator; negative disables caching.
	CacheSize int
}

// NewEmbedder creates the embedder selected by opts, or by the
// FSINDEX_EMBEDDER environment variable when it is set. Remote providers
// are health-checked and fail with ErrEmbeddingUnavailable; there is no
// silent fallback to another provider.
func NewEmbedder(ctx context.Context, opts Options) (Embedder, error) {
	provider := opts.Provider
	if env := os.Getenv(EnvProvider); env != "" {
		provider = ParseProvider(env)
	}

	var (
		embedder Embedder
		err      error
	)
	switch provider {
	case ProviderStatic, "":
		embedder = NewStaticEmbedder()

	case ProviderOllama:
		cfg := DefaultOllamaConfig()
		if opts.OllamaHost != "" {
			cfg.Host = opts.OllamaHost
		}
		if opts.Model != "" {
			cfg.Model = opts.Model
		}
		cfg.Dimensions = opts.Dimensions
		embedder, err = NewOllamaEmbedder(ctx, cfg)

	case ProviderOpenAI:
		embedder, err = NewOpenAIEmbedder(ctx, OpenAIConfig{
			APIKey:     opts.OpenAIAPIKey,
			BaseURL:    opts.OpenAIBaseURL,
			Model:      opts.Model,
			Dimensions: opts.Dimensions,
		})

	case ProviderNone:
		return nil, fserrors.New(fserrors.ErrCodeEmbeddingUnavailable, "embeddings are disabled", nil).
			WithSuggestion("set embeddings.provider to static, ollama or openai")

	default:
		return nil, fserrors.New(fserrors.ErrCodeConfigInvalid, "unknown embedding provider", nil).
			WithDetail("provider", string(provider)).
			WithSuggestion("valid providers: " + strings.Join(ValidProviders(), ", "))
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("embedder_created",
		slog.String("provider", string(provider)),
		slog.String("model", embedder.ModelName()),
		slog.Int("dimensions", embedder.Dimensions()))

	if opts.CacheSize >= 0 {
		embedder = NewCachedEmbedder(embedder, opts.CacheSize)
	}
	return embedder, nil
}

// ParseProvider converts a string to ProviderType. Unknown names are
// returned as-is so NewEmbedder can report them.
func ParseProvider(s string) ProviderType {
	switch p := strings.ToLower(strings.TrimSpace(s)); p {
	case "", "static":
		return ProviderStatic
	case "ollama", "llama":
		return ProviderOllama
	case "openai":
		return ProviderOpenAI
	case "none", "off", "disabled":
		return ProviderNone
	default:
		return ProviderType(p)
	}
}

// String returns the string representation of ProviderType
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names
func ValidProviders() []string {
	return []string{
		string(ProviderStatic),
		string(ProviderOllama),
		string(ProviderOpenAI),
		string(ProviderNone),
	}
}

// IsValidProvider checks if a provider name is valid
func IsValidProvider(s string) bool {
	p := string(ParseProvider(s))
	for _, v := range ValidProviders() {
		if p == v {
			return true
		}
	}
	return false
}
