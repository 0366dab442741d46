package embed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig configures the OpenAI-compatible embedder.
type OpenAIConfig struct {
	APIKey string
	// BaseURL points at any OpenAI-compatible endpoint ("" = api.openai.com).
	BaseURL string
	Model   string
	// Dimensions requests shortened vectors from models that support it
	// (0 = the model's native size).
	Dimensions int
	BatchSize  int
	MaxRetries int // 0 = 3, negative disables retries
}

// OpenAIEmbedder uses the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	cfg    OpenAIConfig
	retry  fserrors.RetryConfig
	dims   int

	mu     sync.RWMutex
	closed bool
}

// Verify interface implementation at compile time
var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an OpenAI embedder. When no dimensionality is
// configured it is probed with one request.
func NewOpenAIEmbedder(ctx context.Context, cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, unavailable("openai", errors.New("OPENAI_API_KEY is not set"))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	retry := fserrors.DefaultRetryConfig()
	retry.MaxRetries = max(cfg.MaxRetries, 0)

	e := &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		retry:  retry,
		dims:   cfg.Dimensions,
	}

	if e.dims == 0 {
		probeCtx, cancel := context.WithTimeout(ctx, OllamaConnectTimeout)
		defer cancel()
		vecs, err := e.create(probeCtx, []string{"dimension probe"})
		if err != nil {
			return nil, unavailable("openai", fmt.Errorf("detect dimensions: %w", err))
		}
		e.dims = len(vecs[0])
	}

	return e, nil
}

// Embed generates an embedding for a single text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends texts in requests of at most BatchSize inputs. Blank
// texts map to the zero vector; the API rejects empty input.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	results := make([][]float32, len(texts))
	var idx []int
	var pending []string
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, e.dims)
			continue
		}
		idx = append(idx, i)
		pending = append(pending, text)
	}

	for start := 0; start < len(pending); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(pending))

		vecs, err := fserrors.RetryWithResult(ctx, e.retry, func() ([][]float32, error) {
			return e.create(ctx, pending[start:end])
		})
		if err != nil {
			return nil, fserrors.New(fserrors.ErrCodeEmbeddingFailed, "openai embedding failed", err).
				WithDetail("model", e.cfg.Model)
		}
		for j, v := range vecs {
			results[idx[start+j]] = v
		}
	}
	return results, nil
}

func (e *OpenAIEmbedder) create(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.cfg.Model),
		Input: texts,
	}
	if e.cfg.Dimensions > 0 {
		req.Dimensions = e.cfg.Dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 &&
			apiErr.HTTPStatusCode != http.StatusTooManyRequests {
			return nil, fserrors.Permanent(err)
		}
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i := range d.Embedding {
			v[i] = float32(d.Embedding[i])
		}
		out[d.Index] = v
	}
	return out, nil
}

// Dimensions returns the embedding dimension
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier
func (e *OpenAIEmbedder) ModelName() string {
	return e.cfg.Model
}

// Available reports whether the embedder is open. It does not spend a
// request on the check.
func (e *OpenAIEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close marks the embedder closed.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
