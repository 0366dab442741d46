package embed

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

// mockEmbedder is a test double that counts calls
type mockEmbedder struct {
	embedCalls atomic.Int64
	batchCalls atomic.Int64
	dimensions int
	modelName  string
	delay      time.Duration
	ignoreCtx  bool
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dimensions: dims, modelName: "mock-model"}
}

func (m *mockEmbedder) vector(text string) []float32 {
	v := make([]float32, m.dimensions)
	v[0] = float32(len(text))
	return v
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	if m.delay > 0 {
		if m.ignoreCtx {
			time.Sleep(m.delay)
		} else {
			select {
			case <-time.After(m.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	result := make([][]float32, len(texts))
	for i, t := range texts {
		result[i] = m.vector(t)
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int                  { return m.dimensions }
func (m *mockEmbedder) ModelName() string                { return m.modelName }
func (m *mockEmbedder) Available(_ context.Context) bool { return true }
func (m *mockEmbedder) Close() error                     { return nil }

// cosineSimilarity computes cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dotProduct, magA, magB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(magA) * math.Sqrt(magB))
}
