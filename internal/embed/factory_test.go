package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
)

func TestNewEmbedder_DefaultIsCachedStatic(t *testing.T) {
	t.Setenv(EnvProvider, "")

	e, err := NewEmbedder(context.Background(), Options{})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	cached, ok := e.(*CachedEmbedder)
	require.True(t, ok)
	assert.IsType(t, &StaticEmbedder{}, cached.Inner())
	assert.Equal(t, StaticDimensions, e.Dimensions())
	assert.Equal(t, "static", e.ModelName())
}

func TestNewEmbedder_NegativeCacheSizeDisablesCache(t *testing.T) {
	t.Setenv(EnvProvider, "")

	e, err := NewEmbedder(context.Background(), Options{Provider: ProviderStatic, CacheSize: -1})
	require.NoError(t, err)
	assert.IsType(t, &StaticEmbedder{}, e)
}

func TestNewEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		env      string
		wantCode string
	}{
		{"provider none", Options{Provider: ProviderNone}, "", fserrors.ErrCodeEmbeddingUnavailable},
		{"env disables", Options{Provider: ProviderStatic}, "off", fserrors.ErrCodeEmbeddingUnavailable},
		{"unknown provider", Options{Provider: "word2vec"}, "", fserrors.ErrCodeConfigInvalid},
		{"openai without key", Options{Provider: ProviderOpenAI}, "", fserrors.ErrCodeEmbeddingUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvProvider, tt.env)

			e, err := NewEmbedder(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Nil(t, e)
			assert.Equal(t, tt.wantCode, fserrors.GetCode(err))
		})
	}
}

func TestNewEmbedder_Ollama(t *testing.T) {
	t.Setenv(EnvProvider, "")
	_, srv := newFakeOllama(t, "mxbai-embed-large:latest")

	e, err := NewEmbedder(context.Background(), Options{
		Provider:   ProviderOllama,
		Model:      "mxbai-embed-large",
		OllamaHost: srv.URL,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "mxbai-embed-large:latest", e.ModelName())
	assert.Equal(t, 3, e.Dimensions())
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in   string
		want ProviderType
	}{
		{"", ProviderStatic},
		{"Static", ProviderStatic},
		{" ollama ", ProviderOllama},
		{"OPENAI", ProviderOpenAI},
		{"disabled", ProviderNone},
		{"word2vec", ProviderType("word2vec")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseProvider(tt.in))
		})
	}
}

func TestIsValidProvider(t *testing.T) {
	assert.True(t, IsValidProvider("static"))
	assert.True(t, IsValidProvider("none"))
	assert.False(t, IsValidProvider("word2vec"))
}
