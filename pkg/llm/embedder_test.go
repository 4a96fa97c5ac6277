package llm_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudeepbogati7/threat-news-summarizer/internal/types"
	"github.com/sudeepbogati7/threat-news-summarizer/pkg/llm"
)

func TestNewEmbedderWithConfig_OllamaDefaults(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{})
	require.NoError(t, err)
	require.NotNil(t, emb)
	assert.Equal(t, "nomic-embed-text:latest", emb.Model())
}

func TestNewEmbedderWithConfig_OpenAIRequiresKey(t *testing.T) {
	_, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{Provider: "openai"})
	assert.True(t, errors.Is(err, types.ErrNotConfigured))
}

func TestNewEmbedderWithConfig_OpenAIWithKey(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider: "openai",
		APIKey:   "test-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", emb.Model())
}

func TestNewEmbedderWithConfig_UnknownProvider(t *testing.T) {
	_, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{Provider: "mystery"})
	assert.True(t, errors.Is(err, types.ErrNotConfigured))
}
