package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/sudeepbogati7/threat-news-summarizer/internal/types"
)

// EmbedderConfig configures the embedding capability.
type EmbedderConfig struct {
	Provider string // "ollama" or "openai"
	Model    string
	BaseURL  string // Ollama server URL or OpenAI-compatible endpoint
	APIKey   string // required for openai
}

// embeddingClient is satisfied by the langchaingo ollama and openai clients.
type embeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder batch-embeds texts through a configured provider. Vectors
// for a given model and text are stable, which the index relies on.
type Embedder struct {
	config EmbedderConfig
	client embeddingClient
}

var _ types.Embedder = (*Embedder)(nil)

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Provider == "" {
		config.Provider = "ollama"
	}

	var client embeddingClient
	var err error

	switch config.Provider {
	case "ollama":
		if config.Model == "" {
			config.Model = "nomic-embed-text:latest"
		}
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		client, err = ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL),
		)
	case "openai":
		if config.APIKey == "" {
			return nil, fmt.Errorf("%w: openai embedding api key missing", types.ErrNotConfigured)
		}
		if config.Model == "" {
			config.Model = "text-embedding-3-small"
		}
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithEmbeddingModel(config.Model),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		client, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", types.ErrNotConfigured, config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config: config,
		client: client,
	}, nil
}

// Embed returns one vector per input text. Provider failures and
// malformed responses (missing or ragged vectors) are reported as
// embedding errors; nothing partial is returned.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := e.client.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbedding, err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", types.ErrEmbedding, len(vectors), len(texts))
	}

	dim := 0
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: empty vector at position %d", types.ErrEmbedding, i)
		}
		if dim == 0 {
			dim = len(vec)
		} else if len(vec) != dim {
			return nil, fmt.Errorf("%w: inconsistent dimensions %d and %d", types.ErrEmbedding, dim, len(vec))
		}
	}

	return vectors, nil
}

// Model reports the configured embedding model name.
func (e *Embedder) Model() string {
	return e.config.Model
}
