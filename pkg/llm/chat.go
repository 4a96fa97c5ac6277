package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/sudeepbogati7/threat-news-summarizer/internal/models"
	"github.com/sudeepbogati7/threat-news-summarizer/internal/types"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider        string // "ollama" or "openai"
	Model           string
	Temperature     float64
	MaxTokens       int
	SystemTemplate  string
	ContextTemplate string
	BaseURL         string
	APIKey          string // required for openai
}

// ChatEngine generates answers grounded in retrieved article chunks.
// The grounding instruction lives in the system template; it is a
// contract with the model, not something the engine can enforce.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

var _ types.Generator = (*ChatEngine)(nil)

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Provider == "" {
		config.Provider = "ollama"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are a news assistant. Answer the question using only the " +
			"article excerpts provided. Do not introduce facts that are not in the excerpts. " +
			"If the excerpts do not contain the answer, reply exactly: No relevant information found."
	}
	if config.ContextTemplate == "" {
		config.ContextTemplate = "Article excerpts:\n\n%s\nQuestion: %s"
	}

	var model llms.Model
	var err error

	switch config.Provider {
	case "ollama":
		if config.Model == "" {
			config.Model = "mistral"
		}
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		model, err = ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL),
		)
	case "openai":
		if config.APIKey == "" {
			return nil, fmt.Errorf("%w: openai chat api key missing", types.ErrNotConfigured)
		}
		if config.Model == "" {
			config.Model = "gpt-3.5-turbo"
		}
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithModel(config.Model),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("%w: unknown chat provider %q", types.ErrNotConfigured, config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    model,
	}, nil
}

// Generate produces an answer for the query grounded in the chunks.
func (ce *ChatEngine) Generate(ctx context.Context, query string, chunks []models.Chunk) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(llms.ChatMessageTypeHuman,
			fmt.Sprintf(ce.config.ContextTemplate, contextBlock(chunks), query)),
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrGeneration, err)
	}

	if response == nil || len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response from model", types.ErrGeneration)
	}

	return response.Choices[0].Content, nil
}

// contextBlock formats retrieved chunks for the prompt, each preceded
// by its source URL so the model can reference where text came from.
func contextBlock(chunks []models.Chunk) string {
	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString(fmt.Sprintf("Source: %s\n%s\n\n", chunk.Metadata.URL, chunk.Text))
	}
	return b.String()
}
