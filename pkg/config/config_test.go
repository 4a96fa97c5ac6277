package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  provider: "ollama"
  base_url: "http://localhost:11434"
  model: "mistral"
  embed_model: "nomic-embed-text:latest"
  max_tokens: 1000
  temperature: 0.5

newsapi:
  query: "ransomware"
  page_size: 25
  rate_limit: 1.5
  enrich_content: true

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_chunks"
  vector_dim: 768

processor:
  chunk_size: 500
  chunk_overlap: 100

retrieval:
  top_k: 5

server:
  addr: ":9090"

log:
  env: "prod"
  level: "warn"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "ransomware", config.NewsAPI.Query)
	assert.Equal(t, 25, config.NewsAPI.PageSize)
	assert.True(t, config.NewsAPI.EnrichContent)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 5, config.Retrieval.TopK)
	assert.Equal(t, ":9090", config.Server.Addr)
	assert.Equal(t, "prod", config.Log.Env)
}

func TestLoadConfig_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte("llm: {}\n"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 1000, config.Processor.ChunkSize)
	assert.Equal(t, 200, config.Processor.ChunkOverlap)
	assert.Equal(t, 3, config.Retrieval.TopK)
	assert.Equal(t, "data leak", config.NewsAPI.Query)
	assert.Equal(t, "article_chunks", config.Database.TableName)
	assert.Equal(t, ":8080", config.Server.Addr)
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		applyDefaults(c)
		return c
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		badField string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:     "unknown provider",
			mutate:   func(c *Config) { c.LLM.Provider = "mystery" },
			badField: "llm.provider",
		},
		{
			name:     "openai without api key",
			mutate:   func(c *Config) { c.LLM.Provider = "openai"; c.LLM.APIKey = "" },
			badField: "llm.api_key",
		},
		{
			name:     "max tokens out of range",
			mutate:   func(c *Config) { c.LLM.MaxTokens = 10000 },
			badField: "llm.max_tokens",
		},
		{
			name:     "overlap not smaller than chunk size",
			mutate:   func(c *Config) { c.Processor.ChunkOverlap = c.Processor.ChunkSize },
			badField: "processor.chunk_overlap",
		},
		{
			name:     "page size too large",
			mutate:   func(c *Config) { c.NewsAPI.PageSize = 500 },
			badField: "newsapi.page_size",
		},
		{
			name:     "non-positive top_k",
			mutate:   func(c *Config) { c.Retrieval.TopK = -1 },
			badField: "retrieval.top_k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			errs := c.Validate()

			if tt.badField == "" {
				assert.Empty(t, errs)
				return
			}

			require.NotEmpty(t, errs)
			found := false
			for _, e := range errs {
				if e.Field == tt.badField {
					found = true
				}
			}
			assert.True(t, found, "expected a validation error on %s, got %v", tt.badField, errs)
		})
	}
}

func TestMergeWithEnv(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://ollama.internal:11434")
	t.Setenv("NEWSAPI_API_KEY", "test-key")
	t.Setenv("DATABASE_URL", "postgres://env-host:5432/news")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "http://ollama.internal:11434", config.LLM.BaseURL)
	assert.Equal(t, "test-key", config.NewsAPI.APIKey)
	assert.Equal(t, "postgres://env-host:5432/news", config.Database.URL)
}
