package types

import (
	"context"

	"github.com/sudeepbogati7/threat-news-summarizer/internal/models"
)

// Embedder turns texts into fixed-dimension vectors. The same embedder
// must be used for index building and query embedding; mixing models
// between the two is a correctness bug, not a quality regression.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces an answer grounded in the supplied chunks.
type Generator interface {
	Generate(ctx context.Context, query string, chunks []models.Chunk) (string, error)
}
