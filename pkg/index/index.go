package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sudeepbogati7/threat-news-summarizer/internal/models"
	"github.com/sudeepbogati7/threat-news-summarizer/internal/types"
)

// Index is an immutable in-memory nearest-neighbor index over chunk
// embeddings. chunks[i] corresponds to vectors[i]; norms caches vector
// magnitudes for cosine similarity.
type Index struct {
	dim     int
	chunks  []models.Chunk
	vectors [][]float32
	norms   []float32
}

// Build embeds all chunk texts in one batch and constructs the index.
// Any embedding failure aborts the whole build; there is no partially
// populated index.
func Build(ctx context.Context, embedder types.Embedder, chunks []models.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return &Index{}, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", types.ErrEmbedding, len(vectors), len(chunks))
	}

	dim := len(vectors[0])
	norms := make([]float32, len(vectors))
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", types.ErrEmbedding, i, len(vec), dim)
		}
		norms[i] = norm(vec)
	}

	owned := make([]models.Chunk, len(chunks))
	copy(owned, chunks)

	return &Index{
		dim:     dim,
		chunks:  owned,
		vectors: vectors,
		norms:   norms,
	}, nil
}

// Rehydrate constructs an index from previously persisted chunks and
// vectors, skipping the embedding step entirely.
func Rehydrate(chunks []models.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return &Index{}, nil
	}

	dim := len(vectors[0])
	norms := make([]float32, len(vectors))
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(vec), dim)
		}
		norms[i] = norm(vec)
	}

	return &Index{
		dim:     dim,
		chunks:  chunks,
		vectors: vectors,
		norms:   norms,
	}, nil
}

// Search returns at most k chunks ordered by descending cosine
// similarity to the query vector. Ties keep insertion order. A query
// vector of the wrong dimension means the query was embedded with a
// different model than the index and is rejected.
func (ix *Index) Search(query []float32, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		k = 3
	}
	if ix.Len() == 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), ix.dim)
	}

	queryNorm := norm(query)

	scored := make([]models.ScoredChunk, len(ix.chunks))
	for i, chunk := range ix.chunks {
		scored[i] = models.ScoredChunk{
			Chunk: chunk,
			Score: cosine(query, queryNorm, ix.vectors[i], ix.norms[i]),
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Len reports the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Dimensions reports the embedding dimension, 0 for an empty index.
func (ix *Index) Dimensions() int {
	return ix.dim
}

// Chunks returns the indexed chunks in insertion order.
func (ix *Index) Chunks() []models.Chunk {
	return ix.chunks
}

// Vectors returns the chunk embeddings, aligned with Chunks.
func (ix *Index) Vectors() [][]float32 {
	return ix.vectors
}

func cosine(a []float32, aNorm float32, b []float32, bNorm float32) float32 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (aNorm * bNorm)
}

func norm(vec []float32) float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return float32(math.Sqrt(sum))
}
