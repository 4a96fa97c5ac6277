package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sudeepbogati7/threat-news-summarizer/internal/models"
	"github.com/sudeepbogati7/threat-news-summarizer/internal/types"
	"github.com/sudeepbogati7/threat-news-summarizer/pkg/index"
	"github.com/sudeepbogati7/threat-news-summarizer/pkg/ingest"
	"github.com/sudeepbogati7/threat-news-summarizer/pkg/processor"
)

const (
	greetingMessage = "Hello! Ask me anything about the news articles I have indexed."
	noAnswerMessage = "I couldn't find relevant information in the indexed articles."
)

// Conversational queries that are not information requests; answered
// directly without touching the index or the model.
var greetings = map[string]bool{
	"hi":          true,
	"hello":       true,
	"hey":         true,
	"how are you": true,
	"greetings":   true,
}

// Negative responses the generation model phrases inconsistently,
// normalized (lower-cased, trailing period stripped) for comparison.
var noAnswerPhrases = map[string]bool{
	"i don't know":                  true,
	"no relevant information found": true,
}

// Snapshotter persists a built index for warm starts.
type Snapshotter interface {
	Replace(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	Load(ctx context.Context) ([]models.Chunk, [][]float32, error)
}

type EngineConfig struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

// Engine owns the current vector index and the capabilities used to
// build and query it. Rebuilds construct a new index off to the side
// and publish it with a single swap; concurrent queries always see
// either the previous index or the new one, never a mix.
type Engine struct {
	mu    sync.RWMutex
	index *index.Index

	config     EngineConfig
	embedder   types.Embedder
	generator  types.Generator
	normalizer *ingest.Normalizer
	chunker    processor.Chunker
	snapshots  Snapshotter // optional
	logger     *zap.Logger
}

type RebuildStats struct {
	Articles   int `json:"article_count"`
	Documents  int `json:"document_count"`
	Chunks     int `json:"chunk_count"`
	Dimensions int `json:"dimensions"`
}

// NewWithConfig creates an engine in the empty state. snapshots may be
// nil when no database is configured.
func NewWithConfig(config EngineConfig, embedder types.Embedder, generator types.Generator, snapshots Snapshotter, logger *zap.Logger) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedding capability", types.ErrNotConfigured)
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: no generation capability", types.ErrNotConfigured)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TopK == 0 {
		config.TopK = 3
	}

	return &Engine{
		config:     config,
		embedder:   embedder,
		generator:  generator,
		normalizer: ingest.New(logger),
		chunker: processor.NewWithConfig(processor.ProcessorConfig{
			ChunkSize:    config.ChunkSize,
			ChunkOverlap: config.ChunkOverlap,
		}),
		snapshots: snapshots,
		logger:    logger,
	}, nil
}

// Rebuild normalizes and chunks the articles, embeds everything, and
// replaces the current index. On any failure the previous index stays
// current. A successful build is snapshotted best-effort.
func (e *Engine) Rebuild(ctx context.Context, articles []models.Article) (RebuildStats, error) {
	docs := e.normalizer.Normalize(articles)

	var chunks []models.Chunk
	for _, doc := range docs {
		chunks = append(chunks, e.chunker.Split(doc)...)
	}

	ix, err := index.Build(ctx, e.embedder, chunks)
	if err != nil {
		return RebuildStats{}, err
	}

	e.mu.Lock()
	e.index = ix
	e.mu.Unlock()

	if e.snapshots != nil {
		if err := e.snapshots.Replace(ctx, ix.Chunks(), ix.Vectors()); err != nil {
			// The in-memory index is already live; losing the warm-start
			// snapshot is not worth failing the rebuild over.
			e.logger.Error("failed to persist index snapshot", zap.Error(err))
		}
	}

	stats := RebuildStats{
		Articles:   len(articles),
		Documents:  len(docs),
		Chunks:     ix.Len(),
		Dimensions: ix.Dimensions(),
	}
	e.logger.Info("index rebuilt",
		zap.Int("articles", stats.Articles),
		zap.Int("documents", stats.Documents),
		zap.Int("chunks", stats.Chunks),
		zap.Int("dimensions", stats.Dimensions))

	return stats, nil
}

// WarmStart restores the index from the persisted snapshot, if any,
// without re-embedding. A missing or empty snapshot leaves the engine
// in the empty state.
func (e *Engine) WarmStart(ctx context.Context) error {
	if e.snapshots == nil {
		return nil
	}

	chunks, vectors, err := e.snapshots.Load(ctx)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	ix, err := index.Rehydrate(chunks, vectors)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.index = ix
	e.mu.Unlock()

	e.logger.Info("index restored from snapshot", zap.Int("chunks", ix.Len()))
	return nil
}

// Answer runs the retrieval-augmented answering flow for one query.
func (e *Engine) Answer(ctx context.Context, query string) (models.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Answer{}, fmt.Errorf("%w: empty query", types.ErrValidation)
	}

	if greetings[strings.ToLower(query)] {
		return models.Answer{Text: greetingMessage, Sources: []string{}}, nil
	}

	ix := e.current()
	if ix == nil {
		return models.Answer{}, types.ErrIndexUnavailable
	}

	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return models.Answer{}, err
	}
	if len(vectors) != 1 {
		return models.Answer{}, fmt.Errorf("%w: got %d query vectors", types.ErrEmbedding, len(vectors))
	}

	results, err := ix.Search(vectors[0], e.config.TopK)
	if err != nil {
		return models.Answer{}, fmt.Errorf("%w: %v", types.ErrEmbedding, err)
	}
	if len(results) == 0 {
		return models.Answer{Text: noAnswerMessage, Sources: []string{}}, nil
	}

	chunks := make([]models.Chunk, len(results))
	for i, result := range results {
		chunks[i] = result.Chunk
	}

	text, err := e.generator.Generate(ctx, query, chunks)
	if err != nil {
		return models.Answer{}, err
	}

	text = strings.TrimSpace(text)
	if isNoAnswer(text) {
		return models.Answer{Text: noAnswerMessage, Sources: []string{}}, nil
	}

	return models.Answer{Text: text, Sources: collectSources(results)}, nil
}

// Ready reports whether an index has been built or restored.
func (e *Engine) Ready() bool {
	return e.current() != nil
}

// ChunkCount reports the size of the current index, 0 when empty.
func (e *Engine) ChunkCount() int {
	if ix := e.current(); ix != nil {
		return ix.Len()
	}
	return 0
}

func (e *Engine) current() *index.Index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index
}

func isNoAnswer(text string) bool {
	if text == "" {
		return true
	}
	normalized := strings.TrimSuffix(strings.ToLower(text), ".")
	return noAnswerPhrases[normalized]
}

// collectSources gathers the unique, non-empty source URLs of the
// retrieved chunks, in retrieval order.
func collectSources(results []models.ScoredChunk) []string {
	sources := []string{}
	seen := make(map[string]bool)

	for _, result := range results {
		url := result.Metadata.URL
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		sources = append(sources, url)
	}

	return sources
}
