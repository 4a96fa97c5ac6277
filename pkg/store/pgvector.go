package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/sudeepbogati7/threat-news-summarizer/internal/models"
)

type SnapshotStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// SnapshotStore persists the chunks and embeddings of a successful
// index build so the service can warm-start without re-embedding the
// whole corpus. Each Replace swaps the entire snapshot in one
// transaction; readers never see a half-written snapshot.
type SnapshotStore struct {
	config SnapshotStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config SnapshotStoreConfig) (*SnapshotStore, error) {
	if config.TableName == "" {
		config.TableName = "article_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	s := &SnapshotStore{
		config: config,
		pool:   pool,
	}

	if err := s.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *SnapshotStore) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			position INTEGER PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			source_name TEXT,
			author TEXT,
			published_at TIMESTAMPTZ,
			chunk_ordinal INTEGER NOT NULL,
			chunk_overlap INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d)
		)`, s.config.TableName, s.config.VectorDim)

	_, err = s.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	return nil
}

// Replace overwrites the persisted snapshot with the given chunks and
// their embeddings, aligned by position. The swap is transactional.
func (s *SnapshotStore) Replace(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", s.config.TableName)); err != nil {
		return fmt.Errorf("failed to clear snapshot: %v", err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (position, url, title, source_name, author, published_at,
			chunk_ordinal, chunk_overlap, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.config.TableName)

	for i, chunk := range chunks {
		_, err = tx.Exec(ctx, stmt,
			i,
			chunk.Metadata.URL,
			sanitizeUTF8(chunk.Metadata.Title),
			chunk.Metadata.SourceName,
			chunk.Metadata.Author,
			chunk.Metadata.PublishedAt,
			chunk.Ordinal,
			chunk.Overlap,
			sanitizeUTF8(chunk.Text),
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// Load reads the persisted snapshot back in insertion order.
func (s *SnapshotStore) Load(ctx context.Context) ([]models.Chunk, [][]float32, error) {
	query := fmt.Sprintf(`
		SELECT url, title, source_name, author, published_at,
			chunk_ordinal, chunk_overlap, content, embedding
		FROM %s
		ORDER BY position`,
		s.config.TableName)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load snapshot: %v", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	var vectors [][]float32
	for rows.Next() {
		var chunk models.Chunk
		var embedding pgvector.Vector
		err := rows.Scan(
			&chunk.Metadata.URL,
			&chunk.Metadata.Title,
			&chunk.Metadata.SourceName,
			&chunk.Metadata.Author,
			&chunk.Metadata.PublishedAt,
			&chunk.Ordinal,
			&chunk.Overlap,
			&chunk.Text,
			&embedding,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %v", err)
		}
		chunks = append(chunks, chunk)
		vectors = append(vectors, embedding.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read snapshot: %v", err)
	}

	return chunks, vectors, nil
}

func (s *SnapshotStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
