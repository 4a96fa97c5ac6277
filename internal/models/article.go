package models

import "time"

// Article is a raw article record as delivered by NewsAPI-style feeds.
// Every field except URL may be missing or empty.
type Article struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Content     string        `json:"content"`
	Author      string        `json:"author"`
	URL         string        `json:"url"`
	PublishedAt string        `json:"publishedAt"`
	Source      ArticleSource `json:"source"`
}

type ArticleSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Metadata is the provenance carried from an article through its chunks.
type Metadata struct {
	Title       string     `json:"title"`
	SourceName  string     `json:"source_name"`
	Author      string     `json:"author"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at"`
}

// Document is a normalized article with non-empty text.
type Document struct {
	Text     string
	Metadata Metadata
}

// Chunk is a bounded window of a document's text. Ordinal is the chunk's
// position within its parent document; Overlap is the number of leading
// runes shared with the preceding chunk.
type Chunk struct {
	Text     string
	Ordinal  int
	Overlap  int
	Metadata Metadata
}

// ScoredChunk is a retrieval hit with its cosine similarity.
type ScoredChunk struct {
	Chunk
	Score float32
}

// Answer is the result of a chat query: the generated text plus the
// unique source URLs of the chunks it was grounded on, in retrieval order.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []string `json:"sources"`
}
