package ingest

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sudeepbogati7/threat-news-summarizer/internal/models"
)

// NewsAPI truncates article bodies and appends a marker like "[+3608 chars]".
var truncationMarker = regexp.MustCompile(`\s*\[\+\d+ chars\]\s*$`)

// Layouts tried in order when parsing published_at. Feeds are not
// consistent about the format, so the list is deliberately generous.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// Normalizer turns raw article batches into documents ready for
// chunking. It is a pure transformation over the batch it is given;
// deduplication against already-indexed URLs is the caller's concern.
type Normalizer struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Normalize converts a batch of raw articles into normalized documents.
// Records without a URL and records with no usable text are skipped with
// a warning; a malformed timestamp never drops its article.
func (n *Normalizer) Normalize(articles []models.Article) []models.Document {
	docs := make([]models.Document, 0, len(articles))

	for _, article := range articles {
		if strings.TrimSpace(article.URL) == "" {
			n.logger.Warn("skipping article without URL", zap.String("title", article.Title))
			continue
		}

		text := articleText(article)
		if text == "" {
			n.logger.Warn("skipping article without usable text", zap.String("url", article.URL))
			continue
		}

		docs = append(docs, models.Document{
			Text: text,
			Metadata: models.Metadata{
				Title:       strings.TrimSpace(article.Title),
				SourceName:  strings.TrimSpace(article.Source.Name),
				Author:      strings.TrimSpace(article.Author),
				URL:         strings.TrimSpace(article.URL),
				PublishedAt: parsePublishedAt(n.logger, article),
			},
		})
	}

	return docs
}

// articleText is the ordered text-selection policy: content, then
// description, then title; the first non-blank field wins. Returns ""
// when no field has usable text.
func articleText(article models.Article) string {
	for _, candidate := range []string{article.Content, article.Description, article.Title} {
		candidate = strings.TrimSpace(truncationMarker.ReplaceAllString(candidate, ""))
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

func parsePublishedAt(logger *zap.Logger, article models.Article) *time.Time {
	raw := strings.TrimSpace(article.PublishedAt)
	if raw == "" {
		return nil
	}

	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts
		}
	}

	logger.Warn("unparsable published_at, keeping article",
		zap.String("url", article.URL),
		zap.String("published_at", raw))
	return nil
}
