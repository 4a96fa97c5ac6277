package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sudeepbogati7/threat-news-summarizer/internal/models"
	"github.com/sudeepbogati7/threat-news-summarizer/internal/types"
)

type FetcherConfig struct {
	APIKey        string
	BaseURL       string
	Query         string
	PageSize      int
	RateLimit     float64 // requests per second
	Timeout       time.Duration
	EnrichContent bool
	OnProgress    func(url string)
}

// Fetcher pulls article batches from a NewsAPI-compatible endpoint and
// optionally enriches truncated bodies by fetching the article pages.
type Fetcher struct {
	config  FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// everythingResponse is the NewsAPI /v2/everything payload.
type everythingResponse struct {
	Status   string           `json:"status"`
	Message  string           `json:"message"`
	Articles []models.Article `json:"articles"`
}

func NewWithConfig(config FetcherConfig, logger *zap.Logger) (*Fetcher, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: newsapi api key missing", types.ErrNotConfigured)
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://newsapi.org"
	}
	if config.Query == "" {
		config.Query = "data leak"
	}
	if config.PageSize == 0 {
		config.PageSize = 50
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:  logger,
	}, nil
}

// Fetch retrieves the latest article batch for the configured query.
func (f *Fetcher) Fetch(ctx context.Context) ([]models.Article, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v2/everything?q=%s&sortBy=publishedAt&pageSize=%d",
		strings.TrimSuffix(f.config.BaseURL, "/"),
		url.QueryEscape(f.config.Query),
		f.config.PageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", f.config.APIKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch articles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d from news endpoint", resp.StatusCode)
	}

	var payload everythingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode news response: %w", err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("news endpoint returned status %q: %s", payload.Status, payload.Message)
	}

	f.logger.Info("fetched articles",
		zap.String("query", f.config.Query),
		zap.Int("count", len(payload.Articles)))

	return payload.Articles, nil
}

// Enrich replaces truncated article content with the full text scraped
// from the article page. Articles that cannot be fetched keep their
// original content; one bad page never fails the batch.
func (f *Fetcher) Enrich(ctx context.Context, articles []models.Article) []models.Article {
	if !f.config.EnrichContent {
		return articles
	}

	enriched := make([]models.Article, len(articles))
	copy(enriched, articles)

	for i, article := range enriched {
		if f.config.OnProgress != nil {
			f.config.OnProgress(article.URL)
		}
		if article.URL == "" || !strings.Contains(article.Content, "[+") {
			continue
		}

		content, err := f.fetchArticleBody(ctx, article.URL)
		if err != nil {
			f.logger.Warn("failed to enrich article",
				zap.String("url", article.URL),
				zap.Error(err))
			continue
		}
		if content != "" {
			enriched[i].Content = content
		}
	}

	return enriched
}

func (f *Fetcher) fetchArticleBody(ctx context.Context, articleURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, articleURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	return extractArticleText(doc), nil
}

// extractArticleText pulls paragraph text from the most specific
// container that has any, mirroring how news pages are structured.
func extractArticleText(doc *goquery.Document) string {
	selectors := []string{
		"article p",
		"main p",
		".article-body p",
		"body p",
	}

	for _, selector := range selectors {
		var parts []string
		doc.Find(selector).Each(func(_ int, selection *goquery.Selection) {
			if text := strings.TrimSpace(selection.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, "\n\n")
		}
	}

	return ""
}
