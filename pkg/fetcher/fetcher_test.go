package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudeepbogati7/threat-news-summarizer/internal/models"
	"github.com/sudeepbogati7/threat-news-summarizer/internal/types"
	"github.com/sudeepbogati7/threat-news-summarizer/pkg/fetcher"
)

func TestNewWithConfig_RequiresAPIKey(t *testing.T) {
	_, err := fetcher.NewWithConfig(fetcher.FetcherConfig{}, nil)
	assert.True(t, errors.Is(err, types.ErrNotConfigured))
}

func TestFetch(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ok",
			"articles": [
				{
					"title": "Breach at Acme",
					"url": "https://example.com/acme",
					"content": "Acme confirmed a breach.",
					"publishedAt": "2024-05-01T10:30:00Z",
					"source": {"id": "wire", "name": "The Wire"}
				}
			]
		}`))
	}))
	defer srv.Close()

	f, err := fetcher.NewWithConfig(fetcher.FetcherConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Query:   "data leak",
	}, nil)
	require.NoError(t, err)

	articles, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/v2/everything", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, articles, 1)
	assert.Equal(t, "Breach at Acme", articles[0].Title)
	assert.Equal(t, "The Wire", articles[0].Source.Name)
}

func TestFetch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "message": "apiKeyInvalid"}`))
	}))
	defer srv.Close()

	f, err := fetcher.NewWithConfig(fetcher.FetcherConfig{APIKey: "bad", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFetch_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f, err := fetcher.NewWithConfig(fetcher.FetcherConfig{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	assert.Error(t, err)
}

func TestEnrich_ReplacesTruncatedContent(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<article>
				<p>Full paragraph one about the breach.</p>
				<p>Full paragraph two with details.</p>
			</article>
		</body></html>`))
	}))
	defer page.Close()

	f, err := fetcher.NewWithConfig(fetcher.FetcherConfig{
		APIKey:        "k",
		EnrichContent: true,
		RateLimit:     100,
	}, nil)
	require.NoError(t, err)

	articles := f.Enrich(context.Background(), []models.Article{
		{URL: page.URL, Content: "Truncated body… [+2048 chars]"},
		{URL: "", Content: "kept as-is"},
	})

	require.Len(t, articles, 2)
	assert.Equal(t,
		"Full paragraph one about the breach.\n\nFull paragraph two with details.",
		articles[0].Content)
	assert.Equal(t, "kept as-is", articles[1].Content)
}

func TestEnrich_FetchFailureKeepsOriginal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := fetcher.NewWithConfig(fetcher.FetcherConfig{
		APIKey:        "k",
		EnrichContent: true,
		RateLimit:     100,
	}, nil)
	require.NoError(t, err)

	original := "Original… [+100 chars]"
	articles := f.Enrich(context.Background(), []models.Article{{URL: srv.URL, Content: original}})

	require.Len(t, articles, 1)
	assert.Equal(t, original, articles[0].Content)
}

func TestEnrich_DisabledIsNoop(t *testing.T) {
	f, err := fetcher.NewWithConfig(fetcher.FetcherConfig{APIKey: "k"}, nil)
	require.NoError(t, err)

	in := []models.Article{{URL: "https://example.com", Content: "untouched [+1 chars]"}}
	out := f.Enrich(context.Background(), in)
	assert.Equal(t, in, out)
}
