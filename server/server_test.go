package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudeepbogati7/threat-news-summarizer/internal/models"
	"github.com/sudeepbogati7/threat-news-summarizer/internal/types"
	"github.com/sudeepbogati7/threat-news-summarizer/pkg/rag"
	"github.com/sudeepbogati7/threat-news-summarizer/server"
)

type stubPipeline struct {
	stats      rag.RebuildStats
	rebuildErr error
	answer     models.Answer
	answerErr  error
	ready      bool
	chunks     int

	gotArticles []models.Article
	gotQuery    string
}

func (s *stubPipeline) Rebuild(_ context.Context, articles []models.Article) (rag.RebuildStats, error) {
	s.gotArticles = articles
	return s.stats, s.rebuildErr
}

func (s *stubPipeline) Answer(_ context.Context, query string) (models.Answer, error) {
	s.gotQuery = query
	return s.answer, s.answerErr
}

func (s *stubPipeline) Ready() bool     { return s.ready }
func (s *stubPipeline) ChunkCount() int { return s.chunks }

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHandleArticles(t *testing.T) {
	pipeline := &stubPipeline{stats: rag.RebuildStats{Articles: 2, Documents: 2, Chunks: 7}}
	srv := server.New(":0", pipeline, nil)

	body := `[{"url": "https://example.com/a", "content": "a"}, {"url": "https://example.com/b", "content": "b"}]`
	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/v1/articles", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", resp.Status)
	assert.Len(t, pipeline.gotArticles, 2)

	var stats rag.RebuildStats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, 7, stats.Chunks)
}

func TestHandleArticles_InvalidJSON(t *testing.T) {
	srv := server.New(":0", &stubPipeline{}, nil)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/v1/articles", "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", resp.Status)
}

func TestHandleArticles_MethodNotAllowed(t *testing.T) {
	srv := server.New(":0", &stubPipeline{}, nil)

	rec, _ := doRequest(t, srv.Handler(), http.MethodGet, "/v1/articles", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleArticles_EmbeddingOutage(t *testing.T) {
	pipeline := &stubPipeline{rebuildErr: types.ErrEmbedding}
	srv := server.New(":0", pipeline, nil)

	rec, _ := doRequest(t, srv.Handler(), http.MethodPost, "/v1/articles", "[]")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleChat(t *testing.T) {
	pipeline := &stubPipeline{answer: models.Answer{
		Text:    "The breach affected millions.",
		Sources: []string{"https://example.com/a"},
	}}
	srv := server.New(":0", pipeline, nil)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/v1/chat", `{"query": "what happened?"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "what happened?", pipeline.gotQuery)

	var answer models.Answer
	require.NoError(t, json.Unmarshal(resp.Data, &answer))
	assert.Equal(t, "The breach affected millions.", answer.Text)
	assert.Equal(t, []string{"https://example.com/a"}, answer.Sources)
}

func TestHandleChat_NoIndex(t *testing.T) {
	pipeline := &stubPipeline{answerErr: types.ErrIndexUnavailable}
	srv := server.New(":0", pipeline, nil)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/v1/chat", `{"query": "hi"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "no articles loaded", resp.Message)
}

func TestHandleChat_ValidationError(t *testing.T) {
	pipeline := &stubPipeline{answerErr: types.ErrValidation}
	srv := server.New(":0", pipeline, nil)

	rec, _ := doRequest(t, srv.Handler(), http.MethodPost, "/v1/chat", `{"query": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	pipeline := &stubPipeline{ready: true, chunks: 42}
	srv := server.New(":0", pipeline, nil)

	rec, resp := doRequest(t, srv.Handler(), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(string(resp.Data), `"chunks":42`))
	assert.True(t, strings.Contains(string(resp.Data), `"ready":true`))
}
