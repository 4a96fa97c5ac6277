package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sudeepbogati7/threat-news-summarizer/internal/models"
	"github.com/sudeepbogati7/threat-news-summarizer/internal/types"
	"github.com/sudeepbogati7/threat-news-summarizer/pkg/rag"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Pipeline is the answering pipeline the transport layer drives.
// *rag.Engine is the production implementation.
type Pipeline interface {
	Rebuild(ctx context.Context, articles []models.Article) (rag.RebuildStats, error)
	Answer(ctx context.Context, query string) (models.Answer, error)
	Ready() bool
	ChunkCount() int
}

// Message is the websocket envelope exchanged with chat clients.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// envelope is the REST response shape.
type envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type Server struct {
	addr     string
	pipeline Pipeline
	logger   *zap.Logger
}

func New(addr string, pipeline Pipeline, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:     addr,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/articles", s.handleArticles)
	mux.HandleFunc("/v1/chat", s.handleChat)
	mux.HandleFunc("/v1/chat/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("starting server", zap.String("addr", s.addr))
	return http.ListenAndServe(s.addr, s.Handler())
}

// handleArticles ingests a JSON array of raw articles and rebuilds the
// index from them.
func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var articles []models.Article
	if err := json.NewDecoder(r.Body).Decode(&articles); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}

	stats, err := s.pipeline.Rebuild(r.Context(), articles)
	if err != nil {
		s.logger.Error("rebuild failed", zap.Error(err))
		s.writeError(w, statusFor(err), "failed to process articles")
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{
		Status:  "success",
		Message: "articles processed successfully",
		Data:    stats,
	})
}

// handleChat answers a single query against the current index.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}

	answer, err := s.pipeline.Answer(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, types.ErrIndexUnavailable) {
			s.writeError(w, http.StatusConflict, "no articles loaded")
			return
		}
		s.logger.Error("chat query failed", zap.Error(err))
		s.writeError(w, statusFor(err), "failed to process query")
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{
		Status:  "success",
		Message: "query processed successfully",
		Data:    answer,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			break
		}

		if msg.Type != "query" {
			s.sendMessage(conn, Message{Type: "error", Content: "unsupported message type"})
			continue
		}

		answer, err := s.pipeline.Answer(r.Context(), msg.Content)
		if err != nil {
			s.sendMessage(conn, Message{Type: "error", Content: chatErrorMessage(err)})
			continue
		}

		s.sendMessage(conn, Message{
			Type:    "answer",
			Content: answer.Text,
			Data:    answer.Sources,
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, envelope{
		Status:  "success",
		Message: "ok",
		Data: map[string]interface{}{
			"ready":  s.pipeline.Ready(),
			"chunks": s.pipeline.ChunkCount(),
		},
	})
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Warn("websocket write failed", zap.Error(err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, envelope{
		Status:  "error",
		Message: message,
	})
}

// statusFor maps pipeline failures onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrIndexUnavailable):
		return http.StatusConflict
	case errors.Is(err, types.ErrEmbedding), errors.Is(err, types.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func chatErrorMessage(err error) string {
	switch {
	case errors.Is(err, types.ErrIndexUnavailable):
		return "no articles loaded"
	case errors.Is(err, types.ErrValidation):
		return "query must not be empty"
	default:
		return "failed to process query"
	}
}
