// Package api exposes the HR assistant over HTTP. The server is
// stateless across turns: clients carry the conversation history and
// send it back with each message, so concurrent dashboard tabs never
// contend for shared state.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/agent"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/buildinfo"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/llm"
)

// Runner is the server's view of the orchestration loop. Satisfied by
// *agent.Loop.
type Runner interface {
	Run(ctx context.Context, prior []llm.Message, userText, page string) (*agent.LoopResult, error)
}

// Catalog lists the advertised tools for the introspection endpoint.
type Catalog interface {
	Declarations() []llm.FunctionDeclaration
}

// writeJSON encodes v as JSON to w, logging failures at debug level.
// Errors here usually mean the client went away mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address string
	port    int
	runner  Runner
	catalog Catalog
	logger  *slog.Logger
	server  *http.Server
}

// NewServer creates the API server.
func NewServer(address string, port int, runner Runner, catalog Catalog, logger *slog.Logger) *Server {
	return &Server{
		address: address,
		port:    port,
		runner:  runner,
		catalog: catalog,
		logger:  logger,
	}
}

// Start begins serving HTTP requests. Blocks until the listener fails
// or Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // a full tool loop can take a while
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler builds the route table. Exposed separately so tests can drive
// the mux without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/assistant/chat", s.handleChat)
	mux.HandleFunc("GET /v1/assistant/tools", s.handleTools)
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withLogging(mux)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// ChatRequest is the assistant chat request body. History is the
// client-held transcript from earlier turns; it may be empty for a
// fresh conversation.
type ChatRequest struct {
	Message        string        `json:"message"`
	Page           string        `json:"page,omitempty"`
	History        []llm.Message `json:"history,omitempty"`
	ConversationID string        `json:"conversation_id,omitempty"`
}

// ChatResponse is the assistant chat response body.
type ChatResponse struct {
	Reply          string `json:"reply"`
	Intents        []any  `json:"intents"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	convID := req.ConversationID
	if convID == "" {
		convID = uuid.New().String()
	}

	result, err := s.runner.Run(r.Context(), req.History, req.Message, req.Page)
	if err != nil {
		s.logger.Error("assistant run failed", "conversation", convID, "error", err)
		s.errorResponse(w, assistantErrorStatus(err), "assistant temporarily unavailable")
		return
	}

	intents := make([]any, len(result.Intents))
	for i, intent := range result.Intents {
		intents[i] = intent
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ChatResponse{
		Reply:          result.Reply,
		Intents:        intents,
		ConversationID: convID,
	}, s.logger)
}

// assistantErrorStatus maps the loop's error taxonomy onto HTTP status
// codes: configuration problems are 503, everything else from the model
// boundary is 502.
func assistantErrorStatus(err error) int {
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	decls := s.catalog.Declarations()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"tools": decls,
		"count": len(decls),
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}
