package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/agent"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/llm"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/tools"
)

// stubRunner returns a fixed result (or error) and records what it was
// asked.
type stubRunner struct {
	result   *agent.LoopResult
	err      error
	lastText string
	lastPage string
	lastLen  int
}

func (r *stubRunner) Run(ctx context.Context, prior []llm.Message, userText, page string) (*agent.LoopResult, error) {
	r.lastText = userText
	r.lastPage = page
	r.lastLen = len(prior)
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

type stubCatalog struct{}

func (stubCatalog) Declarations() []llm.FunctionDeclaration {
	return []llm.FunctionDeclaration{
		{Name: "search_employees", Description: "Search employee records."},
		{Name: "navigate_to_page", Description: "Suggest a page."},
	}
}

func newTestServer(runner Runner) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer("", 0, runner, stubCatalog{}, logger)
}

func postChat(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/assistant/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleChat(t *testing.T) {
	runner := &stubRunner{result: &agent.LoopResult{
		Reply: "Sarah Kim's visa expires on 2026-11-02.",
		Intents: []tools.Intent{
			{Kind: tools.IntentActionItem, Title: "Renew visa", Priority: "high"},
		},
	}}
	s := newTestServer(runner)

	rec := postChat(t, s, `{
		"message": "when does Sarah's visa expire?",
		"page": "/employees",
		"history": [
			{"role": "user", "parts": [{"text": "hi"}]},
			{"role": "model", "parts": [{"text": "Hello!"}]}
		]
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != "Sarah Kim's visa expires on 2026-11-02." {
		t.Errorf("reply = %q", resp.Reply)
	}
	if len(resp.Intents) != 1 {
		t.Fatalf("intents = %d, want 1", len(resp.Intents))
	}
	if resp.ConversationID == "" {
		t.Error("conversation_id missing")
	}

	if runner.lastText != "when does Sarah's visa expire?" {
		t.Errorf("runner got text %q", runner.lastText)
	}
	if runner.lastPage != "/employees" {
		t.Errorf("runner got page %q", runner.lastPage)
	}
	if runner.lastLen != 2 {
		t.Errorf("runner got %d prior messages, want 2", runner.lastLen)
	}
}

func TestHandleChat_KeepsConversationID(t *testing.T) {
	runner := &stubRunner{result: &agent.LoopResult{Reply: "ok", Intents: []tools.Intent{}}}
	s := newTestServer(runner)

	rec := postChat(t, s, `{"message": "hi", "conversation_id": "tab-42"}`)

	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ConversationID != "tab-42" {
		t.Errorf("conversation_id = %q, want tab-42", resp.ConversationID)
	}
}

func TestHandleChat_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"message": `},
		{"empty message", `{"message": ""}`},
		{"missing message", `{"page": "/"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&stubRunner{result: &agent.LoopResult{Reply: "unreachable"}})

			rec := postChat(t, s, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}

			var resp map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if _, ok := resp["error"]; !ok {
				t.Errorf("error body = %v", resp)
			}
		})
	}
}

func TestHandleChat_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "missing credential is service unavailable",
			err:  fmt.Errorf("model call failed (iter 0): %w", llm.ErrMissingAPIKey),
			want: http.StatusServiceUnavailable,
		},
		{
			name: "model service failure is bad gateway",
			err:  fmt.Errorf("model call failed (iter 2): %w", &llm.ModelServiceError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED"}),
			want: http.StatusBadGateway,
		},
		{
			name: "empty candidates is bad gateway",
			err:  fmt.Errorf("model call failed (iter 0): %w", &llm.NoCandidateError{FinishReason: "SAFETY"}),
			want: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&stubRunner{err: tt.err})

			rec := postChat(t, s, `{"message": "hi"}`)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if strings.Contains(rec.Body.String(), "iter") {
				t.Errorf("internal error detail leaked to client: %s", rec.Body)
			}
		})
	}
}

func TestHandleChat_MethodNotAllowed(t *testing.T) {
	s := newTestServer(&stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/v1/assistant/chat", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleTools(t *testing.T) {
	s := newTestServer(&stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/v1/assistant/tools", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Tools []llm.FunctionDeclaration `json:"tools"`
		Count int                       `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || len(resp.Tools) != 2 {
		t.Errorf("count = %d, tools = %d", resp.Count, len(resp.Tools))
	}
	if resp.Tools[0].Name != "search_employees" {
		t.Errorf("tools[0] = %q", resp.Tools[0].Name)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestHandleVersion(t *testing.T) {
	s := newTestServer(&stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/v1/version", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var info map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info["version"] == "" {
		t.Errorf("version missing: %v", info)
	}
}
