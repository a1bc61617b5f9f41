package llm

import (
	"encoding/json"
	"testing"
)

func TestPartConstructors(t *testing.T) {
	text := TextPart("hello")
	if !text.IsText() || text.IsToolCall() {
		t.Errorf("TextPart kind wrong: IsText=%v IsToolCall=%v", text.IsText(), text.IsToolCall())
	}

	call := ToolCallPart("search_employees", map[string]any{"query": "Sarah"})
	if call.IsText() || !call.IsToolCall() {
		t.Errorf("ToolCallPart kind wrong: IsText=%v IsToolCall=%v", call.IsText(), call.IsToolCall())
	}
	if call.FunctionCall.Name != "search_employees" {
		t.Errorf("call name = %q, want search_employees", call.FunctionCall.Name)
	}

	result := ToolResultPart("search_employees", map[string]any{"name": "Sarah Kim"})
	if result.IsText() || result.IsToolCall() {
		t.Errorf("ToolResultPart kind wrong: IsText=%v IsToolCall=%v", result.IsText(), result.IsToolCall())
	}
	if result.FunctionResponse.Response["name"] != "Sarah Kim" {
		t.Errorf("map result should pass through unwrapped, got %v", result.FunctionResponse.Response)
	}
}

func TestToolResultPart_WrapsNonMapResults(t *testing.T) {
	tests := []struct {
		name   string
		result any
	}{
		{"string result", "three alerts"},
		{"slice result", []any{"a", "b"}},
		{"nil result", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ToolResultPart("get_active_alerts", tt.result)
			resp := p.FunctionResponse.Response
			if len(resp) != 1 {
				t.Fatalf("wrapped response has %d keys, want 1: %v", len(resp), resp)
			}
			if _, ok := resp["result"]; !ok {
				t.Errorf("non-map result should be wrapped under \"result\", got %v", resp)
			}
		})
	}
}

// The Part JSON shape must match the Gemini Content part object exactly:
// only the populated variant's key appears.
func TestPart_JSON(t *testing.T) {
	tests := []struct {
		name string
		part Part
		want string
	}{
		{
			name: "text",
			part: TextPart("hi"),
			want: `{"text":"hi"}`,
		},
		{
			name: "function call",
			part: ToolCallPart("get_company_info", map[string]any{}),
			want: `{"functionCall":{"name":"get_company_info","args":{}}}`,
		},
		{
			name: "function response",
			part: ToolResultPart("get_company_info", map[string]any{"name": "Deriv"}),
			want: `{"functionResponse":{"name":"get_company_info","response":{"name":"Deriv"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.part)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("json = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	m := UserMessage("what's on my calendar?")
	if m.Role != RoleUser {
		t.Errorf("role = %q, want %q", m.Role, RoleUser)
	}
	if len(m.Parts) != 1 || m.Parts[0].Text != "what's on my calendar?" {
		t.Errorf("parts = %+v", m.Parts)
	}
}

func TestSplitParts(t *testing.T) {
	tests := []struct {
		name      string
		parts     []Part
		wantTexts int
		wantCalls int
	}{
		{
			name:      "nil parts",
			parts:     nil,
			wantTexts: 0,
			wantCalls: 0,
		},
		{
			name:      "text only",
			parts:     []Part{TextPart("done")},
			wantTexts: 1,
			wantCalls: 0,
		},
		{
			name: "interleaved text and calls",
			parts: []Part{
				TextPart("let me check"),
				ToolCallPart("get_active_alerts", nil),
				ToolCallPart("get_compliance_status", nil),
			},
			wantTexts: 1,
			wantCalls: 2,
		},
		{
			name: "function responses ignored",
			parts: []Part{
				ToolResultPart("get_active_alerts", "none"),
				TextPart("all clear"),
			},
			wantTexts: 1,
			wantCalls: 0,
		},
		{
			name:      "empty text dropped",
			parts:     []Part{{Text: ""}},
			wantTexts: 0,
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			texts, calls := SplitParts(tt.parts)
			if len(texts) != tt.wantTexts {
				t.Errorf("texts = %d, want %d", len(texts), tt.wantTexts)
			}
			if len(calls) != tt.wantCalls {
				t.Errorf("calls = %d, want %d", len(calls), tt.wantCalls)
			}
		})
	}
}

func TestSplitParts_PreservesCallOrder(t *testing.T) {
	parts := []Part{
		ToolCallPart("first", nil),
		TextPart("thinking"),
		ToolCallPart("second", nil),
	}

	_, calls := SplitParts(parts)
	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	if calls[0].Name != "first" || calls[1].Name != "second" {
		t.Errorf("call order = %s, %s; want first, second", calls[0].Name, calls[1].Name)
	}
}
