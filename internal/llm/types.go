// Package llm provides the gateway to the Gemini generative language API.
package llm

import "log/slog"

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Conversation roles. Gemini knows exactly two: the end user (which also
// carries tool results back to the model) and the model itself.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of conversation content: a role plus an ordered
// sequence of parts. The JSON shape matches the Gemini REST "Content"
// object, so messages serialize directly into requests.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is one element of a message. Exactly one of the three fields is
// set; the constructors below are the only supported way to build one.
// A Text part carries prose, a FunctionCall part carries a tool
// invocation requested by the model, and a FunctionResponse part carries
// a tool result produced by the orchestrator on the user's behalf.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// FunctionResponse is the conversational representation of a tool's
// output. The Response field must be a JSON object per the Gemini API.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// FunctionDeclaration advertises one callable tool to the model.
// Parameters is a JSON-schema object describing the argument shape.
type FunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// TextPart builds a text part.
func TextPart(s string) Part {
	return Part{Text: s}
}

// ToolCallPart builds a function-call part. Production calls come from
// the model; this exists for response decoding and tests.
func ToolCallPart(name string, args map[string]any) Part {
	return Part{FunctionCall: &FunctionCall{Name: name, Args: args}}
}

// ToolResultPart builds a function-response part for a tool result.
// Gemini requires the response payload to be an object, so non-map
// results are wrapped under a "result" key.
func ToolResultPart(name string, result any) Part {
	resp, ok := result.(map[string]any)
	if !ok {
		resp = map[string]any{"result": result}
	}
	return Part{FunctionResponse: &FunctionResponse{Name: name, Response: resp}}
}

// IsToolCall reports whether the part is a function call.
func (p Part) IsToolCall() bool {
	return p.FunctionCall != nil
}

// IsText reports whether the part carries plain text.
func (p Part) IsText() bool {
	return p.FunctionCall == nil && p.FunctionResponse == nil
}

// UserMessage builds a user-role message with a single text part.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart(text)}}
}

// ModelMessage builds a model-role message from the given parts.
func ModelMessage(parts ...Part) Message {
	return Message{Role: RoleModel, Parts: parts}
}

// Request is one gateway exchange: everything the model needs to produce
// the next turn. The gateway is stateless, so the full history travels on
// every call.
type Request struct {
	SystemInstruction string
	History           []Message
	Tools             []FunctionDeclaration
	Temperature       float64
	MaxOutputTokens   int
}

// Usage is the token accounting reported by the service.
type Usage struct {
	PromptTokens    int
	CandidateTokens int
	TotalTokens     int
}

// Response is the decoded first candidate of a model reply: the ordered
// parts of the model's turn, plus token usage when reported.
type Response struct {
	Parts []Part
	Usage Usage
}

// SplitParts partitions response parts into text fragments and tool
// calls, preserving order within each class. Function-response parts
// never appear in model output and are ignored.
func SplitParts(parts []Part) (texts []string, calls []FunctionCall) {
	for _, p := range parts {
		switch {
		case p.FunctionCall != nil:
			calls = append(calls, *p.FunctionCall)
		case p.Text != "":
			texts = append(texts, p.Text)
		}
	}
	return texts, calls
}
