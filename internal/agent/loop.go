// Package agent implements the tool-calling orchestration loop behind
// the HR assistant: it shuttles a conversation between the model
// gateway and the tool executor until the model produces a plain-text
// answer or the iteration bound is reached.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/llm"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/prompts"
	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/tools"
)

// defaultMaxIterations caps gateway round-trips per run. The model
// cannot be trusted to stop calling tools on its own; the loop must
// guarantee termination.
const defaultMaxIterations = 5

// exhaustedReply is returned when the iteration bound is reached
// without a tool-call-free model turn. Exhaustion is a defined terminal
// state, not an error.
const exhaustedReply = "I wasn't able to finish researching that. Could you narrow down your question?"

// emptyReplyFallback substitutes for a terminal model turn that carried
// no text at all.
const emptyReplyFallback = "I'm not sure how to answer that. Could you rephrase your question?"

// Gateway is the loop's view of the model service: one blocking
// exchange per call. Satisfied by *llm.Client.
type Gateway interface {
	Send(ctx context.Context, req *llm.Request) (*llm.Response, error)
}

// Executor is the loop's view of the tool executor. Satisfied by
// *tools.Registry.
type Executor interface {
	Execute(ctx context.Context, name string, args map[string]any) any
	Declarations() []llm.FunctionDeclaration
}

// LoopResult is the only value returned to the caller: the final reply
// text plus every side-effect intent emitted along the way, in order.
type LoopResult struct {
	Reply   string         `json:"reply"`
	Intents []tools.Intent `json:"intents"`
}

// Loop is the orchestration state machine. It owns no conversation
// state between runs; each Run works on its own history copy, so
// concurrent conversations need no coordination.
type Loop struct {
	logger        *slog.Logger
	gateway       Gateway
	executor      Executor
	facts         prompts.Facts
	maxIterations int
	now           func() time.Time
}

// NewLoop creates the orchestration loop. The Today field of facts is
// ignored; the loop stamps the current date into each run's system
// instruction itself.
func NewLoop(logger *slog.Logger, gw Gateway, exec Executor, facts prompts.Facts) *Loop {
	return &Loop{
		logger:        logger,
		gateway:       gw,
		executor:      exec,
		facts:         facts,
		maxIterations: defaultMaxIterations,
		now:           time.Now,
	}
}

// SetMaxIterations overrides the gateway round-trip bound. Values below
// one are ignored.
func (l *Loop) SetMaxIterations(n int) {
	if n >= 1 {
		l.maxIterations = n
	}
}

// Run executes one full conversation turn: seed a working history from
// the caller's prior messages plus the new user text, then alternate
// between the gateway and the tool executor until the model answers in
// plain text or the iteration bound trips.
//
// Gateway failures propagate to the caller untouched; tool failures do
// not, they go back to the model as error-shaped results. The caller's
// prior history is never mutated.
func (l *Loop) Run(ctx context.Context, prior []llm.Message, userText, page string) (*LoopResult, error) {
	runID, _ := uuid.NewV7()
	rid := runID.String()

	working := make([]llm.Message, 0, len(prior)+2)
	working = append(working, prior...)
	working = append(working, llm.UserMessage(userText))

	intents := []tools.Intent{}
	facts := l.facts
	facts.Today = l.now()
	system := prompts.BuildSystemInstruction(page, facts)
	decls := l.executor.Declarations()
	start := time.Now()

	l.logger.Info("assistant run started",
		"run_id", rid,
		"page", page,
		"prior_messages", len(prior),
		"tools_available", len(decls),
	)

	for i := range l.maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled: %w", err)
		}

		iterStart := time.Now()
		resp, err := l.gateway.Send(ctx, &llm.Request{
			SystemInstruction: system,
			History:           working,
			Tools:             decls,
		})
		if err != nil {
			l.logger.Error("model call failed",
				"run_id", rid,
				"iter", i,
				"error", err,
			)
			return nil, fmt.Errorf("model call failed (iter %d): %w", i, err)
		}

		texts, calls := llm.SplitParts(resp.Parts)

		l.logger.Info("model response",
			"run_id", rid,
			"iter", i,
			"text_parts", len(texts),
			"tool_calls", len(calls),
			"tokens", resp.Usage.TotalTokens,
			"elapsed", time.Since(iterStart).Round(time.Millisecond),
		)

		// No tool calls: the model has answered.
		if len(calls) == 0 {
			reply := strings.Join(texts, "")
			if reply == "" {
				reply = emptyReplyFallback
			}
			l.logger.Info("assistant run completed",
				"run_id", rid,
				"iterations", i+1,
				"intents", len(intents),
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
			return &LoopResult{Reply: reply, Intents: intents}, nil
		}

		// Record the model turn exactly as received, interleaving and
		// all, then execute its calls in order. Results from one model
		// turn are batched into a single user message so positions line
		// up with the calls.
		working = append(working, llm.ModelMessage(resp.Parts...))

		results := make([]llm.Part, 0, len(calls))
		for _, call := range calls {
			result := l.executor.Execute(ctx, call.Name, call.Args)

			if intent, ok := result.(tools.Intent); ok {
				intents = append(intents, intent)
			}

			l.logger.Debug("tool executed",
				"run_id", rid,
				"iter", i,
				"tool", call.Name,
			)
			results = append(results, llm.ToolResultPart(call.Name, result))
		}
		working = append(working, llm.Message{Role: llm.RoleUser, Parts: results})
	}

	// Iteration bound reached: terminate with the canned reply and
	// whatever intents accumulated. No further gateway calls.
	l.logger.Warn("assistant run exhausted",
		"run_id", rid,
		"max_iterations", l.maxIterations,
		"intents", len(intents),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return &LoopResult{Reply: exhaustedReply, Intents: intents}, nil
}
