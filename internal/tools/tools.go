// Package tools defines the tool catalog advertised to the model and
// the executor that dispatches tool calls against the record store.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/llm"
)

// Reader is the single primitive the query tools need from the data
// backend: a keyed-hierarchical read. A nil result with a nil error
// means the path holds no data.
type Reader interface {
	Read(ctx context.Context, path string) (any, error)
}

// Handler executes one tool call. It never returns a Go error: failures
// are encoded as {"error": ...} payloads so the loop can hand them back
// to the model as an ordinary tool result instead of aborting the
// conversation.
type Handler func(ctx context.Context, args map[string]any) any

// Tool pairs a declaration with its handler. Declarations are static
// for the process lifetime.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     Handler
}

// Registry holds the tool catalog. Built once at startup, read-only
// afterwards.
type Registry struct {
	tools []*Tool
	index map[string]*Tool
	store Reader
}

// NewRegistry creates the registry with all built-in HR tools
// registered against the given backend.
func NewRegistry(store Reader) *Registry {
	r := &Registry{
		index: make(map[string]*Tool),
		store: store,
	}
	r.registerBuiltins()
	return r
}

// Register adds a tool. Duplicate names are a programming error and
// panic at startup rather than shadowing silently.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.index[t.Name]; exists {
		panic(fmt.Sprintf("tools: duplicate registration of %q", t.Name))
	}
	r.tools = append(r.tools, t)
	r.index[t.Name] = t
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name
	}
	return names
}

// Declarations returns the catalog in the form the model gateway
// advertises to the model.
func (r *Registry) Declarations() []llm.FunctionDeclaration {
	decls := make([]llm.FunctionDeclaration, len(r.tools))
	for i, t := range r.tools {
		decls[i] = llm.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		}
	}
	return decls
}

// Validate checks catalog/executor consistency: every declaration must
// carry a handler. Called at startup so a wiring mistake fails fast
// instead of surfacing as an "unknown tool" result mid-conversation.
func (r *Registry) Validate() error {
	for _, t := range r.tools {
		if t.Name == "" {
			return fmt.Errorf("tool registered with empty name")
		}
		if t.Handler == nil {
			return fmt.Errorf("tool %q has no handler", t.Name)
		}
	}
	return nil
}

// Execute dispatches a tool call. It always returns a result payload:
// unknown names and handler failures come back as error-shaped maps,
// never as Go errors.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) any {
	t, ok := r.index[name]
	if !ok {
		return map[string]any{"error": fmt.Sprintf("unknown tool: %s", name)}
	}
	if args == nil {
		args = map[string]any{}
	}
	return t.Handler(ctx, args)
}

// stringArg extracts an optional string argument, returning
// "" when absent or of the wrong type.
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// read performs one backend read and maps failures and misses into
// result payloads.
func (r *Registry) read(ctx context.Context, path, emptyMessage string) any {
	value, err := r.store.Read(ctx, path)
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("reading %s: %v", path, err)}
	}
	if value == nil {
		return map[string]any{"message": emptyMessage}
	}
	return value
}

func (r *Registry) registerBuiltins() {
	// Query tools: one logical backend read each.
	r.Register(&Tool{
		Name:        "search_employees",
		Description: "Search employee records by name. Returns matching employees with role, office, visa and contract details. Omit the name to list everyone.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Full or partial employee name to match, case-insensitive",
				},
			},
		},
		Handler: r.handleSearchEmployees,
	})

	r.Register(&Tool{
		Name:        "get_active_alerts",
		Description: "Get the current HR alerts: visa expiries, contract renewals, overdue training.",
		Parameters:  emptyParams(),
		Handler: func(ctx context.Context, args map[string]any) any {
			return r.read(ctx, "alerts", "No active alerts.")
		},
	})

	r.Register(&Tool{
		Name:        "get_compliance_status",
		Description: "Get the company-wide compliance summary and recent audit coverage.",
		Parameters:  emptyParams(),
		Handler: func(ctx context.Context, args map[string]any) any {
			return r.read(ctx, "compliance", "No compliance data available.")
		},
	})

	r.Register(&Tool{
		Name:        "get_contracts",
		Description: "Get employment contracts with status and renewal dates.",
		Parameters:  emptyParams(),
		Handler: func(ctx context.Context, args map[string]any) any {
			return r.read(ctx, "contracts", "No contract records available.")
		},
	})

	r.Register(&Tool{
		Name:        "get_company_info",
		Description: "Get company facts: offices, headcount, HR contacts.",
		Parameters:  emptyParams(),
		Handler: func(ctx context.Context, args map[string]any) any {
			return r.read(ctx, "company", "No company information available.")
		},
	})

	r.Register(&Tool{
		Name:        "get_calendar_events",
		Description: "Get upcoming HR calendar events: holidays, reviews, onboarding cohorts.",
		Parameters:  emptyParams(),
		Handler: func(ctx context.Context, args map[string]any) any {
			return r.read(ctx, "calendar", "No calendar events found.")
		},
	})

	r.Register(&Tool{
		Name:        "get_policy_info",
		Description: "Get the HR policy knowledge base: leave, remote work, visa sponsorship and other policies.",
		Parameters:  emptyParams(),
		Handler: func(ctx context.Context, args map[string]any) any {
			return r.read(ctx, "policies", "No policy documents have been loaded.")
		},
	})

	r.Register(&Tool{
		Name:        "get_clause_templates",
		Description: "Get the contract clause templates used for drafting employment agreements.",
		Parameters:  emptyParams(),
		Handler: func(ctx context.Context, args map[string]any) any {
			return r.read(ctx, "clause_templates", "No clause templates available.")
		},
	})

	r.Register(&Tool{
		Name:        "get_dashboard_kpis",
		Description: "Get the HR dashboard KPIs: headcount, attrition, open positions, expiring contracts.",
		Parameters:  emptyParams(),
		Handler: func(ctx context.Context, args map[string]any) any {
			return r.read(ctx, "kpis", "No KPI data available.")
		},
	})

	// Intent tools: pure construction, no I/O. The loop surfaces the
	// returned Intent to the caller.
	r.Register(&Tool{
		Name:        "navigate_to_page",
		Description: "Suggest a dashboard page the user should open to see relevant detail. Use after answering, when a page shows more than you can say.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"page": map[string]any{
					"type":        "string",
					"description": "Dashboard route, e.g. /compliance, /employees, /contracts",
				},
				"reason": map[string]any{
					"type":        "string",
					"description": "Short explanation of why this page is relevant",
				},
			},
			"required": []string{"page"},
		},
		Handler: func(ctx context.Context, args map[string]any) any {
			return Intent{
				Kind:   IntentNavigate,
				Page:   stringArg(args, "page"),
				Reason: stringArg(args, "reason"),
			}
		},
	})

	r.Register(&Tool{
		Name:        "create_action_item",
		Description: "Suggest a follow-up task for the HR operator, e.g. initiating a visa renewal.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Short task title",
				},
				"priority": map[string]any{
					"type":        "string",
					"description": "One of: low, medium, high",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "What needs to be done and why",
				},
			},
			"required": []string{"title"},
		},
		Handler: func(ctx context.Context, args map[string]any) any {
			priority := stringArg(args, "priority")
			if priority == "" {
				priority = "medium"
			}
			return Intent{
				Kind:        IntentActionItem,
				Title:       stringArg(args, "title"),
				Priority:    priority,
				Description: stringArg(args, "description"),
			}
		},
	})
}

func emptyParams() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (r *Registry) handleSearchEmployees(ctx context.Context, args map[string]any) any {
	query := strings.ToLower(strings.TrimSpace(stringArg(args, "name")))

	value, err := r.store.Read(ctx, "employees")
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("reading employees: %v", err)}
	}
	records, ok := value.([]any)
	if !ok || len(records) == 0 {
		return map[string]any{"message": "No employee records available."}
	}

	if query == "" {
		return records
	}

	var matches []any
	for _, rec := range records {
		m, ok := rec.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if strings.Contains(strings.ToLower(name), query) {
			matches = append(matches, rec)
		}
	}

	if len(matches) == 0 {
		return map[string]any{"message": fmt.Sprintf("No employee found matching %q.", stringArg(args, "name"))}
	}
	return matches
}
