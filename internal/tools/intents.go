package tools

// Intent kinds.
const (
	IntentNavigate   = "navigate"
	IntentActionItem = "actionItem"
)

// Intent is a side-effect suggestion surfaced to the caller instead of
// being executed: either a navigation hint or an action item. The
// orchestration loop accumulates intents in emission order; nothing in
// this subsystem acts on them.
type Intent struct {
	Kind string `json:"kind"`

	// Navigation fields.
	Page   string `json:"page,omitempty"`
	Reason string `json:"reason,omitempty"`

	// Action-item fields.
	Title       string `json:"title,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Description string `json:"description,omitempty"`
}
