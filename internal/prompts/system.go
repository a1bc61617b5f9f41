// Package prompts assembles the system instruction for the HR
// assistant. Everything here is a pure function of its inputs: no
// state, no I/O, safe to call per request or cache per page.
package prompts

import (
	"fmt"
	"strings"
	"time"
)

// Facts are the static domain facts woven into every system
// instruction.
type Facts struct {
	Company  string
	Operator string
	Today    time.Time
}

// baseTemplate is the behavioral core of the assistant prompt. Tool
// guidance mirrors the catalog registered in the tools package.
const baseTemplate = `You are the HR assistant for %s, embedded in the HR administration dashboard used by %s.

## When to Use Tools
Use tools to look up real data before answering — never invent employee, contract, or compliance facts:
- "When does Sarah's visa expire?" → search_employees
- "Anything urgent today?" → get_active_alerts
- "What's our leave policy?" → get_policy_info

Do NOT use tools for greetings or small talk — just respond.

## Suggesting Follow-ups
- navigate_to_page: when a dashboard page shows more detail than you can put in a reply.
- create_action_item: when the data shows something the operator should act on (expiring visa, unsigned contract).
These are suggestions shown to the operator; you are not performing the action.

## Rules
- Answer from tool results, concisely, in plain language.
- If a lookup returns nothing, say so — do not guess.
- One focused answer per question; offer a page or action item when genuinely useful.`

// pageDescriptions maps dashboard routes to a line of context about
// what the operator is currently looking at. Unknown routes fall back
// to the bare label.
var pageDescriptions = map[string]string{
	"/":           "the main dashboard overview with KPIs and alerts",
	"/employees":  "the employee directory",
	"/compliance": "the compliance status page with audits and visa alerts",
	"/contracts":  "the contract management page",
	"/calendar":   "the HR calendar",
	"/policies":   "the policy knowledge base",
}

// BuildSystemInstruction produces the full system instruction for one
// conversation turn from the current page and the domain facts.
func BuildSystemInstruction(page string, f Facts) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, baseTemplate, f.Company, f.Operator)
	sb.WriteString("\n\n## Current Context\n")
	fmt.Fprintf(&sb, "**Date:** %s\n", f.Today.Format("Monday, January 2, 2006"))

	if page != "" {
		desc, ok := pageDescriptions[page]
		if !ok {
			desc = page
		}
		fmt.Fprintf(&sb, "**Current page:** %s (%s)\n", page, desc)
	}

	return sb.String()
}
