package model

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Profile carries the optional per-request user profile. Absent fields
// degrade to empty strings; only the system prompt and tool-argument
// defaulting consume it.
type Profile struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
	Interests   string `json:"interests"`
	City        string `json:"city"`
}

// IsEmpty reports whether the profile carries no usable field.
func (p *Profile) IsEmpty() bool {
	if p == nil {
		return true
	}
	return strings.TrimSpace(p.Name) == "" &&
		strings.TrimSpace(p.Phone) == "" &&
		strings.TrimSpace(p.Description) == "" &&
		strings.TrimSpace(p.Interests) == "" &&
		strings.TrimSpace(p.City) == ""
}

// ChatInput is one conversation-loop invocation: the new user message plus
// the client-supplied history (the service keeps no conversation store).
type ChatInput struct {
	Message string            `json:"message"`
	History []*schema.Message `json:"history,omitempty"`
	Profile *Profile          `json:"profile,omitempty"`
}

// AppState stores per-invocation state for the eino graph.
// All reads/writes happen only inside eino state handlers
// (WithStatePreHandler, WithStatePostHandler, compose.ProcessState), which
// eino serializes, so no extra locking is needed. One invocation owns one
// state; nothing is shared across requests.
type AppState struct {
	Profile              *Profile
	History              []*schema.Message // mutated only inside state handlers
	ToolCallCount        int
	ToolCallLimitReached bool
	ToolCallIDSeq        int // synthesizes tool_call_id when the provider omits it
}
