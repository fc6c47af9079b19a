package domain

import "strings"

// Limits are the per-turn knobs handed to the runner and the turn executor.
type Limits struct {
	Roles              []string `json:"roles,omitempty"`
	ValidateRoleOutput bool     `json:"validate_role_output"`
	RoleRepairPrompt   string   `json:"role_repair_prompt,omitempty"`
	HistoryMaxMessages int      `json:"history_max_messages,omitempty"`
}

// ExecutionContext is everything a single turn may see. PrivateMemory is only
// set in layered mode.
type ExecutionContext struct {
	MeetingID          MeetingID   `json:"meeting_id"`
	RunID              RunID       `json:"run_id"`
	Round              int         `json:"round"`
	Speaker            string      `json:"speaker"`
	Mode               ContextMode `json:"context_mode"`
	Messages           []Message   `json:"messages"`
	PrivateMemory      *Memory     `json:"private_memory,omitempty"`
	SystemInstructions string      `json:"system_instructions"`
	Task               string      `json:"user_task"`
	Limits             Limits      `json:"limits"`
}

func (c ExecutionContext) Validate() error {
	if strings.TrimSpace(string(c.MeetingID)) == "" {
		return invalid("execution context", "meeting_id is required")
	}
	if strings.TrimSpace(string(c.RunID)) == "" {
		return invalid("execution context", "run_id is required")
	}
	if c.Round < 1 {
		return invalid("execution context", "round must be >= 1")
	}
	if strings.TrimSpace(c.Speaker) == "" {
		return invalid("execution context", "speaker is required")
	}
	if c.Mode != ContextModeShared && c.Mode != ContextModeLayered {
		return invalid("execution context", "invalid context_mode %q", c.Mode)
	}
	if c.Mode == ContextModeShared && c.PrivateMemory != nil {
		return invalid("execution context", "private memory is only visible in layered mode")
	}

	return nil
}

// RecentMessages returns the tail of the visible messages, or all of them
// when limit is not positive.
func (c ExecutionContext) RecentMessages(limit int) []Message {
	if limit <= 0 || len(c.Messages) <= limit {
		return c.Messages
	}

	return c.Messages[len(c.Messages)-limit:]
}
