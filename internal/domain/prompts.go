package domain

import (
	"fmt"
	"strings"
)

// Prompts is the prompt surface a run is started with. It is copied into the
// orchestrator so a settings reload never changes a run in flight.
type Prompts struct {
	System         string            `json:"system" toml:"system" mapstructure:"system"`
	RoleOutput     string            `json:"role_output" toml:"role_output" mapstructure:"role_output"`
	RoleRepair     string            `json:"role_repair" toml:"role_repair" mapstructure:"role_repair"`
	RoundSummary   string            `json:"round_summary" toml:"round_summary" mapstructure:"round_summary"`
	RecorderOutput string            `json:"recorder_output" toml:"recorder_output" mapstructure:"recorder_output"`
	Roles          map[string]string `json:"roles,omitempty" toml:"roles,omitempty" mapstructure:"roles"`
}

func (p Prompts) Clone() Prompts {
	clone := p
	if p.Roles != nil {
		clone.Roles = make(map[string]string, len(p.Roles))
		for role, prompt := range p.Roles {
			clone.Roles[role] = prompt
		}
	}

	return clone
}

// SpeakerInstructions joins the system prompt, the role prompt and, for
// non-Recorder roles, the structured output contract.
func (p Prompts) SpeakerInstructions(role, rolePrompt string) string {
	parts := []string{p.System, rolePrompt}
	if !IsRecorder(role) {
		parts = append(parts, p.RoleOutput)
	}

	return joinPrompt(parts...)
}

func (p Prompts) SummaryInstructions(recorderPrompt string) string {
	return joinPrompt(p.System, recorderPrompt, p.RoundSummary)
}

func (p Prompts) RecorderInstructions(recorderPrompt string) string {
	return joinPrompt(p.System, recorderPrompt, p.RecorderOutput)
}

func RepairInstructions(instructions, repairPrompt string) string {
	return joinPrompt(instructions, repairPrompt)
}

func RepairTask(task, invalidOutput string) string {
	return task + "\n\n请将以下输出修复为严格 JSON：\n" + invalidOutput
}

func SummaryTask(task string, round int) string {
	return fmt.Sprintf("%s\n\n请总结第%d轮。", task, round)
}

func joinPrompt(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}

	return strings.Join(kept, "\n")
}
