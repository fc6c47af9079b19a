package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

type ContextMode string
type SpeakerStrategy string

const (
	ContextModeShared  ContextMode = "shared"
	ContextModeLayered ContextMode = "layered"

	StrategyRoundRobin        SpeakerStrategy = "round_robin"
	StrategyParallelAll       SpeakerStrategy = "parallel_all"
	StrategyParallelWhitelist SpeakerStrategy = "parallel_whitelist"
	StrategyParallelSubset    SpeakerStrategy = "parallel_subset"
)

const (
	RecorderRole = "Recorder"

	DefaultMaxRounds                  = 6
	DefaultOpenQuestionsMax           = 2
	DefaultDisagreementsMax           = 1
	DefaultSummaryKeepLast            = 3
	DefaultMemoryMaxItems             = 50
	DefaultRecorderHistoryMaxMessages = 20
)

func IsRecorder(role string) bool {
	return strings.EqualFold(strings.TrimSpace(role), RecorderRole)
}

type TerminationSettings struct {
	MinRounds        *int `json:"min_rounds,omitempty" yaml:"min_rounds,omitempty" toml:"min_rounds,omitempty"`
	OpenQuestionsMax *int `json:"open_questions_max,omitempty" yaml:"open_questions_max,omitempty" toml:"open_questions_max,omitempty"`
	DisagreementsMax *int `json:"disagreements_max,omitempty" yaml:"disagreements_max,omitempty" toml:"disagreements_max,omitempty"`
}

// MeetingConfig is the configuration snapshot a run executes with. Optional
// knobs are pointers so an explicit zero stays distinguishable from unset.
type MeetingConfig struct {
	Title                      string              `json:"title" yaml:"title" toml:"title"`
	Topic                      string              `json:"topic" yaml:"topic" toml:"topic"`
	Background                 string              `json:"background,omitempty" yaml:"background,omitempty" toml:"background,omitempty"`
	Constraints                map[string]any      `json:"constraints,omitempty" yaml:"constraints,omitempty" toml:"constraints,omitempty"`
	Roles                      []string            `json:"roles" yaml:"roles" toml:"roles"`
	RolePrompts                map[string]string   `json:"role_prompts,omitempty" yaml:"role_prompts,omitempty" toml:"role_prompts,omitempty"`
	MaxRounds                  int                 `json:"max_rounds,omitempty" yaml:"max_rounds,omitempty" toml:"max_rounds,omitempty"`
	ContextMode                ContextMode         `json:"context_mode,omitempty" yaml:"context_mode,omitempty" toml:"context_mode,omitempty"`
	ParallelMode               bool                `json:"parallel_mode,omitempty" yaml:"parallel_mode,omitempty" toml:"parallel_mode,omitempty"`
	ParallelRoles              []string            `json:"parallel_roles,omitempty" yaml:"parallel_roles,omitempty" toml:"parallel_roles,omitempty"`
	ParallelRoleLimit          int                 `json:"parallel_role_limit,omitempty" yaml:"parallel_role_limit,omitempty" toml:"parallel_role_limit,omitempty"`
	Termination                TerminationSettings `json:"termination" yaml:"termination,omitempty" toml:"termination,omitempty"`
	SummaryKeepLast            *int                `json:"summary_keep_last,omitempty" yaml:"summary_keep_last,omitempty" toml:"summary_keep_last,omitempty"`
	MemoryMaxItems             *int                `json:"memory_max_items,omitempty" yaml:"memory_max_items,omitempty" toml:"memory_max_items,omitempty"`
	HistoryMaxMessages         *int                `json:"history_max_messages,omitempty" yaml:"history_max_messages,omitempty" toml:"history_max_messages,omitempty"`
	RecorderHistoryMaxMessages *int                `json:"recorder_history_max_messages,omitempty" yaml:"recorder_history_max_messages,omitempty" toml:"recorder_history_max_messages,omitempty"`
	PauseOnRound               int                 `json:"pause_on_round,omitempty" yaml:"pause_on_round,omitempty" toml:"pause_on_round,omitempty"`
	OutputSchema               string              `json:"output_schema,omitempty" yaml:"output_schema,omitempty" toml:"output_schema,omitempty"`
}

func (c MeetingConfig) Validate() error {
	if strings.TrimSpace(c.Topic) == "" {
		return invalid("meeting config", "topic is required")
	}
	if c.MaxRounds < 0 {
		return invalid("meeting config", "max_rounds must be >= 0")
	}
	switch ContextMode(strings.ToLower(string(c.ContextMode))) {
	case "", ContextModeShared, ContextModeLayered:
	default:
		return invalid("meeting config", "unsupported context_mode %q", c.ContextMode)
	}
	if c.ParallelRoleLimit < 0 {
		return invalid("meeting config", "parallel_role_limit must be >= 0")
	}
	if c.PauseOnRound < 0 {
		return invalid("meeting config", "pause_on_round must be >= 0")
	}
	for _, role := range c.Roles {
		if strings.TrimSpace(role) == "" {
			return invalid("meeting config", "role names must be non-empty")
		}
	}

	return nil
}

func (c MeetingConfig) Mode() ContextMode {
	if ContextMode(strings.ToLower(string(c.ContextMode))) == ContextModeLayered {
		return ContextModeLayered
	}

	return ContextModeShared
}

func (c MeetingConfig) Strategy() SpeakerStrategy {
	switch {
	case !c.ParallelMode:
		return StrategyRoundRobin
	case len(c.Whitelist()) > 0:
		return StrategyParallelWhitelist
	case c.ParallelRoleLimit > 0:
		return StrategyParallelSubset
	default:
		return StrategyParallelAll
	}
}

// Whitelist returns the parallel_roles entries trimmed, with blanks dropped.
func (c MeetingConfig) Whitelist() []string {
	var roles []string
	for _, role := range c.ParallelRoles {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}

	return roles
}

// Participants lists every role that can speak in the run: the configured
// roles followed by whitelisted names that are not among them.
func (c MeetingConfig) Participants() []string {
	participants := slices.Clone(c.Roles)
	for _, role := range c.Whitelist() {
		if !slices.Contains(participants, role) {
			participants = append(participants, role)
		}
	}

	return participants
}

func (c MeetingConfig) RoundLimit() int {
	if c.MaxRounds <= 0 {
		return DefaultMaxRounds
	}

	return c.MaxRounds
}

func (c MeetingConfig) TerminationConfig() TerminationConfig {
	maxRounds := c.RoundLimit()
	minRounds := 1
	if len(c.Roles) > 0 {
		minRounds = min(len(c.Roles), maxRounds)
	}

	return TerminationConfig{
		MaxRounds:        maxRounds,
		MinRounds:        intOr(c.Termination.MinRounds, minRounds),
		OpenQuestionsMax: intOr(c.Termination.OpenQuestionsMax, DefaultOpenQuestionsMax),
		DisagreementsMax: intOr(c.Termination.DisagreementsMax, DefaultDisagreementsMax),
	}
}

func (c MeetingConfig) SummaryWindow() int {
	return intOr(c.SummaryKeepLast, DefaultSummaryKeepLast)
}

func (c MeetingConfig) MemoryCap() int {
	return intOr(c.MemoryMaxItems, DefaultMemoryMaxItems)
}

// HistoryLimit returns 0 when unset, leaving truncation to the runner default.
func (c MeetingConfig) HistoryLimit() int {
	return intOr(c.HistoryMaxMessages, 0)
}

func (c MeetingConfig) RecorderHistoryLimit() int {
	if c.HistoryMaxMessages != nil {
		return *c.HistoryMaxMessages
	}

	return intOr(c.RecorderHistoryMaxMessages, DefaultRecorderHistoryMaxMessages)
}

// RolePrompt prefers the meeting's own prompt, then the fallback set. Keys
// match without case because settings keys arrive lowercased.
func (c MeetingConfig) RolePrompt(role string, fallback map[string]string) string {
	if prompt := LookupRolePrompt(c.RolePrompts, role); prompt != "" {
		return prompt
	}
	if prompt := LookupRolePrompt(fallback, role); prompt != "" {
		return prompt
	}

	return fmt.Sprintf("你是%s。", role)
}

func LookupRolePrompt(prompts map[string]string, role string) string {
	if prompt, ok := prompts[role]; ok && strings.TrimSpace(prompt) != "" {
		return prompt
	}
	for name, prompt := range prompts {
		if strings.EqualFold(name, role) && strings.TrimSpace(prompt) != "" {
			return prompt
		}
	}

	return ""
}

// UserTask folds topic, background and constraints into the task text every
// turn receives.
func (c MeetingConfig) UserTask() string {
	constraints := c.Constraints
	if constraints == nil {
		constraints = map[string]any{}
	}

	encoded, err := json.Marshal(constraints)
	if err != nil {
		encoded = []byte("{}")
	}

	return strings.TrimSpace(fmt.Sprintf("%s\n%s\n%s", c.Topic, c.Background, encoded))
}

func intOr(value *int, fallback int) int {
	if value == nil {
		return fallback
	}

	return *value
}
