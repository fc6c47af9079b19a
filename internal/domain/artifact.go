package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ArtifactType string

const (
	ArtifactADR       ArtifactType = "ADR"
	ArtifactTasks     ArtifactType = "TASKS"
	ArtifactRisks     ArtifactType = "RISKS"
	ArtifactMinutes   ArtifactType = "MINUTES"
	ArtifactSummary   ArtifactType = "SUMMARY"
	ArtifactFlowchart ArtifactType = "FLOWCHART"
	ArtifactConsensus ArtifactType = "CONSENSUS"
)

const (
	VersionV1 = "v1"
	VersionV2 = "v2"
)

func (t ArtifactType) Valid() bool {
	switch t {
	case ArtifactADR, ArtifactTasks, ArtifactRisks, ArtifactMinutes, ArtifactSummary, ArtifactFlowchart, ArtifactConsensus:
		return true
	default:
		return false
	}
}

type Artifact struct {
	RunID     RunID           `json:"run_id"`
	Type      ArtifactType    `json:"type"`
	Version   string          `json:"version"`
	Content   json.RawMessage `json:"content"`
	CreatedMs int64           `json:"created_ts_ms"`
}

func NewArtifact(runID RunID, artifactType ArtifactType, version string, content any, createdMs int64) (Artifact, error) {
	raw, ok := content.(json.RawMessage)
	if !ok {
		encoded, err := marshalContent(content)
		if err != nil {
			return Artifact{}, fmt.Errorf("encode %s artifact: %w", artifactType, err)
		}
		raw = encoded
	}

	artifact := Artifact{
		RunID:     runID,
		Type:      artifactType,
		Version:   version,
		Content:   raw,
		CreatedMs: createdMs,
	}
	if err := artifact.Validate(); err != nil {
		return Artifact{}, err
	}

	return artifact, nil
}

func (a Artifact) Validate() error {
	if strings.TrimSpace(string(a.RunID)) == "" {
		return invalid("artifact", "run_id is required")
	}
	if !a.Type.Valid() {
		return invalid("artifact", "invalid type %q", a.Type)
	}
	if strings.TrimSpace(a.Version) == "" {
		return invalid("artifact", "version is required")
	}

	var object map[string]any
	if err := json.Unmarshal(a.Content, &object); err != nil || object == nil {
		return invalid("artifact", "content must be an object")
	}

	return nil
}

type ADR struct {
	Context                string   `json:"context"`
	Decision               string   `json:"decision"`
	AlternativesConsidered []string `json:"alternatives_considered"`
	Consequences           []string `json:"consequences"`
	RisksSummary           []string `json:"risks_summary"`
	OpenQuestions          []string `json:"open_questions"`
	NextSteps              []string `json:"next_steps"`
}

type Task struct {
	TaskID       string   `json:"task_id"`
	Title        string   `json:"title"`
	OwnerRole    string   `json:"owner_role"`
	Priority     string   `json:"priority"`
	Estimate     string   `json:"estimate"`
	Dependencies []string `json:"dependencies"`
}

type TaskList struct {
	Tasks []Task `json:"tasks"`
}

type Risk struct {
	Risk         string `json:"risk"`
	Impact       string `json:"impact"`
	Probability  string `json:"probability"`
	Mitigation   string `json:"mitigation"`
	Verification string `json:"verification"`
	OwnerRole    string `json:"owner_role"`
}

type RiskList struct {
	Risks []Risk `json:"risks"`
}

func DefaultADR(task string) ADR {
	return ADR{
		Context:                task,
		Decision:               "TBD",
		AlternativesConsidered: []string{},
		Consequences:           []string{},
		RisksSummary:           []string{},
		OpenQuestions:          []string{},
		NextSteps:              []string{},
	}
}

func DefaultTasks() TaskList {
	return TaskList{Tasks: []Task{{
		TaskID:       "T1",
		Title:        "Define ADR decision",
		OwnerRole:    "Chief Architect",
		Priority:     "P1",
		Estimate:     "S",
		Dependencies: []string{},
	}}}
}

func DefaultRisks() RiskList {
	return RiskList{Risks: []Risk{{
		Risk:         "Incomplete requirements",
		Impact:       "M",
		Probability:  "M",
		Mitigation:   "Clarify scope and constraints",
		Verification: "Stakeholder review",
		OwnerRole:    RecorderRole,
	}}}
}

func ValidateADR(content map[string]any) error {
	return requireKeys("ADR", content,
		"context", "decision", "alternatives_considered", "consequences",
		"risks_summary", "open_questions", "next_steps",
	)
}

func ValidateTasks(content map[string]any) error {
	if err := requireKeys("TASKS", content, "tasks"); err != nil {
		return err
	}
	tasks, err := requireList("TASKS", content["tasks"], "tasks")
	if err != nil {
		return err
	}
	for _, entry := range tasks {
		task, ok := entry.(map[string]any)
		if !ok {
			return invalid("TASKS", "task entries must be objects")
		}
		if err := requireKeys("TASKS", task, "task_id", "title", "owner_role", "priority", "estimate", "dependencies"); err != nil {
			return err
		}
	}

	return nil
}

func ValidateRisks(content map[string]any) error {
	if err := requireKeys("RISKS", content, "risks"); err != nil {
		return err
	}
	risks, err := requireList("RISKS", content["risks"], "risks")
	if err != nil {
		return err
	}
	for _, entry := range risks {
		risk, ok := entry.(map[string]any)
		if !ok {
			return invalid("RISKS", "risk entries must be objects")
		}
		if err := requireKeys("RISKS", risk, "risk", "impact", "probability", "mitigation", "verification", "owner_role"); err != nil {
			return err
		}
	}

	return nil
}

// RecorderArtifacts holds the closing record. A nil section failed to parse
// and still needs its default.
type RecorderArtifacts struct {
	ADR   json.RawMessage
	Tasks json.RawMessage
	Risks json.RawMessage
}

// ParseRecorderOutput reads ADR, TASKS and RISKS (keys matched without case)
// from the Recorder's closing text. Each section is validated on its own so
// one bad section does not discard the others.
func ParseRecorderOutput(text string) (RecorderArtifacts, []error) {
	object, err := ExtractJSONObject("recorder output", text)
	if err != nil {
		return RecorderArtifacts{}, []error{err}
	}

	var errs []error
	result := RecorderArtifacts{}

	if adr, err := recorderSection(object, "ADR", ValidateADR); err != nil {
		errs = append(errs, err)
	} else {
		result.ADR = adr
	}

	tasksValue, err := lookupFold(object, "TASKS")
	if err == nil {
		if list, ok := tasksValue.([]any); ok {
			tasksValue = map[string]any{"tasks": list}
		}
		result.Tasks, err = validatedSection("TASKS", tasksValue, ValidateTasks)
	}
	if err != nil {
		errs = append(errs, err)
		result.Tasks = nil
	}

	if risks, err := recorderSection(object, "RISKS", ValidateRisks); err != nil {
		errs = append(errs, err)
	} else {
		result.Risks = risks
	}

	return result, errs
}

func (a RecorderArtifacts) WithDefaults(task string) (RecorderArtifacts, error) {
	var err error
	if a.ADR == nil {
		if a.ADR, err = marshalContent(DefaultADR(task)); err != nil {
			return RecorderArtifacts{}, err
		}
	}
	if a.Tasks == nil {
		if a.Tasks, err = marshalContent(DefaultTasks()); err != nil {
			return RecorderArtifacts{}, err
		}
	}
	if a.Risks == nil {
		if a.Risks, err = marshalContent(DefaultRisks()); err != nil {
			return RecorderArtifacts{}, err
		}
	}

	return a, nil
}

func recorderSection(object map[string]any, key string, validate func(map[string]any) error) (json.RawMessage, error) {
	value, err := lookupFold(object, key)
	if err != nil {
		return nil, err
	}

	return validatedSection(key, value, validate)
}

func validatedSection(key string, value any, validate func(map[string]any) error) (json.RawMessage, error) {
	section, ok := value.(map[string]any)
	if !ok {
		return nil, invalid("recorder output", "%s must be object", key)
	}
	if err := validate(section); err != nil {
		return nil, err
	}

	return marshalContent(section)
}

func lookupFold(object map[string]any, key string) (any, error) {
	if value, ok := object[key]; ok {
		return value, nil
	}
	for candidate, value := range object {
		if strings.EqualFold(candidate, key) {
			return value, nil
		}
	}

	return nil, invalid("recorder output", "missing key: %s", key)
}

// ParseRoundSummary validates a per-round Recorder summary. A missing round
// defaults to the current one.
func ParseRoundSummary(text string, round int) (json.RawMessage, error) {
	const subject = "round summary"

	object, err := ExtractJSONObject(subject, text)
	if err != nil {
		return nil, err
	}
	if _, ok := object["round"]; !ok {
		object["round"] = round
	}
	if err := requireKeys(subject, object, "round", "summary", "open_questions", "decisions", "risks", "next_steps"); err != nil {
		return nil, err
	}
	if !isInteger(object["round"]) {
		return nil, invalid(subject, "round must be int")
	}
	if _, ok := object["summary"].(string); !ok {
		return nil, invalid(subject, "summary must be string")
	}
	for _, key := range []string{"open_questions", "decisions", "risks", "next_steps"} {
		if _, err := requireList(subject, object[key], key); err != nil {
			return nil, err
		}
	}

	return marshalContent(object)
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int:
		return true
	case json.Number:
		_, err := v.Int64()
		return err == nil
	default:
		return false
	}
}
