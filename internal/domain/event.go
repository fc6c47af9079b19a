package domain

import (
	"encoding/json"
	"strings"
)

type EventType string

const (
	EventRoundStarted    EventType = "round_started"
	EventSpeakerSelected EventType = "speaker_selected"
	EventToken           EventType = "token"
	EventAgentMessage    EventType = "agent_message"
	EventSummaryWritten  EventType = "summary_written"
	EventArtifactWritten EventType = "artifact_written"
	EventPause           EventType = "pause"
	EventResume          EventType = "resume"
	EventMetric          EventType = "metric"
	EventError           EventType = "error"
	EventFinished        EventType = "finished"
)

const (
	ActorOrchestrator = "orchestrator"
	ActorSystem       = "system"
	ActorUser         = "user"
	ActorRecorder     = "recorder"
	ActorValidator    = "validator"
)

const agentActorPrefix = "agent:"

func AgentActor(speaker string) string {
	return agentActorPrefix + speaker
}

const (
	CodeUserMessageAdded = "USER_MESSAGE_ADDED"
	CodeAgentOutput      = "AGENT_OUTPUT"
)

var eventCodes = map[EventType]string{
	EventRoundStarted:    "ROUND_STARTED",
	EventSpeakerSelected: "SPEAKER_SELECTED",
	EventToken:           "AGENT_TOKEN",
	EventSummaryWritten:  "SUMMARY_WRITTEN",
	EventArtifactWritten: "ARTIFACT_WRITTEN",
	EventPause:           "PAUSED",
	EventResume:          "RESUMED",
	EventMetric:          "METRIC_EMITTED",
	EventError:           "ERROR",
	EventFinished:        "MEETING_FINISHED",
}

// Event is one immutable log entry. ID is the per-run position assigned by
// the event log and stays zero until the event is appended.
type Event struct {
	ID      int64
	RunID   RunID
	TSMs    int64
	Type    EventType
	Actor   string
	Code    string
	Payload Payload
}

type Payload interface {
	EventType() EventType
}

func NewEvent(runID RunID, actor string, tsMs int64, payload Payload) Event {
	return Event{
		RunID:   runID,
		TSMs:    tsMs,
		Type:    payload.EventType(),
		Actor:   actor,
		Payload: payload,
	}
}

// Stamped returns the event with its presentation code filled in.
func (e Event) Stamped() Event {
	if e.Code == "" {
		e.Code = EventCode(e.Type, e.Actor, e.Payload)
	}

	return e
}

func EventCode(eventType EventType, actor string, payload Payload) string {
	if eventType == EventAgentMessage {
		if actor == ActorUser {
			return CodeUserMessageAdded
		}
		if msg, ok := payload.(AgentMessagePayload); ok && msg.Message.Role == MessageRoleUser {
			return CodeUserMessageAdded
		}
		return CodeAgentOutput
	}
	if code, ok := eventCodes[eventType]; ok {
		return code
	}

	return strings.ToUpper(string(eventType))
}

type RoundStartedPayload struct {
	Round int    `json:"round"`
	Mode  string `json:"mode"`
}

type SpeakerSelectedPayload struct {
	Speaker  *string         `json:"speaker"`
	Speakers []string        `json:"speakers"`
	Round    int             `json:"round"`
	Strategy SpeakerStrategy `json:"strategy"`
}

type TokenPayload struct {
	Text      string `json:"text"`
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
}

// AgentMessagePayload carries a final turn message. Private marks output that
// was kept out of the public transcript.
type AgentMessagePayload struct {
	Message   Message `json:"message"`
	MessageID string  `json:"message_id"`
	Round     *int    `json:"round"`
	Private   bool    `json:"private,omitempty"`
}

type SummaryWrittenPayload struct {
	Round   int             `json:"round,omitempty"`
	Content json.RawMessage `json:"content"`
}

type ArtifactWrittenPayload struct {
	ArtifactType ArtifactType    `json:"artifact_type"`
	Version      string          `json:"version"`
	Content      json.RawMessage `json:"content"`
}

type PauseQuestion struct {
	Key      string `json:"key"`
	Ask      string `json:"ask"`
	Why      string `json:"why"`
	Required bool   `json:"required"`
}

type PausePayload struct {
	PauseReason   string          `json:"pause_reason"`
	Questions     []PauseQuestion `json:"questions"`
	ResumeToken   string          `json:"resume_token"`
	SuggestedNext string          `json:"suggested_next"`
}

type ResumePayload struct {
	ResumeToken string         `json:"resume_token"`
	Answers     map[string]any `json:"answers"`
}

type MetricPayload struct {
	OpenQuestionsCount int            `json:"open_questions_count"`
	DisagreementsCount int            `json:"disagreements_count"`
	ConsensusScore     *float64       `json:"consensus_score,omitempty"`
	VoteCounts         map[string]int `json:"vote_counts,omitzero"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
	Speaker string `json:"speaker,omitempty"`
}

type FinishedPayload struct {
	Status RunStatus `json:"status"`
	Rounds int       `json:"rounds"`
}

// RawPayload keeps events of unknown types intact across a decode/encode cycle.
type RawPayload struct {
	Kind EventType
	Data json.RawMessage
}

func (RoundStartedPayload) EventType() EventType    { return EventRoundStarted }
func (SpeakerSelectedPayload) EventType() EventType { return EventSpeakerSelected }
func (TokenPayload) EventType() EventType           { return EventToken }
func (AgentMessagePayload) EventType() EventType    { return EventAgentMessage }
func (SummaryWrittenPayload) EventType() EventType  { return EventSummaryWritten }
func (ArtifactWrittenPayload) EventType() EventType { return EventArtifactWritten }
func (PausePayload) EventType() EventType           { return EventPause }
func (ResumePayload) EventType() EventType          { return EventResume }
func (MetricPayload) EventType() EventType          { return EventMetric }
func (ErrorPayload) EventType() EventType           { return EventError }
func (FinishedPayload) EventType() EventType        { return EventFinished }
func (p RawPayload) EventType() EventType           { return p.Kind }

func (p RawPayload) MarshalJSON() ([]byte, error) {
	if len(p.Data) == 0 {
		return []byte("{}"), nil
	}

	return p.Data, nil
}
