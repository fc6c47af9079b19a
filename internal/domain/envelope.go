package domain

import (
	"encoding/json"
	"fmt"
)

const eventCodeKey = "event_code"

// Envelope is the generic key-value form of an Event used at storage and
// wire boundaries. The payload always carries event_code.
type Envelope struct {
	ID      int64           `json:"id"`
	RunID   RunID           `json:"run_id"`
	TSMs    int64           `json:"ts_ms"`
	Type    EventType       `json:"type"`
	Actor   string          `json:"actor"`
	Payload json.RawMessage `json:"payload"`
}

func EncodeEvent(e Event) (Envelope, error) {
	if e.Payload == nil {
		return Envelope{}, invalid("event", "payload is required")
	}
	if e.Type == "" {
		e.Type = e.Payload.EventType()
	}
	e = e.Stamped()

	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", e.Type, err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Envelope{}, invalid("event", "%s payload must be an object", e.Type)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	if _, ok := fields[eventCodeKey]; !ok {
		code, err := json.Marshal(e.Code)
		if err != nil {
			return Envelope{}, fmt.Errorf("encode event code: %w", err)
		}
		fields[eventCodeKey] = code
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", e.Type, err)
	}

	return Envelope{
		ID:      e.ID,
		RunID:   e.RunID,
		TSMs:    e.TSMs,
		Type:    e.Type,
		Actor:   e.Actor,
		Payload: payload,
	}, nil
}

func DecodeEvent(env Envelope) (Event, error) {
	data := env.Payload
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	payload, err := decodePayload(env.Type, data)
	if err != nil {
		return Event{}, err
	}

	var stamp struct {
		Code string `json:"event_code"`
	}
	if err := json.Unmarshal(data, &stamp); err != nil {
		return Event{}, invalid("event", "payload must be an object")
	}

	event := Event{
		ID:      env.ID,
		RunID:   env.RunID,
		TSMs:    env.TSMs,
		Type:    env.Type,
		Actor:   env.Actor,
		Code:    stamp.Code,
		Payload: payload,
	}

	return event.Stamped(), nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	env, err := EncodeEvent(e)
	if err != nil {
		return nil, err
	}

	return json.Marshal(env)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	decoded, err := DecodeEvent(env)
	if err != nil {
		return err
	}
	*e = decoded

	return nil
}

func decodePayload(eventType EventType, data []byte) (Payload, error) {
	switch eventType {
	case EventRoundStarted:
		return decodeAs[RoundStartedPayload](eventType, data)
	case EventSpeakerSelected:
		return decodeAs[SpeakerSelectedPayload](eventType, data)
	case EventToken:
		return decodeAs[TokenPayload](eventType, data)
	case EventAgentMessage:
		return decodeAs[AgentMessagePayload](eventType, data)
	case EventSummaryWritten:
		return decodeAs[SummaryWrittenPayload](eventType, data)
	case EventArtifactWritten:
		return decodeAs[ArtifactWrittenPayload](eventType, data)
	case EventPause:
		return decodeAs[PausePayload](eventType, data)
	case EventResume:
		return decodeAs[ResumePayload](eventType, data)
	case EventMetric:
		return decodeAs[MetricPayload](eventType, data)
	case EventError:
		return decodeAs[ErrorPayload](eventType, data)
	case EventFinished:
		return decodeAs[FinishedPayload](eventType, data)
	default:
		return RawPayload{Kind: eventType, Data: append(json.RawMessage(nil), data...)}, nil
	}
}

func decodeAs[T Payload](eventType EventType, data []byte) (Payload, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
	}

	return payload, nil
}
