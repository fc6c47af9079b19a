package application

import (
	"encoding/json"

	"github.com/yoke233/metting/internal/domain"
)

const (
	resumeAnswersPrefix = "resume answers: "
	userMessageName     = "user"
)

// PublicMessages rebuilds the shared transcript from a run's log. Private
// turns are skipped and resume answers become user messages.
func PublicMessages(events []domain.Event) []domain.Message {
	messages := []domain.Message{}
	for _, event := range events {
		switch payload := event.Payload.(type) {
		case domain.AgentMessagePayload:
			if payload.Private || payload.Message.Content == "" {
				continue
			}
			messages = append(messages, payload.Message)
		case domain.ResumePayload:
			answers := payload.Answers
			if answers == nil {
				answers = map[string]any{}
			}
			encoded, err := json.Marshal(answers)
			if err != nil {
				encoded = []byte("{}")
			}
			messages = append(messages, domain.Message{
				Role:    domain.MessageRoleUser,
				Content: resumeAnswersPrefix + string(encoded),
				Name:    userMessageName,
				TSMs:    event.TSMs,
			})
		}
	}

	return messages
}

// NextRound is one past the highest round ever started, or 1 for a fresh log.
func NextRound(events []domain.Event) int {
	last := 0
	for _, event := range events {
		if payload, ok := event.Payload.(domain.RoundStartedPayload); ok && payload.Round > last {
			last = payload.Round
		}
	}

	return last + 1
}

// LatestPause scans backwards for the most recent pause event.
func LatestPause(events []domain.Event) (domain.PausePayload, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if payload, ok := events[i].Payload.(domain.PausePayload); ok {
			return payload, true
		}
	}

	return domain.PausePayload{}, false
}

// PauseConsumed reports whether a resume event already follows the most
// recent pause.
func PauseConsumed(events []domain.Event) bool {
	for i := len(events) - 1; i >= 0; i-- {
		switch events[i].Payload.(type) {
		case domain.ResumePayload:
			return true
		case domain.PausePayload:
			return false
		}
	}

	return false
}

func FlowSteps(events []domain.Event) []domain.FlowStep {
	steps := []domain.FlowStep{}
	for _, event := range events {
		if payload, ok := event.Payload.(domain.SpeakerSelectedPayload); ok {
			steps = append(steps, domain.FlowStep{Round: payload.Round, Speakers: payload.Speakers})
		}
	}

	return steps
}

// LatestRoleOutputs parses the most recent public answer of every listed
// role, whitelisted guests included when the caller passes them. Answers that
// do not parse are ignored.
func LatestRoleOutputs(events []domain.Event, roles []string) map[string]domain.RoleOutput {
	eligible := map[string]struct{}{}
	for _, role := range roles {
		if !domain.IsRecorder(role) {
			eligible[role] = struct{}{}
		}
	}

	latest := map[string]domain.RoleOutput{}
	for _, event := range events {
		payload, ok := event.Payload.(domain.AgentMessagePayload)
		if !ok || payload.Private || payload.Message.Role != domain.MessageRoleAssistant {
			continue
		}
		if _, ok := eligible[payload.Message.Name]; !ok {
			continue
		}
		if output, err := domain.ParseRoleOutput(payload.Message.Content); err == nil {
			latest[payload.Message.Name] = output
		}
	}

	return latest
}

func WithoutTokens(events []domain.Event) []domain.Event {
	filtered := make([]domain.Event, 0, len(events))
	for _, event := range events {
		if event.Type != domain.EventToken {
			filtered = append(filtered, event)
		}
	}

	return filtered
}
