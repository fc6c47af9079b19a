package application

import (
	"slices"

	"github.com/yoke233/metting/internal/domain"
)

// turnScope is the per-round state a turn's context is cut from.
type turnScope struct {
	meetingID domain.MeetingID
	runID     domain.RunID
	round     int
	mode      domain.ContextMode
	public    []domain.Message
	summaries []domain.Message
	task      string
	limits    domain.Limits
}

// buildContext copies what the speaker may see. Shared turns get the public
// transcript; layered turns get the summary window and their own memory.
func buildContext(scope turnScope, speaker, instructions string, memory *domain.Memory) domain.ExecutionContext {
	execution := domain.ExecutionContext{
		MeetingID:          scope.meetingID,
		RunID:              scope.runID,
		Round:              scope.round,
		Speaker:            speaker,
		Mode:               scope.mode,
		SystemInstructions: instructions,
		Task:               scope.task,
		Limits:             scope.limits,
	}
	execution.Limits.Roles = slices.Clone(scope.limits.Roles)

	if scope.mode == domain.ContextModeLayered {
		execution.Messages = slices.Clone(scope.summaries)
		snapshot := domain.Memory{}
		if memory != nil {
			snapshot = *memory
		}
		snapshot = snapshot.Normalized()
		execution.PrivateMemory = &snapshot
		return execution
	}

	execution.Messages = slices.Clone(scope.public)

	return execution
}

// summaryMessages renders the newest keep summaries as system messages.
func summaryMessages(summaries []domain.Artifact, keep int) []domain.Message {
	if keep <= 0 || len(summaries) == 0 {
		return []domain.Message{}
	}
	if len(summaries) > keep {
		summaries = summaries[len(summaries)-keep:]
	}

	messages := make([]domain.Message, 0, len(summaries))
	for _, summary := range summaries {
		messages = append(messages, domain.Message{
			Role:    domain.MessageRoleSystem,
			Content: "round_summary: " + string(summary.Content),
			Name:    "summary",
		})
	}

	return messages
}
