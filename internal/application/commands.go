package application

import "github.com/yoke233/metting/internal/domain"

type CreateMeetingCommand struct {
	Config domain.MeetingConfig
}

// StartRunCommand starts a run of a stored meeting. Overrides are merged into
// the meeting configuration: nested objects merge, everything else replaces.
type StartRunCommand struct {
	MeetingID domain.MeetingID
	Overrides map[string]any
}

type ResumeCommand struct {
	RunID   domain.RunID
	Token   string
	Answers map[string]any
}

type AddMessageCommand struct {
	RunID   domain.RunID
	Content string
}
