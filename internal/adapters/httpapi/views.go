package httpapi

import (
	"time"

	"github.com/yoke233/metting/internal/application"
	"github.com/yoke233/metting/internal/domain"
)

type meetingView struct {
	MeetingID domain.MeetingID     `json:"meeting_id"`
	Title     string               `json:"title"`
	Config    domain.MeetingConfig `json:"config"`
	CreatedAt string               `json:"created_at"`
}

type runView struct {
	RunID     domain.RunID         `json:"run_id"`
	MeetingID domain.MeetingID     `json:"meeting_id"`
	Status    domain.RunStatus     `json:"status"`
	Config    domain.MeetingConfig `json:"config"`
	StartedAt string               `json:"started_at"`
	EndedAt   *string              `json:"ended_at"`
}

type runResultView struct {
	RunID     domain.RunID         `json:"run_id"`
	Status    domain.RunStatus     `json:"status"`
	Rounds    int                  `json:"rounds"`
	Pause     *domain.PausePayload `json:"pause,omitempty"`
	Artifacts []domain.Artifact    `json:"artifacts"`
}

type createMeetingResponse struct {
	MeetingID domain.MeetingID     `json:"meeting_id"`
	Title     string               `json:"title"`
	Config    domain.MeetingConfig `json:"config"`
}

type startRunRequest struct {
	Overrides map[string]any `json:"overrides"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type resumeRequest struct {
	ResumeToken string         `json:"resume_token"`
	Answers     map[string]any `json:"answers"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

func newMeetingView(meeting domain.Meeting) meetingView {
	return meetingView{
		MeetingID: meeting.ID,
		Title:     meeting.Title,
		Config:    meeting.Config,
		CreatedAt: formatTime(meeting.CreatedAt),
	}
}

func newRunView(run domain.Run) runView {
	view := runView{
		RunID:     run.ID,
		MeetingID: run.MeetingID,
		Status:    run.Status,
		Config:    run.Config,
		StartedAt: formatTime(run.StartedAt),
	}
	if !run.EndedAt.IsZero() {
		ended := formatTime(run.EndedAt)
		view.EndedAt = &ended
	}

	return view
}

func newRunResultView(result application.RunResult) runResultView {
	return runResultView{
		RunID:     result.Run.ID,
		Status:    result.Run.Status,
		Rounds:    result.Outcome.Rounds,
		Pause:     result.Outcome.Pause,
		Artifacts: nonNil(result.Artifacts),
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
