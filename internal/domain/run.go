package domain

import (
	"fmt"
	"strings"
	"time"
)

type MeetingID string
type RunID string
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusPaused  RunStatus = "PAUSED"
	RunStatusDone    RunStatus = "DONE"
	RunStatusFailed  RunStatus = "FAILED"
)

func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusPaused, RunStatusDone, RunStatusFailed:
		return true
	default:
		return false
	}
}

func (s RunStatus) Terminal() bool {
	return s == RunStatusDone || s == RunStatusFailed
}

// CanTransitionTo allows RUNNING to move anywhere and PAUSED to move back to
// RUNNING or fail. Terminal statuses never change.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	if s == next {
		return true
	}

	switch s {
	case RunStatusRunning:
		return true
	case RunStatusPaused:
		return next == RunStatusRunning || next == RunStatusFailed
	default:
		return false
	}
}

type Meeting struct {
	ID        MeetingID
	Title     string
	Config    MeetingConfig
	CreatedAt time.Time
}

func (m Meeting) Validate() error {
	if strings.TrimSpace(string(m.ID)) == "" {
		return fmt.Errorf("meeting id is required")
	}

	return m.Config.Validate()
}

type Run struct {
	ID        RunID
	MeetingID MeetingID
	Status    RunStatus
	Config    MeetingConfig
	StartedAt time.Time
	EndedAt   time.Time
}

type RunFilter struct {
	MeetingID MeetingID
	Limit     int
}
