package application

import (
	"context"
	"fmt"

	"github.com/yoke233/metting/internal/domain"
)

// RunStatus is a run's progress as read back from its event log.
type RunStatus struct {
	Run       domain.Run
	Artifacts []domain.Artifact
	Rounds    int
	Events    int
	Metric    *domain.MetricPayload
	Pause     *domain.PausePayload
	LastError *domain.ErrorPayload
}

func (s *MeetingService) Status(ctx context.Context, runID domain.RunID) (RunStatus, error) {
	view, err := s.GetRun(ctx, runID)
	if err != nil {
		return RunStatus{}, err
	}

	events, err := s.store.Replay(ctx, runID)
	if err != nil {
		return RunStatus{}, fmt.Errorf("replay run events: %w", err)
	}

	return summarizeRun(view, events), nil
}

func summarizeRun(view RunView, events []domain.Event) RunStatus {
	status := RunStatus{
		Run:       view.Run,
		Artifacts: view.Artifacts,
		Rounds:    NextRound(events) - 1,
		Events:    len(events),
	}

	for i := len(events) - 1; i >= 0; i-- {
		switch payload := events[i].Payload.(type) {
		case domain.MetricPayload:
			if status.Metric == nil {
				status.Metric = &payload
			}
		case domain.ErrorPayload:
			if status.LastError == nil {
				status.LastError = &payload
			}
		}
	}

	if view.Run.Status == domain.RunStatusPaused {
		if pause, ok := LatestPause(events); ok {
			status.Pause = &pause
		}
	}

	return status
}
