package application

import "github.com/yoke233/metting/internal/domain"

// RunResult is what starting or resuming a run returns to the caller.
type RunResult struct {
	Run       domain.Run
	Outcome   RunOutcome
	Artifacts []domain.Artifact
}

type RunView struct {
	Run       domain.Run
	Artifacts []domain.Artifact
}

type EventQuery struct {
	RunID         domain.RunID
	IncludeTokens bool
	Tail          int
	After         int64
	Limit         int
}
