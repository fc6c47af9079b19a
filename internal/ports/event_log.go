package ports

import (
	"context"

	"github.com/yoke233/metting/internal/domain"
)

// EventLog is the append-only run history. Append assigns the next per-run
// id and returns the stored event.
type EventLog interface {
	Append(ctx context.Context, event domain.Event) (domain.Event, error)
	Replay(ctx context.Context, runID domain.RunID) ([]domain.Event, error)
	Tail(ctx context.Context, runID domain.RunID, n int) ([]domain.Event, error)
	After(ctx context.Context, runID domain.RunID, cursor int64, limit int) ([]domain.Event, error)
}
