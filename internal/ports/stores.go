package ports

import (
	"context"
	"time"

	"github.com/yoke233/metting/internal/domain"
)

type ArtifactStore interface {
	SaveArtifact(ctx context.Context, artifact domain.Artifact) error
	ListArtifacts(ctx context.Context, runID domain.RunID) ([]domain.Artifact, error)
	ListSummaries(ctx context.Context, runID domain.RunID) ([]domain.Artifact, error)
}

type MemoryStore interface {
	LatestMemory(ctx context.Context, runID domain.RunID, role string) (domain.Memory, bool, error)
	SaveMemory(ctx context.Context, runID domain.RunID, memory domain.RoleMemory) error
	ListMemories(ctx context.Context, runID domain.RunID) ([]domain.RoleMemory, error)
}

type RunRepository interface {
	CreateRun(ctx context.Context, run domain.Run) error
	GetRun(ctx context.Context, id domain.RunID) (domain.Run, error)
	ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error)
	SetRunStatus(ctx context.Context, id domain.RunID, status domain.RunStatus, at time.Time) error
}

type MeetingRepository interface {
	GetByID(ctx context.Context, id domain.MeetingID) (domain.Meeting, error)
	List(ctx context.Context, limit int) ([]domain.Meeting, error)
	Save(ctx context.Context, meeting domain.Meeting) error
}

// RunStore is everything the orchestrator persists for a run.
type RunStore interface {
	EventLog
	ArtifactStore
	MemoryStore
	RunRepository
}
