package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoke233/metting/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "nested", "meeting.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func roundEvent(runID domain.RunID, round int) domain.Event {
	return domain.NewEvent(runID, domain.ActorOrchestrator, int64(round), domain.RoundStartedPayload{Round: round, Mode: "sequential"})
}

func TestAppendAssignsGaplessIDsPerRun(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Append(ctx, roundEvent("r-1", 1))
	require.NoError(t, err)
	other, err := store.Append(ctx, roundEvent("r-2", 1))
	require.NoError(t, err)
	second, err := store.Append(ctx, roundEvent("r-1", 2))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(1), other.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, "ROUND_STARTED", first.Code)
}

func TestAppendConcurrentWritersStayOrdered(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Append(ctx, domain.NewEvent("r-1", "agent:A", int64(i), domain.TokenPayload{Text: fmt.Sprint(i), MessageID: "msg-1", Role: "A"}))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	events, err := store.Replay(ctx, "r-1")
	require.NoError(t, err)
	require.Len(t, events, 20)
	for i, event := range events {
		assert.Equal(t, int64(i+1), event.ID)
		assert.Equal(t, "AGENT_TOKEN", event.Code)
	}
}

func TestReplayTailAndAfter(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for round := 1; round <= 5; round++ {
		_, err := store.Append(ctx, roundEvent("r-1", round))
		require.NoError(t, err)
	}

	all, err := store.Replay(ctx, "r-1")
	require.NoError(t, err)
	require.Len(t, all, 5)
	payload, ok := all[2].Payload.(domain.RoundStartedPayload)
	require.True(t, ok)
	assert.Equal(t, 3, payload.Round)

	tail, err := store.Tail(ctx, "r-1", 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, []int64{4, 5}, []int64{tail[0].ID, tail[1].ID})

	empty, err := store.Tail(ctx, "r-1", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	after, err := store.After(ctx, "r-1", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, []int64{after[0].ID, after[1].ID})

	rest, err := store.After(ctx, "r-1", 2, 0)
	require.NoError(t, err)
	assert.Len(t, rest, 3)

	none, err := store.Replay(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAppendStampsUserMessageCode(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	event := domain.NewEvent("r-1", domain.ActorUser, 1, domain.AgentMessagePayload{
		Message:   domain.Message{Role: domain.MessageRoleUser, Content: "补充约束", Name: "user"},
		MessageID: "msg-1",
	})
	_, err := store.Append(ctx, event)
	require.NoError(t, err)

	events, err := store.Replay(ctx, "r-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.CodeUserMessageAdded, events[0].Code)
	message := events[0].Payload.(domain.AgentMessagePayload)
	assert.Nil(t, message.Round)
}

func TestAppendRejectsCanceledContext(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Append(ctx, roundEvent("r-1", 1))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunLifecycle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	run := domain.Run{
		ID:        "r-1",
		MeetingID: "m-1",
		Config:    domain.MeetingConfig{Topic: "选型", Roles: []string{"A"}},
		StartedAt: started,
	}
	require.NoError(t, store.CreateRun(ctx, run))

	got, err := store.GetRun(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusRunning, got.Status)
	assert.Equal(t, "选型", got.Config.Topic)
	assert.True(t, got.EndedAt.IsZero())

	require.NoError(t, store.SetRunStatus(ctx, "r-1", domain.RunStatusPaused, started.Add(time.Minute)))
	err = store.SetRunStatus(ctx, "r-1", domain.RunStatusDone, started.Add(2*time.Minute))
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.NoError(t, store.SetRunStatus(ctx, "r-1", domain.RunStatusRunning, started.Add(3*time.Minute)))
	require.NoError(t, store.SetRunStatus(ctx, "r-1", domain.RunStatusDone, started.Add(4*time.Minute)))

	got, err = store.GetRun(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusDone, got.Status)
	assert.Equal(t, started.Add(4*time.Minute), got.EndedAt)

	err = store.SetRunStatus(ctx, "r-1", domain.RunStatusRunning, started)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = store.GetRun(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrRunNotFound)
	require.ErrorIs(t, store.SetRunStatus(ctx, "missing", domain.RunStatusDone, started), domain.ErrRunNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, meeting := range []domain.MeetingID{"m-1", "m-2", "m-1"} {
		require.NoError(t, store.CreateRun(ctx, domain.Run{
			ID:        domain.RunID(fmt.Sprintf("r-%d", i)),
			MeetingID: meeting,
			Config:    domain.MeetingConfig{Topic: "t"},
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := store.ListRuns(ctx, domain.RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.RunID("r-2"), all[0].ID)

	filtered, err := store.ListRuns(ctx, domain.RunFilter{MeetingID: "m-1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, domain.RunID("r-2"), filtered[0].ID)
}

func TestArtifactsKeepWriteOrder(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	var saved []domain.Artifact
	for round := 1; round <= 2; round++ {
		artifact, err := domain.NewArtifact("r-1", domain.ArtifactSummary, domain.VersionV2, map[string]any{"round": round}, int64(round))
		require.NoError(t, err)
		require.NoError(t, store.SaveArtifact(ctx, artifact))
		saved = append(saved, artifact)
	}
	adr, err := domain.NewArtifact("r-1", domain.ArtifactADR, domain.VersionV1, domain.DefaultADR("t"), 3)
	require.NoError(t, err)
	require.NoError(t, store.SaveArtifact(ctx, adr))

	err = store.SaveArtifact(ctx, domain.Artifact{RunID: "r-1", Type: "BOGUS", Version: "v1", Content: []byte(`{}`)})
	require.Error(t, err)

	all, err := store.ListArtifacts(ctx, "r-1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.ArtifactADR, all[2].Type)
	assert.Equal(t, adr.Content, all[2].Content)

	summaries, err := store.ListSummaries(ctx, "r-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, saved[0].Content, summaries[0].Content)
	assert.Equal(t, saved[1].Content, summaries[1].Content)
	assert.Equal(t, json.RawMessage(`{"round":1}`), summaries[0].Content)
}

func TestArtifactContentBytesSurviveVerbatim(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	content := json.RawMessage("{\n  \"round\": 1,\n  \"note\": \"缓存 \\u2713\"\n}")
	require.NoError(t, store.SaveArtifact(ctx, domain.Artifact{
		RunID: "r-1", Type: domain.ArtifactSummary, Version: domain.VersionV2, Content: content, CreatedMs: 1,
	}))

	summaries, err := store.ListSummaries(ctx, "r-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, content, summaries[0].Content)
}

func TestMemoriesReturnLatestSnapshot(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	memory, found, err := store.LatestMemory(ctx, "r-1", "Skeptic")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NotNil(t, memory.Notes)

	require.NoError(t, store.SaveMemory(ctx, "r-1", domain.RoleMemory{Role: "Skeptic", Memory: domain.Memory{Notes: []string{"v1"}}, UpdatedMs: 1}))
	require.NoError(t, store.SaveMemory(ctx, "r-1", domain.RoleMemory{Role: "Skeptic", Memory: domain.Memory{Notes: []string{"v1", "v2"}}, UpdatedMs: 2}))
	require.NoError(t, store.SaveMemory(ctx, "r-1", domain.RoleMemory{Role: "Architect", Memory: domain.Memory{Drafts: []string{"d"}}, UpdatedMs: 3}))
	require.NoError(t, store.SaveMemory(ctx, "r-2", domain.RoleMemory{Role: "Skeptic", Memory: domain.Memory{Notes: []string{"other run"}}, UpdatedMs: 4}))

	memory, found, err = store.LatestMemory(ctx, "r-1", "Skeptic")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"v1", "v2"}, memory.Notes)

	all, err := store.ListMemories(ctx, "r-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Architect", all[0].Role)
	assert.Equal(t, "Skeptic", all[1].Role)
	assert.Equal(t, int64(2), all[1].UpdatedMs)
}
