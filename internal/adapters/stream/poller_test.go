package stream

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoke233/metting/internal/adapters/repo/sqlite"
	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/logging"
)

type recordingSink struct {
	mu         sync.Mutex
	ids        []int64
	keepAlives int
	failOn     int64
}

func newRecordingSink() *recordingSink {
	return &recordingSink{}
}

func (s *recordingSink) Event(event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != 0 && event.ID == s.failOn {
		return errors.New("client went away")
	}
	s.ids = append(s.ids, event.ID)

	return nil
}

func (s *recordingSink) KeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keepAlives++

	return nil
}

func (s *recordingSink) snapshot() ([]int64, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]int64(nil), s.ids...), s.keepAlives
}

func newTestLog(t *testing.T, runID domain.RunID, rounds int) *sqlite.Store {
	t.Helper()

	store, err := sqlite.NewStore(context.Background(), filepath.Join(t.TempDir(), "meeting.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for round := 1; round <= rounds; round++ {
		appendRound(t, store, runID, round)
	}

	return store
}

func appendRound(t *testing.T, store *sqlite.Store, runID domain.RunID, round int) {
	t.Helper()

	_, err := store.Append(context.Background(), domain.NewEvent(runID, domain.ActorOrchestrator, int64(round), domain.RoundStartedPayload{Round: round, Mode: "sequential"}))
	require.NoError(t, err)
}

func fastPoller(store *sqlite.Store) *Poller {
	poller := NewPoller(store, logging.NopLogger())
	poller.minInterval = time.Millisecond
	poller.keepAliveWindow = 20 * time.Millisecond

	return poller
}

func waitFor(t *testing.T, sink *recordingSink, done func([]int64, int) bool) {
	t.Helper()

	require.Eventually(t, func() bool {
		return done(sink.snapshot())
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNormalizeClampsTailAndInterval(t *testing.T) {
	t.Parallel()

	poller := NewPoller(nil, nil)

	tests := []struct {
		name string
		in   Cursor
		want Cursor
	}{
		{name: "defaults", in: Cursor{}, want: Cursor{Interval: DefaultInterval}},
		{name: "tail above max", in: Cursor{Tail: 9000, Interval: time.Second}, want: Cursor{Tail: MaxTail, Interval: time.Second}},
		{name: "negative tail", in: Cursor{Tail: -4, Interval: time.Second}, want: Cursor{Interval: time.Second}},
		{name: "interval below min", in: Cursor{Tail: 5, Interval: time.Millisecond}, want: Cursor{Tail: 5, Interval: MinInterval}},
		{name: "interval above max", in: Cursor{Interval: time.Minute}, want: Cursor{Interval: MaxInterval}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, poller.Normalize(tt.in))
		})
	}
}

func TestKeepAliveEvery(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 15, KeepAliveEvery(time.Second))
	assert.Equal(t, 75, KeepAliveEvery(MinInterval))
	assert.Equal(t, 3, KeepAliveEvery(MaxInterval))
	assert.Equal(t, 1, KeepAliveEvery(time.Minute))
}

func TestFollowSendsTailThenNewEvents(t *testing.T) {
	t.Parallel()

	store := newTestLog(t, "r-1", 5)
	sink := newRecordingSink()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- fastPoller(store).Follow(ctx, "r-1", Cursor{Tail: 2, Interval: time.Millisecond}, sink)
	}()

	waitFor(t, sink, func(ids []int64, _ int) bool { return len(ids) == 2 })
	appendRound(t, store, "r-1", 6)
	waitFor(t, sink, func(ids []int64, _ int) bool { return len(ids) == 3 })

	cancel()
	require.NoError(t, <-done)

	ids, _ := sink.snapshot()
	assert.Equal(t, []int64{4, 5, 6}, ids)
}

func TestFollowFromCursorSkipsOlderEvents(t *testing.T) {
	t.Parallel()

	store := newTestLog(t, "r-1", 4)
	sink := newRecordingSink()
	ctx, cancel := context.WithCancel(context.Background())
	after := int64(2)
	done := make(chan error, 1)
	go func() {
		done <- fastPoller(store).Follow(ctx, "r-1", Cursor{AfterID: &after, Tail: 200, Interval: time.Millisecond}, sink)
	}()

	waitFor(t, sink, func(ids []int64, _ int) bool { return len(ids) == 2 })
	cancel()
	require.NoError(t, <-done)

	ids, _ := sink.snapshot()
	assert.Equal(t, []int64{3, 4}, ids)
}

func TestFollowWithoutTailReplaysHistory(t *testing.T) {
	t.Parallel()

	store := newTestLog(t, "r-1", 3)
	sink := newRecordingSink()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- fastPoller(store).Follow(ctx, "r-1", Cursor{Interval: time.Millisecond}, sink)
	}()

	waitFor(t, sink, func(ids []int64, _ int) bool { return len(ids) == 3 })
	cancel()
	require.NoError(t, <-done)
}

func TestFollowSendsKeepAliveWhenIdle(t *testing.T) {
	t.Parallel()

	store := newTestLog(t, "r-1", 0)
	sink := newRecordingSink()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- fastPoller(store).Follow(ctx, "r-1", Cursor{Interval: 5 * time.Millisecond}, sink)
	}()

	waitFor(t, sink, func(_ []int64, keepAlives int) bool { return keepAlives >= 1 })
	cancel()
	require.NoError(t, <-done)
}

func TestFollowStopsWhenSinkFails(t *testing.T) {
	t.Parallel()

	store := newTestLog(t, "r-1", 3)
	sink := newRecordingSink()
	sink.failOn = 2

	err := fastPoller(store).Follow(context.Background(), "r-1", Cursor{Tail: 10, Interval: time.Millisecond}, sink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client went away")

	ids, _ := sink.snapshot()
	assert.Equal(t, []int64{1}, ids)
}
