package application

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yoke233/metting/internal/adapters/repo/sqlite"
	tomlrepo "github.com/yoke233/metting/internal/adapters/repo/toml"
	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/ports"
)

func mockAnyContext() interface{} {
	return mock.Anything
}

// replyFunc answers one turn. Returning an error fails the turn.
type replyFunc func(execution domain.ExecutionContext) (string, error)

// scriptedRunner streams a single token and then the scripted reply. Every
// call is recorded.
type scriptedRunner struct {
	reply replyFunc

	mu    sync.Mutex
	calls []domain.ExecutionContext
}

var _ ports.AgentRunner = (*scriptedRunner)(nil)

func newScriptedRunner(reply replyFunc) *scriptedRunner {
	return &scriptedRunner{reply: reply}
}

func (r *scriptedRunner) Run(ctx context.Context, execution domain.ExecutionContext) iter.Seq2[domain.Event, error] {
	return func(yield func(domain.Event, error) bool) {
		r.mu.Lock()
		r.calls = append(r.calls, execution)
		r.mu.Unlock()

		if err := ctx.Err(); err != nil {
			yield(domain.Event{}, err)
			return
		}

		text, err := r.reply(execution)
		if err != nil {
			yield(domain.Event{}, err)
			return
		}

		actor := domain.AgentActor(execution.Speaker)
		messageID := domain.NewMessageID()
		token := domain.NewEvent(execution.RunID, actor, 1, domain.TokenPayload{Text: "...", MessageID: messageID, Role: execution.Speaker})
		if !yield(token, nil) {
			return
		}

		round := execution.Round
		yield(domain.NewEvent(execution.RunID, actor, 2, domain.AgentMessagePayload{
			Message:   domain.Message{Role: domain.MessageRoleAssistant, Content: text, Name: execution.Speaker},
			MessageID: messageID,
			Round:     &round,
		}), nil)
	}
}

func (r *scriptedRunner) Calls() []domain.ExecutionContext {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.ExecutionContext(nil), r.calls...)
}

func (r *scriptedRunner) CallsFor(speaker string) []domain.ExecutionContext {
	var matched []domain.ExecutionContext
	for _, call := range r.Calls() {
		if call.Speaker == speaker {
			matched = append(matched, call)
		}
	}

	return matched
}

func roleJSON(decision string, questions ...string) string {
	if questions == nil {
		questions = []string{}
	}

	encoded, err := json.Marshal(map[string]any{
		"assumptions":             []string{"traffic doubles"},
		"proposal":                "use " + decision,
		"tradeoffs":               []string{},
		"risks":                   []map[string]string{{"risk": "lock-in", "impact": "M", "mitigation": "abstract", "verification": "review"}},
		"questions":               questions,
		"decision_recommendation": decision,
	})
	if err != nil {
		panic(err)
	}

	return string(encoded)
}

const recorderJSON = `{
  "ADR": {"context": "c", "decision": "adopt cache", "alternatives_considered": [], "consequences": [],
          "risks_summary": [], "open_questions": [], "next_steps": []},
  "TASKS": [{"task_id": "T9", "title": "ship", "owner_role": "Infra Architect", "priority": "P1", "estimate": "M", "dependencies": []}],
  "RISKS": {"risks": [{"risk": "r", "impact": "H", "probability": "L", "mitigation": "m", "verification": "v", "owner_role": "Skeptic"}]}
}`

const summaryJSON = `{"summary": "agreed on cache", "open_questions": [], "decisions": ["cache"], "risks": [], "next_steps": []}`

// meetingReplies answers role turns with a role output, the closing Recorder
// turn with a full record and round summaries with a valid recap.
func meetingReplies(decision string) replyFunc {
	return func(execution domain.ExecutionContext) (string, error) {
		if !domain.IsRecorder(execution.Speaker) {
			return roleJSON(decision), nil
		}
		if strings.Contains(execution.Task, "请总结第") {
			return summaryJSON, nil
		}

		return recorderJSON, nil
	}
}

type serviceHarness struct {
	service *MeetingService
	store   *sqlite.Store
	runner  *scriptedRunner
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.NewStore(context.Background(), filepath.Join(t.TempDir(), "meeting.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func newServiceHarness(t *testing.T, reply replyFunc, prompts domain.Prompts) serviceHarness {
	t.Helper()

	cfg := viper.New()
	cfg.Set("storage.meetings_path", filepath.Join(t.TempDir(), "meetings.toml"))

	meetings, err := tomlrepo.NewRepository(cfg)
	require.NoError(t, err)

	store := newTestStore(t)
	runner := newScriptedRunner(reply)
	service := NewMeetingService(
		meetings,
		store,
		runner,
		func() domain.Prompts { return prompts },
		ports.SystemClock{},
		nil,
	)

	return serviceHarness{service: service, store: store, runner: runner}
}

func (h serviceHarness) createMeeting(t *testing.T, cfg domain.MeetingConfig) domain.Meeting {
	t.Helper()

	meeting, err := h.service.CreateMeeting(context.Background(), CreateMeetingCommand{Config: cfg})
	require.NoError(t, err)

	return meeting
}

func (h serviceHarness) events(t *testing.T, runID domain.RunID) []domain.Event {
	t.Helper()

	events, err := h.store.Replay(context.Background(), runID)
	require.NoError(t, err)

	return events
}

func eventsOfType(events []domain.Event, eventType domain.EventType) []domain.Event {
	var matched []domain.Event
	for _, event := range events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}

	return matched
}

func artifactsOfType(artifacts []domain.Artifact, artifactType domain.ArtifactType) []domain.Artifact {
	var matched []domain.Artifact
	for _, artifact := range artifacts {
		if artifact.Type == artifactType {
			matched = append(matched, artifact)
		}
	}

	return matched
}

func intPtr(value int) *int {
	return &value
}

func failingReply(speaker string) replyFunc {
	return func(execution domain.ExecutionContext) (string, error) {
		if execution.Speaker == speaker {
			return "", fmt.Errorf("upstream refused %s", speaker)
		}
		return roleJSON("cache"), nil
	}
}
