package application

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/logging"
	"github.com/yoke233/metting/internal/ports/mocks"
)

func replyEvents(execution domain.ExecutionContext, text string) iter.Seq2[domain.Event, error] {
	return func(yield func(domain.Event, error) bool) {
		actor := domain.AgentActor(execution.Speaker)
		if !yield(domain.NewEvent(execution.RunID, actor, 1, domain.TokenPayload{Text: "…", MessageID: "msg-1", Role: execution.Speaker}), nil) {
			return
		}
		yield(domain.NewEvent(execution.RunID, actor, 2, domain.AgentMessagePayload{
			Message:   domain.Message{Role: domain.MessageRoleAssistant, Content: text, Name: execution.Speaker},
			MessageID: "msg-1",
		}), nil)
	}
}

type recordingLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *recordingLog) append(_ context.Context, event domain.Event) (domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	event.ID = int64(len(l.events) + 1)
	l.events = append(l.events, event)

	return event, nil
}

func (l *recordingLog) errors() []domain.ErrorPayload {
	l.mu.Lock()
	defer l.mu.Unlock()

	var failures []domain.ErrorPayload
	for _, event := range l.events {
		if payload, ok := event.Payload.(domain.ErrorPayload); ok {
			failures = append(failures, payload)
		}
	}

	return failures
}

func newTurnExecutor(t *testing.T) (*turnExecutor, *mocks.MockAgentRunner, *mocks.MockClock, *recordingLog) {
	t.Helper()

	runner := mocks.NewMockAgentRunner(t)
	clock := mocks.NewMockClock(t)
	eventLog := mocks.NewMockEventLog(t)
	recorded := &recordingLog{}
	eventLog.EXPECT().Append(mockAnyContext(), mock.Anything).RunAndReturn(recorded.append).Maybe()

	return &turnExecutor{log: eventLog, runner: runner, clock: clock, logger: logging.NopLogger()}, runner, clock, recorded
}

func skepticTurn(repairPrompt string) turnRequest {
	return turnRequest{
		execution: domain.ExecutionContext{
			MeetingID:          "m-1",
			RunID:              "r-1",
			Round:              1,
			Speaker:            "Skeptic",
			Mode:               domain.ContextModeShared,
			Messages:           []domain.Message{},
			SystemInstructions: "你是质疑者。",
			Task:               "pick a cache",
			Limits:             domain.Limits{ValidateRoleOutput: true, RoleRepairPrompt: repairPrompt},
		},
		capture: true,
		repair:  repairPrompt != "",
	}
}

func TestTurnExecutorCapturesValidOutput(t *testing.T) {
	t.Parallel()

	executor, runner, _, recorded := newTurnExecutor(t)
	runner.EXPECT().Run(mockAnyContext(), mock.Anything).RunAndReturn(func(_ context.Context, execution domain.ExecutionContext) iter.Seq2[domain.Event, error] {
		return replyEvents(execution, roleJSON("redis"))
	}).Once()

	result, err := executor.execute(context.Background(), skepticTurn("fix"))
	require.NoError(t, err)

	assert.False(t, result.invalid)
	require.NotNil(t, result.output)
	assert.Equal(t, "redis", result.output.DecisionRecommendation)
	require.Len(t, result.messages, 1)
	assert.Equal(t, "Skeptic", result.messages[0].Name)
	require.Len(t, recorded.events, 2)
	assert.Equal(t, domain.EventToken, recorded.events[0].Type)
	assert.Equal(t, domain.EventAgentMessage, recorded.events[1].Type)
	assert.Empty(t, recorded.errors())
}

func TestTurnExecutorRepairsInvalidOutputOnce(t *testing.T) {
	t.Parallel()

	executor, runner, clock, recorded := newTurnExecutor(t)
	clock.EXPECT().Now().Return(time.UnixMilli(1000))

	var executions []domain.ExecutionContext
	replies := []string{"not json at all", roleJSON("redis")}
	runner.EXPECT().Run(mockAnyContext(), mock.Anything).RunAndReturn(func(_ context.Context, execution domain.ExecutionContext) iter.Seq2[domain.Event, error] {
		executions = append(executions, execution)
		return replyEvents(execution, replies[len(executions)-1])
	}).Twice()

	result, err := executor.execute(context.Background(), skepticTurn("只输出 JSON"))
	require.NoError(t, err)

	assert.False(t, result.invalid)
	require.NotNil(t, result.output)
	assert.Len(t, result.messages, 2)

	require.Len(t, executions, 2)
	assert.Contains(t, executions[1].SystemInstructions, "只输出 JSON")
	assert.Contains(t, executions[1].Task, "not json at all")
	assert.Empty(t, executions[1].Limits.RoleRepairPrompt)

	failures := recorded.errors()
	require.Len(t, failures, 1)
	assert.Equal(t, stageRoleOutputValidation, failures[0].Stage)
	assert.Equal(t, "Skeptic", failures[0].Speaker)
}

func TestTurnExecutorStopsAfterOneRepair(t *testing.T) {
	t.Parallel()

	executor, runner, clock, recorded := newTurnExecutor(t)
	clock.EXPECT().Now().Return(time.UnixMilli(1000))
	runner.EXPECT().Run(mockAnyContext(), mock.Anything).RunAndReturn(func(_ context.Context, execution domain.ExecutionContext) iter.Seq2[domain.Event, error] {
		return replyEvents(execution, "still prose")
	}).Twice()

	result, err := executor.execute(context.Background(), skepticTurn("fix"))
	require.NoError(t, err)

	assert.True(t, result.invalid)
	assert.Nil(t, result.output)
	assert.Len(t, recorded.errors(), 2)
}

func TestTurnExecutorWithoutRepairPromptDoesNotRetry(t *testing.T) {
	t.Parallel()

	executor, runner, clock, recorded := newTurnExecutor(t)
	clock.EXPECT().Now().Return(time.UnixMilli(1000))
	runner.EXPECT().Run(mockAnyContext(), mock.Anything).RunAndReturn(func(_ context.Context, execution domain.ExecutionContext) iter.Seq2[domain.Event, error] {
		return replyEvents(execution, "prose")
	}).Once()

	result, err := executor.execute(context.Background(), skepticTurn(""))
	require.NoError(t, err)

	assert.True(t, result.invalid)
	assert.Equal(t, "prose", result.text)
	assert.Len(t, recorded.errors(), 1)
}

func TestTurnExecutorPrivateTurnIsNotCaptured(t *testing.T) {
	t.Parallel()

	executor, runner, _, recorded := newTurnExecutor(t)
	runner.EXPECT().Run(mockAnyContext(), mock.Anything).RunAndReturn(func(_ context.Context, execution domain.ExecutionContext) iter.Seq2[domain.Event, error] {
		return replyEvents(execution, "closing notes")
	}).Once()

	req := skepticTurn("")
	req.capture = false
	req.execution.Speaker = domain.RecorderRole
	req.execution.Limits.ValidateRoleOutput = false

	result, err := executor.execute(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, result.messages)
	assert.Equal(t, "closing notes", result.text)
	require.Len(t, recorded.events, 2)
	payload, ok := recorded.events[1].Payload.(domain.AgentMessagePayload)
	require.True(t, ok)
	assert.True(t, payload.Private)
}

func TestTurnExecutorReturnsRunnerError(t *testing.T) {
	t.Parallel()

	executor, runner, _, recorded := newTurnExecutor(t)
	upstream := errors.New("connection reset")
	runner.EXPECT().Run(mockAnyContext(), mock.Anything).Return(func(yield func(domain.Event, error) bool) {
		yield(domain.Event{}, upstream)
	}).Once()

	_, err := executor.execute(context.Background(), skepticTurn("fix"))
	require.ErrorIs(t, err, upstream)
	assert.Empty(t, recorded.events)
}

func TestTurnExecutorRejectsInvalidContext(t *testing.T) {
	t.Parallel()

	executor, _, _, _ := newTurnExecutor(t)
	req := skepticTurn("")
	req.execution.Round = 0

	_, err := executor.execute(context.Background(), req)
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}
