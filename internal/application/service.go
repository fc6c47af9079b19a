package application

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/logging"
	"github.com/yoke233/metting/internal/ports"
)

// PromptSource returns the prompt set new runs start with.
type PromptSource func() domain.Prompts

type MeetingService struct {
	meetings     ports.MeetingRepository
	store        ports.RunStore
	orchestrator *Orchestrator
	prompts      PromptSource
	clock        ports.Clock
	logger       *logging.Logger

	mu     sync.Mutex
	active map[domain.RunID]struct{}
}

func NewMeetingService(
	meetings ports.MeetingRepository,
	store ports.RunStore,
	runner ports.AgentRunner,
	prompts PromptSource,
	clock ports.Clock,
	logger *logging.Logger,
) *MeetingService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	if prompts == nil {
		prompts = func() domain.Prompts { return domain.Prompts{} }
	}

	return &MeetingService{
		meetings:     meetings,
		store:        store,
		orchestrator: NewOrchestrator(store, runner, clock, logger),
		prompts:      prompts,
		clock:        clock,
		logger:       logger,
		active:       map[domain.RunID]struct{}{},
	}
}

// claim marks a run as executing in this process. The returned release must
// be called once the orchestrator returns.
func (s *MeetingService) claim(id domain.RunID) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.active[id]; busy {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrRunBusy)
	}
	s.active[id] = struct{}{}

	return func() {
		s.mu.Lock()
		delete(s.active, id)
		s.mu.Unlock()
	}, nil
}

// CreateMeeting stores a meeting definition. Roles without a prompt of their
// own get the configured default prompt.
func (s *MeetingService) CreateMeeting(ctx context.Context, cmd CreateMeetingCommand) (domain.Meeting, error) {
	cfg := cmd.Config
	if err := cfg.Validate(); err != nil {
		return domain.Meeting{}, err
	}

	cfg.RolePrompts = maps.Clone(cfg.RolePrompts)
	defaults := s.prompts().Roles
	for _, role := range cfg.Roles {
		if domain.LookupRolePrompt(cfg.RolePrompts, role) != "" {
			continue
		}
		if prompt := domain.LookupRolePrompt(defaults, role); prompt != "" {
			if cfg.RolePrompts == nil {
				cfg.RolePrompts = map[string]string{}
			}
			cfg.RolePrompts[role] = prompt
		}
	}

	title := strings.TrimSpace(cfg.Title)
	if title == "" {
		title = cfg.Topic
	}

	meeting := domain.Meeting{
		ID:        domain.NewMeetingID(),
		Title:     title,
		Config:    cfg,
		CreatedAt: s.clock.Now(),
	}
	if err := s.meetings.Save(ctx, meeting); err != nil {
		return domain.Meeting{}, fmt.Errorf("save meeting: %w", err)
	}
	s.logger.Info("meeting created", "meeting_id", string(meeting.ID), "roles", len(cfg.Roles))

	return meeting, nil
}

// StartRun snapshots the merged configuration into a new run and executes it
// from round 1.
func (s *MeetingService) StartRun(ctx context.Context, cmd StartRunCommand) (RunResult, error) {
	meeting, err := s.meetings.GetByID(ctx, cmd.MeetingID)
	if err != nil {
		return RunResult{}, fmt.Errorf("get meeting: %w", err)
	}

	cfg, err := MergeConfig(meeting.Config, cmd.Overrides)
	if err != nil {
		return RunResult{}, err
	}
	if err := cfg.Validate(); err != nil {
		return RunResult{}, err
	}

	run := domain.Run{
		ID:        domain.NewRunID(),
		MeetingID: meeting.ID,
		Status:    domain.RunStatusRunning,
		Config:    cfg,
		StartedAt: s.clock.Now(),
	}
	release, err := s.claim(run.ID)
	if err != nil {
		return RunResult{}, err
	}
	defer release()

	if err := s.store.CreateRun(ctx, run); err != nil {
		return RunResult{}, fmt.Errorf("create run: %w", err)
	}
	s.logger.Info("run started", "meeting_id", string(meeting.ID), "run_id", string(run.ID))

	outcome, runErr := s.orchestrator.Run(ctx, run, s.prompts(), 1)

	return s.result(ctx, run, outcome, runErr)
}

// Resume re-enters a paused run. Only a PAUSED run whose latest pause has
// not been answered yet can resume, and a token that does not match that
// pause is rejected before anything is written.
func (s *MeetingService) Resume(ctx context.Context, cmd ResumeCommand) (RunResult, error) {
	release, err := s.claim(cmd.RunID)
	if err != nil {
		return RunResult{}, err
	}
	defer release()

	run, err := s.store.GetRun(ctx, cmd.RunID)
	if err != nil {
		return RunResult{}, fmt.Errorf("get run: %w", err)
	}
	if run.Status.Terminal() {
		return RunResult{}, fmt.Errorf("resume run %s: %w", run.ID, domain.ErrRunFinished)
	}
	if run.Status != domain.RunStatusPaused {
		return RunResult{}, fmt.Errorf("resume run %s in status %s: %w", run.ID, run.Status, domain.ErrInvalidTransition)
	}

	events, err := s.store.Replay(ctx, run.ID)
	if err != nil {
		return RunResult{}, fmt.Errorf("replay run events: %w", err)
	}
	if PauseConsumed(events) {
		return RunResult{}, fmt.Errorf("resume run %s: pause already answered: %w", run.ID, domain.ErrInvalidResumeToken)
	}
	if pause, ok := LatestPause(events); ok && pause.ResumeToken != cmd.Token {
		return RunResult{}, domain.ErrInvalidResumeToken
	}

	answers := cmd.Answers
	if answers == nil {
		answers = map[string]any{}
	}
	resume := domain.NewEvent(run.ID, domain.ActorUser, s.clock.Now().UnixMilli(), domain.ResumePayload{
		ResumeToken: cmd.Token,
		Answers:     answers,
	})
	if _, err := s.store.Append(ctx, resume); err != nil {
		return RunResult{}, fmt.Errorf("append resume event: %w", err)
	}
	if err := s.store.SetRunStatus(ctx, run.ID, domain.RunStatusRunning, s.clock.Now()); err != nil {
		return RunResult{}, fmt.Errorf("set run running: %w", err)
	}
	run.Status = domain.RunStatusRunning

	next := NextRound(events)
	s.logger.Info("run resumed", "run_id", string(run.ID), "next_round", next)
	outcome, runErr := s.orchestrator.Run(ctx, run, s.prompts(), next)

	return s.result(ctx, run, outcome, runErr)
}

// AddUserMessage appends a user message to the run's public transcript.
func (s *MeetingService) AddUserMessage(ctx context.Context, cmd AddMessageCommand) (domain.Event, error) {
	if _, err := s.store.GetRun(ctx, cmd.RunID); err != nil {
		return domain.Event{}, fmt.Errorf("get run: %w", err)
	}

	now := s.clock.Now().UnixMilli()
	message := domain.Message{
		Role:    domain.MessageRoleUser,
		Content: cmd.Content,
		Name:    userMessageName,
		TSMs:    now,
	}
	if err := message.Validate(); err != nil {
		return domain.Event{}, err
	}

	stored, err := s.store.Append(ctx, domain.NewEvent(cmd.RunID, domain.ActorUser, now, domain.AgentMessagePayload{
		Message:   message,
		MessageID: domain.NewMessageID(),
	}))
	if err != nil {
		return domain.Event{}, fmt.Errorf("append user message: %w", err)
	}

	return stored, nil
}

func (s *MeetingService) GetMeeting(ctx context.Context, id domain.MeetingID) (domain.Meeting, error) {
	meeting, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return domain.Meeting{}, fmt.Errorf("get meeting: %w", err)
	}

	return meeting, nil
}

func (s *MeetingService) ListMeetings(ctx context.Context, limit int) ([]domain.Meeting, error) {
	meetings, err := s.meetings.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}

	return meetings, nil
}

func (s *MeetingService) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
	if filter.MeetingID != "" {
		if _, err := s.GetMeeting(ctx, filter.MeetingID); err != nil {
			return nil, err
		}
	}

	runs, err := s.store.ListRuns(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	return runs, nil
}

func (s *MeetingService) GetRun(ctx context.Context, id domain.RunID) (RunView, error) {
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return RunView{}, fmt.Errorf("get run: %w", err)
	}

	artifacts, err := s.store.ListArtifacts(ctx, id)
	if err != nil {
		return RunView{}, fmt.Errorf("list artifacts: %w", err)
	}

	return RunView{Run: run, Artifacts: artifacts}, nil
}

// Events reads a run's log: the last Tail events, the events after a cursor,
// or the full history, optionally without token events.
func (s *MeetingService) Events(ctx context.Context, query EventQuery) ([]domain.Event, error) {
	if _, err := s.store.GetRun(ctx, query.RunID); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	var (
		events []domain.Event
		err    error
	)
	switch {
	case query.Tail > 0:
		events, err = s.store.Tail(ctx, query.RunID, query.Tail)
	case query.After > 0:
		events, err = s.store.After(ctx, query.RunID, query.After, query.Limit)
	default:
		events, err = s.store.Replay(ctx, query.RunID)
	}
	if err != nil {
		return nil, fmt.Errorf("read run events: %w", err)
	}

	if !query.IncludeTokens {
		events = WithoutTokens(events)
	}

	return events, nil
}

func (s *MeetingService) Summaries(ctx context.Context, runID domain.RunID) ([]domain.Artifact, error) {
	if _, err := s.store.GetRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	summaries, err := s.store.ListSummaries(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}

	return summaries, nil
}

// Memories returns the latest snapshot per role, or only the given role's.
func (s *MeetingService) Memories(ctx context.Context, runID domain.RunID, role string) ([]domain.RoleMemory, error) {
	if _, err := s.store.GetRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	if role == "" {
		memories, err := s.store.ListMemories(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("list memories: %w", err)
		}
		return memories, nil
	}

	memory, _, err := s.store.LatestMemory(ctx, runID, role)
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}

	return []domain.RoleMemory{{Role: role, Memory: memory}}, nil
}

func (s *MeetingService) result(ctx context.Context, run domain.Run, outcome RunOutcome, runErr error) (RunResult, error) {
	result := RunResult{Run: run, Outcome: outcome}
	readCtx := context.WithoutCancel(ctx)

	view, err := s.GetRun(readCtx, run.ID)
	if err != nil {
		return result, errors.Join(runErr, err)
	}
	result.Run = view.Run
	result.Artifacts = view.Artifacts

	return result, runErr
}
