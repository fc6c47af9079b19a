package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/logging"
	"github.com/yoke233/metting/internal/ports"
)

const (
	stageRunner       = "runner"
	stageOrchestrator = "orchestrator"

	roundModeParallel   = "parallel"
	roundModeSequential = "sequential"

	pauseReasonMissingInfo = "missing_info"
	suggestedNextAnswer    = "answer_questions"
)

// RunOutcome is where a call to Orchestrator.Run left the run.
type RunOutcome struct {
	Status domain.RunStatus
	Rounds int
	Pause  *domain.PausePayload
}

// Orchestrator drives the round loop of a single run. It holds no per-run
// state between calls; everything is rebuilt from the event log.
type Orchestrator struct {
	store  ports.RunStore
	clock  ports.Clock
	logger *logging.Logger
	turns  *turnExecutor
}

func NewOrchestrator(store ports.RunStore, runner ports.AgentRunner, clock ports.Clock, logger *logging.Logger) *Orchestrator {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	return &Orchestrator{
		store:  store,
		clock:  clock,
		logger: logger,
		turns:  &turnExecutor{log: store, runner: runner, clock: clock, logger: logger},
	}
}

// session is the in-memory view of a run while the loop is active.
type session struct {
	run       domain.Run
	cfg       domain.MeetingConfig
	prompts   domain.Prompts
	term      domain.TerminationConfig
	mode      domain.ContextMode
	task      string
	limits    domain.Limits
	public    []domain.Message
	summaries []domain.Artifact
	latest    map[string]domain.RoleOutput
	steps     []domain.FlowStep
	logger    *logging.Logger
}

// turnError ties a runner failure to the speaker whose turn failed.
type turnError struct {
	speaker string
	err     error
}

func (e *turnError) Error() string { return e.err.Error() }
func (e *turnError) Unwrap() error { return e.err }

// Run executes rounds from startRound until termination, a configured pause
// or a failure, then extracts the closing record. Prompts are used as given
// for the whole call.
func (o *Orchestrator) Run(ctx context.Context, run domain.Run, prompts domain.Prompts, startRound int) (RunOutcome, error) {
	if err := ctx.Err(); err != nil {
		return RunOutcome{}, err
	}

	s, err := o.openSession(ctx, run, prompts)
	if err != nil {
		return RunOutcome{}, err
	}

	startRound = max(startRound, 1)
	lastRound := startRound - 1
	s.logger.Info("run loop started", "start_round", startRound, "max_rounds", s.term.MaxRounds, "mode", string(s.mode))

	for round := startRound; round <= s.term.MaxRounds; round++ {
		lastRound = round
		stop, pause, err := o.runRound(ctx, s, round)
		if err != nil {
			return o.fail(ctx, s, round, err)
		}
		if pause != nil {
			s.logger.Info("run paused", "round", round, "resume_token", pause.ResumeToken)
			return RunOutcome{Status: domain.RunStatusPaused, Rounds: round, Pause: pause}, nil
		}
		if stop {
			break
		}
	}

	if err := o.finish(ctx, s, lastRound); err != nil {
		return o.fail(ctx, s, lastRound+1, err)
	}
	s.logger.Info("run finished", "rounds", lastRound)

	return RunOutcome{Status: domain.RunStatusDone, Rounds: lastRound}, nil
}

func (o *Orchestrator) openSession(ctx context.Context, run domain.Run, prompts domain.Prompts) (*session, error) {
	events, err := o.store.Replay(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("replay run events: %w", err)
	}

	cfg := run.Config
	s := &session{
		run:     run,
		cfg:     cfg,
		prompts: prompts.Clone(),
		term:    cfg.TerminationConfig(),
		mode:    cfg.Mode(),
		task:    cfg.UserTask(),
		limits: domain.Limits{
			Roles:              cfg.Roles,
			ValidateRoleOutput: true,
			RoleRepairPrompt:   prompts.RoleRepair,
			HistoryMaxMessages: cfg.HistoryLimit(),
		},
		public: PublicMessages(events),
		latest: LatestRoleOutputs(events, cfg.Participants()),
		steps:  FlowSteps(events),
		logger: o.logger.WithRun(string(run.ID)),
	}

	if s.mode == domain.ContextModeLayered {
		summaries, err := o.store.ListSummaries(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("list round summaries: %w", err)
		}
		s.summaries = summaries
	}

	return s, nil
}

func (o *Orchestrator) runRound(ctx context.Context, s *session, round int) (bool, *domain.PausePayload, error) {
	logger := s.logger.WithRound(round)
	speakers := SelectSpeakers(s.cfg, round)
	strategy := s.cfg.Strategy()

	roundMode := roundModeSequential
	if s.cfg.ParallelMode {
		roundMode = roundModeParallel
	}
	if err := o.emit(ctx, s.run.ID, domain.ActorOrchestrator, domain.RoundStartedPayload{Round: round, Mode: roundMode}); err != nil {
		return false, nil, err
	}

	var single *string
	if len(speakers) == 1 {
		single = &speakers[0]
	}
	selected := domain.SpeakerSelectedPayload{Speaker: single, Speakers: speakers, Round: round, Strategy: strategy}
	if err := o.emit(ctx, s.run.ID, domain.ActorOrchestrator, selected); err != nil {
		return false, nil, err
	}
	s.steps = append(s.steps, domain.FlowStep{Round: round, Speakers: speakers})
	logger.Info("speakers selected", "speakers", strings.Join(speakers, ","), "strategy", string(strategy))

	scope := turnScope{
		meetingID: s.run.MeetingID,
		runID:     s.run.ID,
		round:     round,
		mode:      s.mode,
		public:    s.public,
		summaries: summaryMessages(s.summaries, s.cfg.SummaryWindow()),
		task:      s.task,
		limits:    s.limits,
	}

	requests := make([]turnRequest, 0, len(speakers))
	for _, speaker := range speakers {
		req, err := o.speakerRequest(ctx, s, scope, speaker)
		if err != nil {
			return false, nil, err
		}
		requests = append(requests, req)
	}

	results, err := o.fanOut(ctx, requests)
	if err != nil {
		return false, nil, err
	}

	roundOutputs := map[string]domain.RoleOutput{}
	for _, result := range results {
		s.public = append(s.public, result.messages...)
		if result.output == nil {
			continue
		}
		s.latest[result.speaker] = *result.output
		roundOutputs[result.speaker] = *result.output
		if s.mode == domain.ContextModeLayered && !domain.IsRecorder(result.speaker) {
			if err := o.mergeMemory(ctx, s, result.speaker, *result.output); err != nil {
				return false, nil, err
			}
		}
	}

	if s.cfg.PauseOnRound > 0 && s.cfg.PauseOnRound == round {
		pause, err := o.pause(ctx, s)
		return false, pause, err
	}

	if s.mode == domain.ContextModeLayered && strings.TrimSpace(s.prompts.RoundSummary) != "" {
		if err := o.summarizeRound(ctx, s, round); err != nil {
			return false, nil, err
		}
	}

	var consensus *domain.ConsensusResult
	if s.cfg.ParallelMode {
		result, err := o.writeConsensus(ctx, s, round, roundOutputs)
		if err != nil {
			return false, nil, err
		}
		consensus = &result
	}

	convergence := domain.MeasureConvergence(s.latest, s.term)
	if err := o.emit(ctx, s.run.ID, domain.ActorSystem, domain.NewMetricPayload(convergence, consensus)); err != nil {
		return false, nil, err
	}

	stop := domain.ShouldStop(round, false, convergence.OpenQuestions, convergence.Disagreements, s.term)
	logger.Debug("round evaluated",
		"open_questions", convergence.OpenQuestions,
		"disagreements", convergence.Disagreements,
		"stop", stop,
	)

	return stop, nil, nil
}

func (o *Orchestrator) speakerRequest(ctx context.Context, s *session, scope turnScope, speaker string) (turnRequest, error) {
	instructions := s.prompts.SpeakerInstructions(speaker, s.cfg.RolePrompt(speaker, s.prompts.Roles))
	if domain.IsRecorder(speaker) {
		scope.limits.ValidateRoleOutput = false
	}

	var memory *domain.Memory
	if s.mode == domain.ContextModeLayered {
		stored, _, err := o.store.LatestMemory(ctx, s.run.ID, speaker)
		if err != nil {
			return turnRequest{}, fmt.Errorf("load memory for %s: %w", speaker, err)
		}
		memory = &stored
	}

	return turnRequest{
		execution: buildContext(scope, speaker, instructions, memory),
		capture:   true,
		repair:    scope.limits.ValidateRoleOutput && strings.TrimSpace(scope.limits.RoleRepairPrompt) != "",
	}, nil
}

// fanOut runs every request against the same round snapshot and waits for
// all of them. Results keep the request order.
func (o *Orchestrator) fanOut(ctx context.Context, requests []turnRequest) ([]turnResult, error) {
	results := make([]turnResult, len(requests))
	if len(requests) == 1 {
		result, err := o.turns.execute(ctx, requests[0])
		if err != nil {
			return nil, &turnError{speaker: requests[0].execution.Speaker, err: err}
		}
		results[0] = result
		return results, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i, req := range requests {
		group.Go(func() error {
			result, err := o.turns.execute(groupCtx, req)
			if err != nil {
				return &turnError{speaker: req.execution.Speaker, err: err}
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (o *Orchestrator) mergeMemory(ctx context.Context, s *session, role string, output domain.RoleOutput) error {
	existing, _, err := o.store.LatestMemory(ctx, s.run.ID, role)
	if err != nil {
		return fmt.Errorf("load memory for %s: %w", role, err)
	}

	merged := domain.MergeMemory(existing, output, s.cfg.MemoryCap())
	snapshot := domain.RoleMemory{Role: role, Memory: merged, UpdatedMs: o.nowMs()}
	if err := o.store.SaveMemory(ctx, s.run.ID, snapshot); err != nil {
		return fmt.Errorf("save memory for %s: %w", role, err)
	}

	return nil
}

func (o *Orchestrator) pause(ctx context.Context, s *session) (*domain.PausePayload, error) {
	pause := domain.PausePayload{
		PauseReason: pauseReasonMissingInfo,
		Questions: []domain.PauseQuestion{{
			Key:      "qps",
			Ask:      "Peak QPS?",
			Why:      "capacity depends",
			Required: true,
		}},
		ResumeToken:   domain.NewResumeToken(),
		SuggestedNext: suggestedNextAnswer,
	}
	if err := o.emit(ctx, s.run.ID, domain.ActorSystem, pause); err != nil {
		return nil, err
	}
	if err := o.store.SetRunStatus(ctx, s.run.ID, domain.RunStatusPaused, o.clock.Now()); err != nil {
		return nil, fmt.Errorf("set run paused: %w", err)
	}

	return &pause, nil
}

func (o *Orchestrator) writeConsensus(ctx context.Context, s *session, round int, outputs map[string]domain.RoleOutput) (domain.ConsensusResult, error) {
	result := domain.Tally(outputs)
	consensus := domain.NewConsensusArtifact(round, result)
	if err := consensus.Validate(); err != nil {
		return result, fmt.Errorf("validate consensus: %w", err)
	}

	if err := o.writeArtifact(ctx, s, domain.ArtifactConsensus, domain.VersionV1, consensus, domain.ActorOrchestrator); err != nil {
		return result, err
	}

	return result, nil
}

func (o *Orchestrator) writeArtifact(ctx context.Context, s *session, artifactType domain.ArtifactType, version string, content any, actor string) error {
	artifact, err := domain.NewArtifact(s.run.ID, artifactType, version, content, o.nowMs())
	if err != nil {
		return fmt.Errorf("build %s artifact: %w", artifactType, err)
	}
	if err := o.store.SaveArtifact(ctx, artifact); err != nil {
		return fmt.Errorf("save %s artifact: %w", artifactType, err)
	}

	return o.emit(ctx, s.run.ID, actor, domain.ArtifactWrittenPayload{
		ArtifactType: artifact.Type,
		Version:      artifact.Version,
		Content:      artifact.Content,
	})
}

// fail records the failure and marks the run FAILED. The audit writes use a
// context that survives cancellation of the caller's.
func (o *Orchestrator) fail(ctx context.Context, s *session, round int, cause error) (RunOutcome, error) {
	auditCtx := context.WithoutCancel(ctx)
	failure := domain.ErrorPayload{Message: cause.Error(), Stage: stageOrchestrator}
	var turnErr *turnError
	if errors.As(cause, &turnErr) {
		failure.Stage = stageRunner
		failure.Speaker = turnErr.speaker
	}
	s.logger.Error("run failed", "round", round, "stage", failure.Stage, "error", cause.Error())

	var recordErr error
	if err := o.emit(auditCtx, s.run.ID, domain.ActorOrchestrator, failure); err != nil {
		recordErr = errors.Join(recordErr, err)
	}
	if err := o.store.SetRunStatus(auditCtx, s.run.ID, domain.RunStatusFailed, o.clock.Now()); err != nil {
		recordErr = errors.Join(recordErr, fmt.Errorf("set run failed: %w", err))
	}

	outcome := RunOutcome{Status: domain.RunStatusFailed, Rounds: round}
	if recordErr != nil {
		return outcome, fmt.Errorf("run round %d and record failure: %w", round, errors.Join(cause, recordErr))
	}

	return outcome, fmt.Errorf("run round %d: %w", round, cause)
}

func (o *Orchestrator) emit(ctx context.Context, runID domain.RunID, actor string, payload domain.Payload) error {
	if _, err := o.store.Append(ctx, domain.NewEvent(runID, actor, o.nowMs(), payload)); err != nil {
		return fmt.Errorf("append %s event: %w", payload.EventType(), err)
	}

	return nil
}

func (o *Orchestrator) nowMs() int64 {
	return o.clock.Now().UnixMilli()
}
