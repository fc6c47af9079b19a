package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yoke233/metting/internal/domain"
)

const (
	stageRoundSummary   = "round_summary"
	stageRecorderOutput = "recorder_output"
)

// recorderRequest builds a private Recorder turn over the public transcript.
func (o *Orchestrator) recorderRequest(s *session, round int, instructions, task string, historyLimit int) turnRequest {
	limits := s.limits
	limits.ValidateRoleOutput = false
	limits.HistoryMaxMessages = historyLimit

	scope := turnScope{
		meetingID: s.run.MeetingID,
		runID:     s.run.ID,
		round:     round,
		mode:      domain.ContextModeShared,
		public:    s.public,
		task:      task,
		limits:    limits,
	}

	return turnRequest{execution: buildContext(scope, domain.RecorderRole, instructions, nil)}
}

// summarizeRound asks the Recorder for a structured recap of the round. A
// recap that fails validation is logged as an error event and skipped.
func (o *Orchestrator) summarizeRound(ctx context.Context, s *session, round int) error {
	recorderPrompt := s.cfg.RolePrompt(domain.RecorderRole, s.prompts.Roles)
	req := o.recorderRequest(s, round,
		s.prompts.SummaryInstructions(recorderPrompt),
		domain.SummaryTask(s.task, round),
		s.limits.HistoryMaxMessages,
	)

	result, err := o.turns.execute(ctx, req)
	if err != nil {
		return &turnError{speaker: domain.RecorderRole, err: err}
	}
	if strings.TrimSpace(result.text) == "" {
		return nil
	}

	content, err := domain.ParseRoundSummary(result.text, round)
	if err != nil {
		s.logger.Warn("round summary rejected", "round", round, "error", err.Error())
		return o.emit(ctx, s.run.ID, domain.ActorRecorder, domain.ErrorPayload{
			Message: err.Error(),
			Stage:   stageRoundSummary,
		})
	}

	artifact, err := domain.NewArtifact(s.run.ID, domain.ArtifactSummary, domain.VersionV2, content, o.nowMs())
	if err != nil {
		return fmt.Errorf("build round summary artifact: %w", err)
	}
	if err := o.store.SaveArtifact(ctx, artifact); err != nil {
		return fmt.Errorf("save round summary: %w", err)
	}
	if err := o.emit(ctx, s.run.ID, domain.ActorRecorder, domain.SummaryWrittenPayload{Round: round, Content: artifact.Content}); err != nil {
		return err
	}
	s.summaries = append(s.summaries, artifact)

	return nil
}

// finish runs the closing Recorder turn, writes ADR, TASKS, RISKS and the
// flowchart, and marks the run DONE. Sections the Recorder got wrong fall
// back to defaults one by one.
func (o *Orchestrator) finish(ctx context.Context, s *session, lastRound int) error {
	recorderPrompt := s.cfg.RolePrompt(domain.RecorderRole, s.prompts.Roles)
	req := o.recorderRequest(s, lastRound+1,
		s.prompts.RecorderInstructions(recorderPrompt),
		s.task,
		s.cfg.RecorderHistoryLimit(),
	)

	result, err := o.turns.execute(ctx, req)
	if err != nil {
		return &turnError{speaker: domain.RecorderRole, err: err}
	}

	text := result.text
	if strings.TrimSpace(text) != "" {
		if err := o.writeRecorderText(ctx, s, text); err != nil {
			return err
		}
	}

	record, parseErrs := domain.ParseRecorderOutput(text)
	for _, parseErr := range parseErrs {
		s.logger.Warn("recorder output rejected", "error", parseErr.Error())
		failure := domain.ErrorPayload{Message: parseErr.Error(), Stage: stageRecorderOutput}
		if err := o.emit(ctx, s.run.ID, domain.ActorRecorder, failure); err != nil {
			return err
		}
	}
	record, err = record.WithDefaults(s.task)
	if err != nil {
		return fmt.Errorf("fill default artifacts: %w", err)
	}

	flowchart := domain.GenerateFlowchart(s.cfg.Roles, s.steps, lastRound)
	closing := []struct {
		artifactType domain.ArtifactType
		content      any
	}{
		{domain.ArtifactADR, record.ADR},
		{domain.ArtifactTasks, record.Tasks},
		{domain.ArtifactRisks, record.Risks},
		{domain.ArtifactFlowchart, flowchart},
	}
	for _, item := range closing {
		if err := o.writeArtifact(ctx, s, item.artifactType, domain.VersionV1, item.content, domain.ActorRecorder); err != nil {
			return err
		}
	}

	if err := o.store.SetRunStatus(ctx, s.run.ID, domain.RunStatusDone, o.clock.Now()); err != nil {
		return fmt.Errorf("set run done: %w", err)
	}

	return o.emit(ctx, s.run.ID, domain.ActorOrchestrator, domain.FinishedPayload{Status: domain.RunStatusDone, Rounds: lastRound})
}

func (o *Orchestrator) writeRecorderText(ctx context.Context, s *session, text string) error {
	artifact, err := domain.NewArtifact(s.run.ID, domain.ArtifactSummary, domain.VersionV1, map[string]string{"text": text}, o.nowMs())
	if err != nil {
		return fmt.Errorf("build recorder summary: %w", err)
	}
	if err := o.store.SaveArtifact(ctx, artifact); err != nil {
		return fmt.Errorf("save recorder summary: %w", err)
	}

	encoded, err := json.Marshal(text)
	if err != nil {
		return fmt.Errorf("encode recorder summary: %w", err)
	}

	return o.emit(ctx, s.run.ID, domain.ActorRecorder, domain.SummaryWrittenPayload{Content: encoded})
}
