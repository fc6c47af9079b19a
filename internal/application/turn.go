package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/logging"
	"github.com/yoke233/metting/internal/ports"
)

const stageRoleOutputValidation = "role_output_validation"

// turnRequest is one speaker turn. Repair allows a single retry with the
// repair prompt when the answer fails validation; the retry never repairs.
type turnRequest struct {
	execution domain.ExecutionContext
	capture   bool
	repair    bool
}

func (r turnRequest) repaired(invalidOutput string) turnRequest {
	retry := r
	retry.repair = false
	retry.execution.SystemInstructions = domain.RepairInstructions(r.execution.SystemInstructions, r.execution.Limits.RoleRepairPrompt)
	retry.execution.Task = domain.RepairTask(r.execution.Task, invalidOutput)
	retry.execution.Limits.ValidateRoleOutput = true
	retry.execution.Limits.RoleRepairPrompt = ""

	return retry
}

type turnResult struct {
	speaker string
	// messages are the captured final messages in the order they arrived.
	messages []domain.Message
	text     string
	output   *domain.RoleOutput
	invalid  bool
}

type turnExecutor struct {
	log    ports.EventLog
	runner ports.AgentRunner
	clock  ports.Clock
	logger *logging.Logger
}

func (e *turnExecutor) execute(ctx context.Context, req turnRequest) (turnResult, error) {
	first, err := e.attempt(ctx, req)
	if err != nil || !first.invalid || !req.repair {
		return first, err
	}

	e.logger.Info("retrying turn with repair prompt", "speaker", req.execution.Speaker)
	retry, err := e.attempt(ctx, req.repaired(first.text))
	retry.messages = append(first.messages, retry.messages...)

	return retry, err
}

// attempt streams one runner call into the log and validates the answer.
func (e *turnExecutor) attempt(ctx context.Context, req turnRequest) (turnResult, error) {
	execution := req.execution
	result := turnResult{speaker: execution.Speaker}
	if err := execution.Validate(); err != nil {
		return result, fmt.Errorf("build turn context: %w", err)
	}

	for event, err := range e.runner.Run(ctx, execution) {
		if err != nil {
			return result, fmt.Errorf("run turn for %s: %w", execution.Speaker, err)
		}
		if event.RunID == "" {
			event.RunID = execution.RunID
		}

		if payload, ok := event.Payload.(domain.AgentMessagePayload); ok {
			if !req.capture {
				payload.Private = true
				event.Payload = payload
			}
			if req.capture && payload.Message.Content != "" {
				result.messages = append(result.messages, payload.Message)
			}
			result.text = payload.Message.Content
		}

		if _, err := e.log.Append(ctx, event); err != nil {
			return result, fmt.Errorf("append %s event: %w", event.Type, err)
		}
	}

	if strings.TrimSpace(result.text) == "" || !execution.Limits.ValidateRoleOutput {
		return result, nil
	}

	output, err := domain.ParseRoleOutput(result.text)
	if err == nil {
		result.output = &output
		return result, nil
	}

	result.invalid = true
	e.logger.Warn("role output failed validation", "speaker", execution.Speaker, "error", err.Error())
	failure := domain.NewEvent(execution.RunID, domain.ActorValidator, e.clock.Now().UnixMilli(), domain.ErrorPayload{
		Message: err.Error(),
		Stage:   stageRoleOutputValidation,
		Speaker: execution.Speaker,
	})
	if _, err := e.log.Append(ctx, failure); err != nil {
		return result, fmt.Errorf("append validation error event: %w", err)
	}

	return result, nil
}
