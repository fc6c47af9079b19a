package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/yoke233/metting/internal/adapters/render/status"
	"github.com/yoke233/metting/internal/application"
	"github.com/yoke233/metting/internal/domain"
)

type runOutput struct {
	MeetingID domain.MeetingID     `json:"meeting_id"`
	RunID     domain.RunID         `json:"run_id"`
	Status    domain.RunStatus     `json:"status"`
	Rounds    int                  `json:"rounds"`
	Pause     *domain.PausePayload `json:"pause,omitempty"`
	Artifacts []domain.Artifact    `json:"artifacts"`
}

type runListItem struct {
	RunID     domain.RunID     `json:"run_id"`
	MeetingID domain.MeetingID `json:"meeting_id"`
	Status    domain.RunStatus `json:"status"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   *time.Time       `json:"ended_at,omitempty"`
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(value)
}

func newRunOutput(result application.RunResult) runOutput {
	return runOutput{
		MeetingID: result.Run.MeetingID,
		RunID:     result.Run.ID,
		Status:    result.Run.Status,
		Rounds:    result.Outcome.Rounds,
		Pause:     result.Outcome.Pause,
		Artifacts: nonNilArtifacts(result.Artifacts),
	}
}

func newRunListItem(run domain.Run) runListItem {
	item := runListItem{
		RunID:     run.ID,
		MeetingID: run.MeetingID,
		Status:    run.Status,
		StartedAt: run.StartedAt,
	}
	if !run.EndedAt.IsZero() {
		ended := run.EndedAt
		item.EndedAt = &ended
	}

	return item
}

// writeRunResult prints a finished, paused or failed run either as JSON or as
// the rendered status view.
func writeRunResult(cmd *cobra.Command, app *app, service *application.MeetingService, result application.RunResult, asJSON bool) error {
	if result.Run.ID == "" {
		return nil
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), newRunOutput(result))
	}

	status, err := service.Status(cmd.Context(), result.Run.ID)
	if err != nil {
		return err
	}

	return writeStatus(cmd, app, status)
}

func writeStatus(cmd *cobra.Command, app *app, status application.RunStatus) error {
	rendered, err := app.statusRenderer(status, statusadapter.RenderOptions{Now: app.now()})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	if _, err := fmt.Fprintln(cmd.OutOrStdout(), rendered); err != nil {
		return err
	}
	if status.Pause != nil {
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "\nresume with: meeting resume --run %s --token %s --answer key=value\n", status.Run.ID, status.Pause.ResumeToken)
	}

	return err
}
