package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yoke233/metting/internal/domain"
)

func newStatusCmd(app *app) *cobra.Command {
	var runID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a run's progress, pause questions and artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, _, err := app.meetings(cmd.Context())
			if err != nil {
				return err
			}

			status, err := service.Status(cmd.Context(), domain.RunID(runID))
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), statusOutput{
					runOutput: runOutput{
						MeetingID: status.Run.MeetingID,
						RunID:     status.Run.ID,
						Status:    status.Run.Status,
						Rounds:    status.Rounds,
						Pause:     status.Pause,
						Artifacts: nonNilArtifacts(status.Artifacts),
					},
					Events:    status.Events,
					Metric:    status.Metric,
					LastError: status.LastError,
				})
			}

			return writeStatus(cmd, app, status)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

type statusOutput struct {
	runOutput
	Events    int                   `json:"events"`
	Metric    *domain.MetricPayload `json:"metric,omitempty"`
	LastError *domain.ErrorPayload  `json:"last_error,omitempty"`
}

func nonNilArtifacts(artifacts []domain.Artifact) []domain.Artifact {
	if artifacts == nil {
		return []domain.Artifact{}
	}

	return artifacts
}
