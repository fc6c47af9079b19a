package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yoke233/metting/internal/domain"
)

const defaultListLimit = 100

func newMeetingsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meetings",
		Short: "Inspect stored meetings",
	}

	cmd.AddCommand(newMeetingsListCmd(app))

	return cmd
}

func newMeetingsListCmd(app *app) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meetings, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, _, err := app.meetings(cmd.Context())
			if err != nil {
				return err
			}

			meetings, err := service.ListMeetings(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if asJSON {
				if meetings == nil {
					meetings = []domain.Meeting{}
				}
				return writeJSON(cmd.OutOrStdout(), meetings)
			}
			if len(meetings) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No meetings yet.")
				return err
			}

			for _, meeting := range meetings {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", meeting.ID, meeting.Title, meeting.CreatedAt.Format(time.RFC3339))
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultListLimit, "Maximum number of meetings")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func newRunsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs",
	}

	cmd.AddCommand(newRunsListCmd(app))

	return cmd
}

func newRunsListCmd(app *app) *cobra.Command {
	var meetingID string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, _, err := app.meetings(cmd.Context())
			if err != nil {
				return err
			}

			runs, err := service.ListRuns(cmd.Context(), domain.RunFilter{MeetingID: domain.MeetingID(meetingID), Limit: limit})
			if err != nil {
				return err
			}

			if asJSON {
				items := make([]runListItem, 0, len(runs))
				for _, run := range runs {
					items = append(items, newRunListItem(run))
				}
				return writeJSON(cmd.OutOrStdout(), items)
			}
			if len(runs) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No runs yet.")
				return err
			}

			for _, run := range runs {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", run.ID, run.MeetingID, run.Status, run.StartedAt.Format(time.RFC3339))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&meetingID, "meeting", "", "Only runs of this meeting")
	cmd.Flags().IntVar(&limit, "limit", defaultListLimit, "Maximum number of runs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
