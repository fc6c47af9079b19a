package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yoke233/metting/internal/adapters/stream"
	"github.com/yoke233/metting/internal/application"
	"github.com/yoke233/metting/internal/domain"
)

func newReplayCmd(app *app) *cobra.Command {
	var runID string
	var includeTokens bool
	var tail int
	var afterID int64
	var follow bool

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Print a run's events as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, store, err := app.meetings(cmd.Context())
			if err != nil {
				return err
			}

			if follow {
				if _, err := service.GetRun(cmd.Context(), domain.RunID(runID)); err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				cursor := stream.Cursor{Tail: tail}
				if cmd.Flags().Changed("after") {
					cursor.AfterID = &afterID
				}
				sink := &lineSink{w: cmd.OutOrStdout(), includeTokens: includeTokens}
				return stream.NewPoller(store, app.logger).Follow(ctx, domain.RunID(runID), cursor, sink)
			}

			events, err := service.Events(cmd.Context(), application.EventQuery{
				RunID:         domain.RunID(runID),
				IncludeTokens: includeTokens,
				Tail:          tail,
				After:         afterID,
			})
			if err != nil {
				return err
			}

			sink := &lineSink{w: cmd.OutOrStdout(), includeTokens: true}
			for _, event := range events {
				if err := sink.Event(event); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID")
	cmd.Flags().BoolVar(&includeTokens, "include-tokens", false, "Include streamed token events")
	cmd.Flags().IntVar(&tail, "tail", 0, "Only the last N events")
	cmd.Flags().Int64Var(&afterID, "after", 0, "Only events after this event ID")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep polling for new events until interrupted")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func newMessageCmd(app *app) *cobra.Command {
	var runID string
	var content string

	cmd := &cobra.Command{
		Use:   "message",
		Short: "Add a user message to a run's transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, _, err := app.meetings(cmd.Context())
			if err != nil {
				return err
			}

			event, err := service.AddUserMessage(cmd.Context(), application.AddMessageCommand{
				RunID:   domain.RunID(runID),
				Content: content,
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "message added as event %d\n", event.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID")
	cmd.Flags().StringVar(&content, "content", "", "Message text")
	_ = cmd.MarkFlagRequired("run")
	_ = cmd.MarkFlagRequired("content")

	return cmd
}

// lineSink writes one JSON envelope per line.
type lineSink struct {
	w             io.Writer
	includeTokens bool
}

var _ stream.Sink = (*lineSink)(nil)

func (s *lineSink) Event(event domain.Event) error {
	if !s.includeTokens && event.Type == domain.EventToken {
		return nil
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %d: %w", event.ID, err)
	}
	_, err = fmt.Fprintln(s.w, string(line))

	return err
}

func (s *lineSink) KeepAlive() error {
	return nil
}
