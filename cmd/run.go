package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/yoke233/metting/internal/application"
	"github.com/yoke233/metting/internal/domain"
)

func newRunCmd(app *app) *cobra.Command {
	var configPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create a meeting from a config file and run it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadMeetingConfig(configPath)
			if err != nil {
				return err
			}

			service, _, err := app.meetings(cmd.Context())
			if err != nil {
				return err
			}

			meeting, err := service.CreateMeeting(cmd.Context(), application.CreateMeetingCommand{Config: cfg})
			if err != nil {
				return err
			}

			var result application.RunResult
			runErr := execute(cmd, asJSON, "meeting run", func(ctx context.Context) error {
				var err error
				result, err = service.StartRun(ctx, application.StartRunCommand{MeetingID: meeting.ID})
				return err
			})

			return errors.Join(writeRunResult(cmd, app, service, result, asJSON), runErr)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Meeting config file (.yaml, .yml or .json)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func newResumeCmd(app *app) *cobra.Command {
	var runID string
	var answersPath string
	var token string
	var answerPairs []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused run with answers to its questions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resume := resumeInput{Answers: map[string]any{}}
			if answersPath != "" {
				loaded, err := loadResumeInput(answersPath)
				if err != nil {
					return err
				}
				resume = loaded
			}
			if token != "" {
				resume.Token = token
			}
			for _, pair := range answerPairs {
				key, value, err := parseAnswer(pair)
				if err != nil {
					return err
				}
				resume.Answers[key] = value
			}

			service, _, err := app.meetings(cmd.Context())
			if err != nil {
				return err
			}

			var result application.RunResult
			runErr := execute(cmd, asJSON, "meeting resume", func(ctx context.Context) error {
				var err error
				result, err = service.Resume(ctx, application.ResumeCommand{
					RunID:   domain.RunID(runID),
					Token:   resume.Token,
					Answers: resume.Answers,
				})
				return err
			})

			return errors.Join(writeRunResult(cmd, app, service, result, asJSON), runErr)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID")
	cmd.Flags().StringVar(&answersPath, "answers", "", "File with resume_token and answers (.yaml, .yml or .json)")
	cmd.Flags().StringVar(&token, "token", "", "Resume token from the pause")
	cmd.Flags().StringArrayVar(&answerPairs, "answer", nil, "Answer as key=value (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

// execute shows a spinner only when stderr is a terminal and output is not
// JSON.
func execute(cmd *cobra.Command, asJSON bool, label string, work func(context.Context) error) error {
	if asJSON || !isTerminal(cmd.ErrOrStderr()) {
		return work(cmd.Context())
	}

	return runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), label, work)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}

func loadMeetingConfig(path string) (domain.MeetingConfig, error) {
	var cfg domain.MeetingConfig
	if err := decodeFile(path, &cfg); err != nil {
		return domain.MeetingConfig{}, fmt.Errorf("load meeting config: %w", err)
	}

	return cfg, nil
}

type resumeInput struct {
	Token   string         `json:"resume_token" yaml:"resume_token"`
	Answers map[string]any `json:"answers" yaml:"answers"`
}

func loadResumeInput(path string) (resumeInput, error) {
	var input resumeInput
	if err := decodeFile(path, &input); err != nil {
		return resumeInput{}, fmt.Errorf("load resume answers: %w", err)
	}
	if input.Answers == nil {
		input.Answers = map[string]any{}
	}

	return input, nil
}

func decodeFile(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, target); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, target); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported file type %q (use .yaml, .yml or .json)", filepath.Ext(path))
	}

	return nil
}

// parseAnswer splits key=value. The value is read as a YAML scalar so numbers
// and booleans keep their type.
func parseAnswer(pair string) (string, any, error) {
	key, raw, ok := strings.Cut(pair, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, fmt.Errorf("invalid answer %q (expected key=value)", pair)
	}

	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
		return key, raw, nil
	}

	return key, value, nil
}
