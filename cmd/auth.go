package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yoke233/metting/internal/adapters/runner/openai"
	"github.com/yoke233/metting/internal/domain"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the OpenAI API key in the secret store",
	}

	cmd.AddCommand(newAuthSetCmd(app), newAuthRemoveCmd(app), newAuthStatusCmd(app))

	return cmd
}

func newAuthSetCmd(app *app) *cobra.Command {
	var apiKey string
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the API key used by the openai runner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fromStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read api key from stdin: %w", err)
				}
				apiKey = line
			}
			apiKey = strings.TrimSpace(apiKey)
			if apiKey == "" {
				return fmt.Errorf("api key is empty: pass --api-key or --stdin")
			}

			if err := app.secrets.Put(cmd.Context(), openai.SecretKey, apiKey); err != nil {
				return fmt.Errorf("store api key: %w", err)
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "api key stored under %s\n", openai.SecretKey)
			return err
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "OpenAI API key")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the API key from stdin")
	cmd.MarkFlagsMutuallyExclusive("api-key", "stdin")
	cmd.MarkFlagsOneRequired("api-key", "stdin")

	return cmd
}

func newAuthRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove the stored API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.secrets.Delete(cmd.Context(), openai.SecretKey); err != nil {
				return fmt.Errorf("remove api key: %w", err)
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "api key removed")
			return err
		},
	}
}

// newAuthStatusCmd reports where the openai runner would take its key from,
// showing only the last four characters.
func newAuthStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which API key the openai runner will use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if key := strings.TrimSpace(app.settings.Get().OpenAI.APIKey); key != "" {
				_, err := fmt.Fprintf(out, "api key: %s (settings or environment)\n", maskKey(key))
				return err
			}

			key, err := app.secrets.Get(cmd.Context(), openai.SecretKey)
			switch {
			case errors.Is(err, domain.ErrSecretNotFound):
				_, err = fmt.Fprintln(out, "api key: not set")
				return err
			case err != nil:
				return fmt.Errorf("read api key: %w", err)
			}

			_, err = fmt.Fprintf(out, "api key: %s (secret store %s)\n", maskKey(key), openai.SecretKey)
			return err
		},
	}
}

func maskKey(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}

	return "..." + key[len(key)-4:]
}
