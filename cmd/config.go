package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yoke233/metting/internal/config"
)

func newConfigCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage settings.toml",
	}

	cmd.AddCommand(newConfigInitCmd(app), newConfigShowCmd(app))

	return cmd
}

func newConfigInitCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with the default values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			home := app.settings.Get().Home
			path := config.ConfigPath(home)
			if err := config.WriteFile(path, config.Defaults(home), force); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "settings written to %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing settings file")

	return cmd
}

func newConfigShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := app.settings.Get().Redacted()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), settings)
			}

			data, err := config.Encode(settings)
			if err != nil {
				return err
			}
			if source := app.viper.ConfigFileUsed(); source != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", source)
			}
			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
