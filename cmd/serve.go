package cmd

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yoke233/metting/internal/adapters/httpapi"
	"github.com/yoke233/metting/internal/config"
	"github.com/yoke233/metting/internal/version"
)

func newServeCmd(app *app) *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API with live event streams",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			service, store, err := app.meetings(ctx)
			if err != nil {
				return err
			}

			if watch {
				if err := app.watchSettings(); err != nil {
					return err
				}
			}

			if addr == "" {
				addr = app.settings.Get().Server.Addr
			}
			server := httpapi.NewServer(service, store, app.logger, version.Version)

			return server.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	cmd.Flags().BoolVar(&watch, "watch-config", false, "Reload prompts from settings.toml when it changes")

	return cmd
}

// watchSettings swaps in reloaded settings. New runs pick up the reloaded
// prompts; storage and runner keep what they were opened with.
func (a *app) watchSettings() error {
	err := config.Watch(a.viper, func(settings config.Settings, err error) {
		if err != nil {
			a.logger.Warn("settings reload failed", "error", err.Error())
			return
		}
		a.settings.Set(settings)
		a.logger.Info("settings reloaded", "file", a.viper.ConfigFileUsed())
	})
	if errors.Is(err, config.ErrNoConfigFile) {
		a.logger.Warn("no settings file to watch, run `meeting config init` first")
		return nil
	}

	return err
}
