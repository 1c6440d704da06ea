package cli

import (
	"bookcraft-cli/internal/store"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change ~/.bookcraft/config.json",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the config with defaults applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := store.ConfigPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"path":         path,
					"apiUrl":       app.cfg.APIBase(),
					"wsUrl":        app.cfg.WSURL,
					"cacheVersion": app.cfg.CacheGeneration(),
					"offline":      app.cfg.Offline,
					"debounceMs":   app.cfg.Debounce().Milliseconds(),
					"flushOnClose": app.cfg.ShouldFlushOnClose(),
					"tui": map[string]any{
						"profile": tuiProfile(app.cfg),
						"preview": app.cfg.ShowPreview(),
					},
				},
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one key (apiUrl, wsUrl, cacheVersion, offline, debounceMs, flushOnClose, tui.profile, tui.preview)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.SetConfigValue(app.cfg, args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := store.SaveConfig(app.cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": app.cfg})
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}

func tuiProfile(cfg *store.GlobalConfig) string {
	if cfg == nil || cfg.TUI == nil || cfg.TUI.Profile == "" {
		return "default"
	}
	return cfg.TUI.Profile
}
