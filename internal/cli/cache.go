package cli

import (
	"bookcraft-cli/internal/offline"
	"bookcraft-cli/internal/store"

	"github.com/spf13/cobra"
)

func newCacheCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the offline response cache",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show cache generations and their sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer c.Close()
			st, err := c.Stats(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": st})
		},
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete every cached response",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer c.Close()
			n, err := c.Purge(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"cache": c.Name(), "deleted": n}})
		},
	}

	cmd.AddCommand(status, purge)
	return cmd
}

func openCache(cmd *cobra.Command, app *App) (*offline.Cache, error) {
	path, err := store.CachePath()
	if err != nil {
		return nil, err
	}
	return offline.Open(cmd.Context(), path, app.cfg.CacheGeneration())
}

// dropCachedResponses empties the response cache when the signed-in account
// changes. Failures are logged; the session change itself has succeeded.
func dropCachedResponses(cmd *cobra.Command, app *App) {
	c := app.cache
	if c == nil {
		opened, err := openCache(cmd, app)
		if err != nil {
			app.log.Warn("open offline cache failed", "error", err)
			return
		}
		defer opened.Close()
		c = opened
	}
	if app.transport != nil {
		app.transport.Wait()
	}
	n, err := c.Purge(cmd.Context())
	if err != nil {
		app.log.Warn("purge offline cache failed", "cache", c.Name(), "error", err)
		return
	}
	app.log.Debug("purged offline cache", "cache", c.Name(), "entries", n)
}
