package cli

import (
	"context"
	"strings"

	"bookcraft-cli/internal/presence"

	"github.com/spf13/cobra"
)

// dialPresence connects to the presence channel for the current API origin.
func dialPresence(ctx context.Context, app *App) (*presence.Client, error) {
	c, err := app.apiClient(ctx)
	if err != nil {
		return nil, err
	}
	wsURL := strings.TrimSpace(envOr("BOOKCRAFT_WS_URL", app.cfg.WSURL))
	if wsURL == "" {
		wsURL = presence.URLFor(c.BaseURL())
	}
	return presence.Dial(ctx, wsURL, app.Token, presence.WithLogger(app.log))
}

func newPresenceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presence",
		Short: "Who is editing what",
	}

	watch := &cobra.Command{
		Use:   "watch <chapter-id>",
		Short: "Join a chapter and print occupancy changes until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			chapterID := strings.TrimSpace(args[0])
			pc, err := dialPresence(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer pc.Close()
			if err := pc.Join(chapterID); err != nil {
				return writeErr(cmd, err)
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-pc.Done():
					if err := pc.Err(); err != nil {
						return writeErr(cmd, err)
					}
					return nil
				case ch, ok := <-pc.Changes():
					if !ok {
						return nil
					}
					if ch.ChapterID != chapterID {
						continue
					}
					others := pc.Others(chapterID)
					if err := writeOut(cmd, app, map[string]any{
						"data": map[string]any{
							"chapterId": ch.ChapterID,
							"occupants": ch.Occupants,
							"others":    presence.Label(others),
						},
					}); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.AddCommand(watch)
	return cmd
}
