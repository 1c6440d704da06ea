package cli

import (
	"fmt"
	"strings"

	"bookcraft-cli/internal/editor"
	"bookcraft-cli/internal/presence"
	"bookcraft-cli/internal/state"
	"bookcraft-cli/internal/store"
	"bookcraft-cli/internal/tui"

	"github.com/spf13/cobra"
)

func newEditCmd(app *App) *cobra.Command {
	var noPresence bool
	var noPreview bool
	cmd := &cobra.Command{
		Use:   "edit <chapter-id>",
		Short: "Open the terminal chapter editor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			chapterID := strings.TrimSpace(args[0])
			c, err := app.apiClient(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}

			alerts := state.NewAlerts()
			sess := editor.NewSession(c, editor.Options{
				Debounce:       app.cfg.Debounce(),
				DiscardOnClose: !app.cfg.ShouldFlushOnClose(),
				Logger:         app.log,
				OnError: func(op, id string, err error) {
					alerts.Push(state.LevelError, fmt.Sprintf("%s %s failed: %v", op, id, err))
				},
			})
			defer sess.Close()
			if err := sess.Load(ctx, chapterID); err != nil {
				return writeErr(cmd, err)
			}

			title := chapterID
			if ch, err := c.GetChapter(ctx, chapterID); err == nil && strings.TrimSpace(ch.Title) != "" {
				title = ch.Title
			}
			app.session.TouchChapter(chapterID)
			if err := app.saveSession(); err != nil {
				app.log.Warn("save session failed", "error", err)
			}

			var pc *presence.Client
			if !noPresence {
				pc, err = dialPresence(ctx, app)
				if err != nil {
					app.log.Warn("presence unavailable", "error", err)
					alerts.Push(state.LevelWarning, "Presence unavailable; editing without it")
					pc = nil
				} else {
					defer pc.Close()
				}
			}

			sel := state.NewSelection()
			sel.Dispatch(state.SelectionAction{Kind: state.SelectChapter, ID: chapterID})
			views, err := store.LoadTUIState()
			if err != nil {
				app.log.Warn("load tui state failed", "error", err)
				views = &store.TUIState{}
			}
			if v, ok := views.View(chapterID); ok {
				sel.Dispatch(state.SelectionAction{Kind: state.SelectBlock, ID: v.BlockID})
				sel.Dispatch(state.SelectionAction{Kind: state.SelectWidget, ID: v.WidgetID})
			}

			profile := ""
			if app.cfg.TUI != nil {
				profile = app.cfg.TUI.Profile
			}
			runErr := tui.Run(ctx, tui.Config{
				Session:      sess,
				Presence:     pc,
				Alerts:       alerts,
				Selection:    sel,
				Modal:        state.NewModal(),
				ChapterTitle: title,
				Preview:      app.cfg.ShowPreview() && !noPreview,
				Profile:      profile,
				Logger:       app.log,
			})

			cur := sel.Get()
			views.Remember(chapterID, store.ChapterView{BlockID: cur.BlockID, WidgetID: cur.WidgetID})
			if err := store.SaveTUIState(views); err != nil {
				app.log.Warn("save tui state failed", "error", err)
			}
			if runErr != nil {
				return writeErr(cmd, runErr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noPresence, "no-presence", false, "Do not announce or show other editors")
	cmd.Flags().BoolVar(&noPreview, "no-preview", false, "Start with the markdown preview hidden")
	return cmd
}
