package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bookcraft-cli/internal/editor"
	"bookcraft-cli/internal/model"

	"github.com/spf13/cobra"
)

// chapterSession is an editor session for one CLI invocation.
type chapterSession struct {
	*editor.Session

	mu   sync.Mutex
	errs []error
}

func openChapter(ctx context.Context, app *App, chapterID string) (*chapterSession, error) {
	chapterID = strings.TrimSpace(chapterID)
	if chapterID == "" {
		return nil, errors.New("missing chapter id")
	}
	c, err := app.apiClient(ctx)
	if err != nil {
		return nil, err
	}
	cs := &chapterSession{}
	cs.Session = editor.NewSession(c, editor.Options{
		Debounce:       app.cfg.Debounce(),
		DiscardOnClose: !app.cfg.ShouldFlushOnClose(),
		Logger:         app.log,
		OnError: func(op, id string, err error) {
			cs.mu.Lock()
			cs.errs = append(cs.errs, fmt.Errorf("%s %s: %w", op, id, err))
			cs.mu.Unlock()
		},
	})
	if err := cs.Load(ctx, chapterID); err != nil {
		cs.Close()
		return nil, err
	}
	app.session.TouchChapter(chapterID)
	if app.session.Token != "" {
		_ = app.saveSession()
	}
	return cs, nil
}

// finish flushes and closes the session, returning any write failures.
// Commands always flush; flushOnClose only governs the editor.
func (cs *chapterSession) finish() error {
	cs.Flush()
	cs.Close()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return errors.Join(cs.errs...)
}

func newBlocksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Block commands (a block is a layout row of widgets in a chapter)",
	}
	cmd.AddCommand(newBlocksListCmd(app))
	cmd.AddCommand(newBlocksCreateCmd(app))
	cmd.AddCommand(newBlocksSwapCmd(app))
	cmd.AddCommand(newBlocksStyleCmd(app))
	cmd.AddCommand(newBlocksDeleteCmd(app))
	return cmd
}

func newBlocksListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <chapter-id>",
		Short: "List a chapter's blocks in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := openChapter(cmd.Context(), app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			blocks := cs.Blocks()
			if err := cs.finish(); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": blocks})
		},
	}
}

func newBlocksCreateCmd(app *App) *cobra.Command {
	var layout string
	cmd := &cobra.Command{
		Use:   "create <chapter-id>",
		Short: "Append a block to a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := model.ParseLayout(layout)
			if err != nil {
				return writeErr(cmd, err)
			}
			cs, err := openChapter(cmd.Context(), app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := cs.CreateBlock(cmd.Context(), l)
			if ferr := cs.finish(); err == nil {
				err = ferr
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   b,
				"_hints": []string{"bookcraft widgets add " + args[0] + " " + b.ID + " --type text --data '{\"markdown\":\"...\"}'"},
			})
		},
	}
	cmd.Flags().StringVar(&layout, "layout", string(model.LayoutSingle), "Layout ("+layoutNames()+")")
	return cmd
}

func layoutNames() string {
	var names []string
	for _, l := range model.Layouts() {
		names = append(names, string(l))
	}
	return strings.Join(names, "|")
}

func newBlocksSwapCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "swap <chapter-id> <block-id> <block-id>",
		Short: "Swap the positions of two blocks",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := openChapter(cmd.Context(), app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			err = cs.SwapBlocks(cmd.Context(), args[1], args[2])
			blocks := cs.Blocks()
			if ferr := cs.finish(); err == nil {
				err = ferr
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": blockOrder(blocks)})
		},
	}
}

func blockOrder(blocks []model.Block) []model.OrderEntry {
	out := make([]model.OrderEntry, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, model.OrderEntry{ID: b.ID, Order: b.Order})
	}
	return out
}

func newBlocksStyleCmd(app *App) *cobra.Command {
	var background, padding, align, border string
	cmd := &cobra.Command{
		Use:   "style <chapter-id> <block-id>",
		Short: "Change a block's style (unset flags keep their value)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := openChapter(cmd.Context(), app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			b, ok := cs.Block(args[1])
			if !ok {
				_ = cs.finish()
				return writeErr(cmd, errNotFound("block", args[1]))
			}
			st := b.Style
			if cmd.Flags().Changed("background") {
				st.Background = background
			}
			if cmd.Flags().Changed("padding") {
				st.Padding = padding
			}
			if cmd.Flags().Changed("align") {
				st.Align = align
			}
			if cmd.Flags().Changed("border") {
				st.Border = border
			}
			err = cs.UpdateBlockStyle(b.ID, st)
			if ferr := cs.finish(); err == nil {
				err = ferr
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			b.Style = st
			return writeOut(cmd, app, map[string]any{"data": b})
		},
	}
	cmd.Flags().StringVar(&background, "background", "", "Background colour")
	cmd.Flags().StringVar(&padding, "padding", "", "Padding")
	cmd.Flags().StringVar(&align, "align", "", "Alignment")
	cmd.Flags().StringVar(&border, "border", "", "Border")
	return cmd
}

func newBlocksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chapter-id> <block-id>",
		Short: "Delete a block and its widgets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := openChapter(cmd.Context(), app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			err = cs.RemoveBlock(cmd.Context(), args[1])
			if ferr := cs.finish(); err == nil {
				err = ferr
			}
			if err != nil {
				if errors.Is(err, editor.ErrUnknownBlock) {
					return writeErr(cmd, errNotFound("block", args[1]))
				}
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": args[1]}})
		},
	}
}
