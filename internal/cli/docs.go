package cli

import (
	"fmt"

	"bookcraft-cli/internal/docs"
	"bookcraft-cli/internal/tui"

	"github.com/spf13/cobra"
)

func newDocsCmd(app *App) *cobra.Command {
	var raw bool
	var width int
	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Read built-in guides (editor, widgets, quiz, offline)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeOut(cmd, app, map[string]any{
					"data":   docs.Topics(),
					"_hints": []string{"bookcraft docs editor"},
				})
			}
			body, ok := docs.Get(args[0])
			if !ok {
				return writeErr(cmd, errNotFound("topic", args[0]))
			}
			if !raw {
				body = tui.RenderMarkdown(body, width)
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), body)
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown source instead of rendering it")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width for rendered output")
	return cmd
}
