package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"bookcraft-cli/internal/api"
	"bookcraft-cli/internal/editor"
	"bookcraft-cli/internal/model"
	"bookcraft-cli/internal/tui"
	"bookcraft-cli/internal/validate"
	"bookcraft-cli/internal/widget"

	"github.com/spf13/cobra"
)

func newWidgetsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "widgets",
		Short: "Widget commands",
	}
	cmd.AddCommand(newWidgetsAddCmd(app))
	cmd.AddCommand(newWidgetsUpdateCmd(app))
	cmd.AddCommand(newWidgetsShowCmd(app))
	cmd.AddCommand(newWidgetsDeleteCmd(app))
	cmd.AddCommand(newWidgetsTypesCmd(app))
	return cmd
}

// payloadJSON resolves --data / --data-file ("-" reads stdin).
func payloadJSON(cmd *cobra.Command, data, file string) (json.RawMessage, error) {
	switch {
	case data != "" && file != "":
		return nil, errors.New("use either --data or --data-file")
	case file == "-":
		var raw json.RawMessage
		if err := json.NewDecoder(cmd.InOrStdin()).Decode(&raw); err != nil {
			return nil, fmt.Errorf("read payload from stdin: %w", err)
		}
		return raw, nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(b), nil
	case data != "":
		return json.RawMessage(data), nil
	}
	return nil, nil
}

func newWidgetsAddCmd(app *App) *cobra.Command {
	var typ, data, file, text string
	var row, col int

	cmd := &cobra.Command{
		Use:   "add <chapter-id> <block-id>",
		Short: "Add a widget to a block slot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseWidgetType(typ)
			if err != nil {
				return writeErr(cmd, err)
			}
			raw, err := payloadJSON(cmd, data, file)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := widget.Decode(t, raw)
			if err != nil {
				return writeErr(cmd, err)
			}
			if cmd.Flags().Changed("text") {
				if p, err = widget.WithText(p, text); err != nil {
					return writeErr(cmd, err)
				}
			}

			cs, err := openChapter(cmd.Context(), app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			w, err := cs.AddWidget(cmd.Context(), args[1], p, row, col)
			if ferr := cs.finish(); err == nil {
				err = ferr
			}
			if err != nil {
				if errors.Is(err, editor.ErrUnknownBlock) {
					return writeErr(cmd, errNotFound("block", args[1]))
				}
				return writeErr(cmd, err)
			}
			var hints []string
			if t.IsQuiz() {
				hints = append(hints, "bookcraft questions create "+w.ID+" --text <question>")
			}
			return writeOut(cmd, app, map[string]any{"data": w, "_hints": hints})
		},
	}

	cmd.Flags().StringVar(&typ, "type", string(model.WidgetText), "Widget type (see `bookcraft widgets types`)")
	cmd.Flags().StringVar(&data, "data", "", "Payload JSON")
	cmd.Flags().StringVar(&file, "data-file", "", "Read payload JSON from a file (- for stdin)")
	cmd.Flags().StringVar(&text, "text", "", "Text for text, heading, quote and fill-in-the-blank widgets")
	cmd.Flags().IntVar(&row, "row", 0, "Slot row")
	cmd.Flags().IntVar(&col, "col", 0, "Slot column")
	return cmd
}

func newWidgetsUpdateCmd(app *App) *cobra.Command {
	var data, file, text string

	cmd := &cobra.Command{
		Use:   "update <chapter-id> <widget-id>",
		Short: "Replace a widget's payload (or just its text with --text)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := payloadJSON(cmd, data, file)
			if err != nil {
				return writeErr(cmd, err)
			}
			if raw == nil && !cmd.Flags().Changed("text") {
				return writeErr(cmd, errors.New("nothing to update: pass --data, --data-file or --text"))
			}

			cs, err := openChapter(cmd.Context(), app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cs.Close()

			w, ok := cs.Widget(args[1])
			if !ok {
				return writeErr(cmd, errNotFound("widget", args[1]))
			}
			if raw == nil {
				raw = w.Data
			}
			p, err := widget.Decode(w.Type, raw)
			if err != nil {
				return writeErr(cmd, err)
			}
			if cmd.Flags().Changed("text") {
				if p, err = widget.WithText(p, text); err != nil {
					return writeErr(cmd, err)
				}
			}
			if err := cs.UpdateWidgetPayload(w.ID, p); err != nil {
				return writeErr(cmd, err)
			}
			if err := cs.finish(); err != nil {
				return writeErr(cmd, err)
			}
			w, _ = cs.Widget(w.ID)
			return writeOut(cmd, app, map[string]any{"data": w})
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "Payload JSON")
	cmd.Flags().StringVar(&file, "data-file", "", "Read payload JSON from a file (- for stdin)")
	cmd.Flags().StringVar(&text, "text", "", "New text for text, heading, quote and fill-in-the-blank widgets")
	return cmd
}

func newWidgetsShowCmd(app *App) *cobra.Command {
	var render bool
	var width int

	cmd := &cobra.Command{
		Use:   "show <chapter-id> <widget-id>",
		Short: "Show a widget (--render prints it as formatted markdown)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := openChapter(cmd.Context(), app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			w, ok := cs.Widget(args[1])
			_ = cs.finish()
			if !ok {
				return writeErr(cmd, errNotFound("widget", args[1]))
			}
			p, err := widget.Decode(w.Type, w.Data)
			if err != nil {
				return writeErr(cmd, err)
			}
			if render {
				fmt.Fprintln(cmd.OutOrStdout(), tui.RenderMarkdown(widget.Markdown(p), width))
				return nil
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"widget":  w,
					"summary": widget.Summary(p),
				},
			})
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "Render as markdown for the terminal")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width for --render")
	return cmd
}

func newWidgetsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chapter-id> <widget-id>",
		Short: "Delete a widget",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := openChapter(cmd.Context(), app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			err = cs.RemoveWidget(cmd.Context(), args[1])
			if ferr := cs.finish(); err == nil {
				err = ferr
			}
			if err != nil {
				if errors.Is(err, editor.ErrUnknownWidget) {
					return writeErr(cmd, errNotFound("widget", args[1]))
				}
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": args[1]}})
		},
	}
}

func newWidgetsTypesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List widget types",
		RunE: func(cmd *cobra.Command, args []string) error {
			type row struct {
				Type model.WidgetType `json:"type"`
				Quiz bool             `json:"quiz"`
			}
			var out []row
			for _, t := range model.WidgetTypes() {
				out = append(out, row{Type: t, Quiz: t.IsQuiz()})
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
}

func newQuestionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Questions of quiz widgets",
	}

	list := &cobra.Command{
		Use:   "list <widget-id>",
		Short: "List a widget's questions with their options",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			qs, err := c.ListQuestions(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": qs})
		},
	}

	var in api.QuestionInput
	create := &cobra.Command{
		Use:   "create <widget-id>",
		Short: "Add a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Text = strings.TrimSpace(in.Text)
			if err := validate.Struct(in); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			q, err := c.CreateQuestion(cmd.Context(), args[0], in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   q,
				"_hints": []string{"bookcraft options create " + q.ID + " --text <option> [--correct]"},
			})
		},
	}
	create.Flags().StringVar(&in.Text, "text", "", "Question text")
	create.Flags().StringVar(&in.ImageURL, "image", "", "Image URL")

	var up api.QuestionInput
	update := &cobra.Command{
		Use:   "update <question-id>",
		Short: "Change a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up.Text = strings.TrimSpace(up.Text)
			if err := validate.Struct(up); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			q, err := c.UpdateQuestion(cmd.Context(), args[0], up)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": q})
		},
	}
	update.Flags().StringVar(&up.Text, "text", "", "Question text")
	update.Flags().StringVar(&up.ImageURL, "image", "", "Image URL")

	del := &cobra.Command{
		Use:   "delete <question-id>",
		Short: "Delete a question and its options",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteQuestion(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": args[0]}})
		},
	}

	cmd.AddCommand(list, create, update, del)
	return cmd
}

func newOptionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Answer options of quiz questions",
	}

	var in api.OptionInput
	create := &cobra.Command{
		Use:   "create <question-id>",
		Short: "Add an option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Text = strings.TrimSpace(in.Text)
			if err := validate.Struct(in); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			o, err := c.CreateOption(cmd.Context(), args[0], in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": o})
		},
	}
	create.Flags().StringVar(&in.Text, "text", "", "Option text")
	create.Flags().BoolVar(&in.Correct, "correct", false, "Mark as a correct answer")
	create.Flags().StringVar(&in.ImageURL, "image", "", "Image URL")

	var up api.OptionInput
	update := &cobra.Command{
		Use:   "update <option-id>",
		Short: "Change an option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up.Text = strings.TrimSpace(up.Text)
			if err := validate.Struct(up); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			o, err := c.UpdateOption(cmd.Context(), args[0], up)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": o})
		},
	}
	update.Flags().StringVar(&up.Text, "text", "", "Option text")
	update.Flags().BoolVar(&up.Correct, "correct", false, "Mark as a correct answer")
	update.Flags().StringVar(&up.ImageURL, "image", "", "Image URL")

	del := &cobra.Command{
		Use:   "delete <option-id>",
		Short: "Delete an option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteOption(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": args[0]}})
		},
	}

	cmd.AddCommand(create, update, del)
	return cmd
}
