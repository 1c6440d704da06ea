package cli

import (
	"errors"
	"strings"

	"bookcraft-cli/internal/model"
	"bookcraft-cli/internal/quiz"
	"bookcraft-cli/internal/store"

	"github.com/spf13/cobra"
)

// The held attempt lives in session.json so start, answer and complete can be
// separate invocations.

func newQuizCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Take a quiz widget (start, answer, complete)",
	}
	cmd.AddCommand(newQuizStartCmd(app))
	cmd.AddCommand(newQuizAnswerCmd(app))
	cmd.AddCommand(newQuizCompleteCmd(app))
	cmd.AddCommand(newQuizStatusCmd(app))
	return cmd
}

func (app *App) quizTracker(cmd *cobra.Command) (*quiz.Tracker, error) {
	c, err := app.apiClient(cmd.Context())
	if err != nil {
		return nil, err
	}
	t := quiz.NewTracker(c, app.log)
	if h := app.session.Attempt; h != nil {
		t.Resume(h.WidgetID, h.AttemptID)
	}
	return t, nil
}

// holdAttempt records the tracker's attempt, or clears it once completed.
func (app *App) holdAttempt(st quiz.State, widgetType model.WidgetType) error {
	switch {
	case st.AttemptID == "" || st.Phase == quiz.PhaseCompleted:
		app.session.Attempt = nil
	default:
		if h := app.session.Attempt; widgetType == "" && h != nil && h.WidgetID == st.WidgetID {
			widgetType = h.WidgetType
		}
		app.session.Attempt = &store.HeldAttempt{WidgetID: st.WidgetID, WidgetType: widgetType, AttemptID: st.AttemptID}
	}
	return app.saveSession()
}

func newQuizStartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start <chapter-id> <widget-id>",
		Short: "Start an attempt (discarding any attempt held for another widget)",
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
			if !w.Type.IsQuiz() {
				return writeErr(cmd, errWrongType(w.ID, string(w.Type), "a quiz"))
			}

			t, err := app.quizTracker(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			a, err := t.Start(cmd.Context(), w.ID)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.holdAttempt(t.State(), w.Type); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   a,
				"_hints": []string{"bookcraft quiz answer " + w.ID + " <answer>"},
			})
		},
	}
}

func newQuizAnswerCmd(app *App) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "answer <widget-id> <answer>",
		Short: "Submit an answer (starts an attempt if none is held for the widget)",
		Long: strings.TrimSpace(`
Answer formats by widget type:
  multiple_choice, single_choice, true_false   option ids, comma separated
  fill_blank                                   values separated by |
  matching, drag_drop                          left=right pairs, comma separated
  word_search                                  words, comma separated
A JSON object is accepted for any type.`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			widgetID := strings.TrimSpace(args[0])
			var t model.WidgetType
			if typ != "" {
				parsed, err := model.ParseWidgetType(typ)
				if err != nil {
					return writeErr(cmd, err)
				}
				t = parsed
			} else if h := app.session.Attempt; h != nil && h.WidgetID == widgetID {
				t = h.WidgetType
			}
			if t == "" {
				return writeErr(cmd, errors.New("unknown widget type; pass --type or run `bookcraft quiz start` first"))
			}
			answer, err := quiz.ParseAnswer(t, args[1])
			if err != nil {
				return writeErr(cmd, err)
			}

			tr, err := app.quizTracker(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := tr.Answer(cmd.Context(), widgetID, answer)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.holdAttempt(tr.State(), t); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "Widget type (defaults to the type recorded by `quiz start`)")
	return cmd
}

func newQuizCompleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <widget-id>",
		Short: "Finish the held attempt and show the score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.quizTracker(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := t.Complete(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.holdAttempt(t.State(), ""); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
}

func newQuizStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the held attempt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, map[string]any{"data": app.session.Attempt})
		},
	}
}
