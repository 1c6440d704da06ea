package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"bookcraft-cli/internal/api"
	"bookcraft-cli/internal/dnd"
	"bookcraft-cli/internal/editor"
	"bookcraft-cli/internal/model"
	"bookcraft-cli/internal/validate"

	"github.com/spf13/cobra"
)

func newBooksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Book commands",
	}
	cmd.AddCommand(newBooksListCmd(app))
	cmd.AddCommand(newBooksShowCmd(app))
	cmd.AddCommand(newBooksTreeCmd(app))
	cmd.AddCommand(newBooksCreateCmd(app))
	cmd.AddCommand(newBooksUpdateCmd(app))
	cmd.AddCommand(newBooksDeleteCmd(app))
	return cmd
}

func newBooksListCmd(app *App) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books visible to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			books, err := c.ListBooks(cmd.Context(), strings.TrimSpace(search))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": books})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Filter by title")
	return cmd
}

func newBooksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := c.GetBook(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, api.ErrNotFound) {
					return writeErr(cmd, errNotFound("book", args[0]))
				}
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": b})
		},
	}
}

func newBooksTreeCmd(app *App) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "tree <book-id>",
		Short: "Show a book with its sections and chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := c.BookTree(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, api.ErrNotFound) {
					return writeErr(cmd, errNotFound("book", args[0]))
				}
				return writeErr(cmd, err)
			}
			if plain {
				writeTree(cmd.OutOrStdout(), b)
				return nil
			}
			return writeOut(cmd, app, map[string]any{"data": b})
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Print an indented outline instead of JSON")
	return cmd
}

func writeTree(w io.Writer, b *model.Book) {
	fmt.Fprintf(w, "%s  (%s)\n", b.Title, b.ID)
	for i, s := range b.Sections {
		last := i == len(b.Sections)-1
		branch, indent := "├─ ", "│  "
		if last {
			branch, indent = "└─ ", "   "
		}
		fmt.Fprintf(w, "%s%s  (%s)\n", branch, s.Title, s.ID)
		for j, ch := range s.Chapters {
			leaf := "├─ "
			if j == len(s.Chapters)-1 {
				leaf = "└─ "
			}
			fmt.Fprintf(w, "%s%s%s  (%s)\n", indent, leaf, ch.Title, ch.ID)
		}
	}
}

func newBooksCreateCmd(app *App) *cobra.Command {
	var in api.BookInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a book",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = strings.TrimSpace(in.Title)
			if err := validate.Struct(in); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := c.CreateBook(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   b,
				"_hints": []string{"bookcraft sections create " + b.ID + " --title <title>"},
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "Book title")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	cmd.Flags().StringVar(&in.CoverURL, "cover", "", "Cover image URL")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newBooksUpdateCmd(app *App) *cobra.Command {
	var title, description, cover string
	cmd := &cobra.Command{
		Use:   "update <book-id>",
		Short: "Update a book's title, description or cover",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			cur, err := c.GetBook(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			in := api.BookInput{Title: cur.Title, Description: cur.Description, CoverURL: cur.CoverURL}
			if cmd.Flags().Changed("title") {
				in.Title = strings.TrimSpace(title)
			}
			if cmd.Flags().Changed("description") {
				in.Description = description
			}
			if cmd.Flags().Changed("cover") {
				in.CoverURL = strings.TrimSpace(cover)
			}
			if err := validate.Struct(in); err != nil {
				return writeErr(cmd, err)
			}
			b, err := c.UpdateBook(cmd.Context(), args[0], in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": b})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Book title")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&cover, "cover", "", "Cover image URL")
	return cmd
}

func newBooksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteBook(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": args[0]}})
		},
	}
}

func newSectionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "Section commands",
	}

	list := &cobra.Command{
		Use:   "list <book-id>",
		Short: "List a book's sections in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			ss, err := c.ListSections(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			sort.SliceStable(ss, func(i, j int) bool { return ss[i].Order < ss[j].Order })
			return writeOut(cmd, app, map[string]any{"data": ss})
		},
	}

	var title string
	create := &cobra.Command{
		Use:   "create <book-id>",
		Short: "Add a section to a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Var("title", strings.TrimSpace(title), "required,max=200"); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := c.CreateSection(cmd.Context(), args[0], strings.TrimSpace(title))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": s})
		},
	}
	create.Flags().StringVar(&title, "title", "", "Section title")

	var newTitle string
	rename := &cobra.Command{
		Use:   "rename <section-id>",
		Short: "Rename a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Var("title", strings.TrimSpace(newTitle), "required,max=200"); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := c.UpdateSection(cmd.Context(), args[0], strings.TrimSpace(newTitle))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": s})
		},
	}
	rename.Flags().StringVar(&newTitle, "title", "", "New title")

	del := &cobra.Command{
		Use:   "delete <section-id>",
		Short: "Delete a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteSection(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": args[0]}})
		},
	}

	swap := &cobra.Command{
		Use:   "swap <book-id> <section-id> <section-id>",
		Short: "Swap the positions of two sections",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			ss, err := c.ListSections(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			order, err := swappedOrder(ss, args[1], args[2])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.ReorderSections(cmd.Context(), args[0], order); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": order})
		},
	}

	cmd.AddCommand(list, create, rename, del, swap)
	return cmd
}

// swappedOrder exchanges the positions of a and b and returns the full order,
// each section keeping the order value of the slot it lands in.
func swappedOrder(ss []model.Section, a, b string) ([]model.OrderEntry, error) {
	sort.SliceStable(ss, func(i, j int) bool { return ss[i].Order < ss[j].Order })
	ids := make([]string, len(ss))
	for i, s := range ss {
		ids[i] = s.ID
	}
	swapped, err := dnd.ApplySwap(ids, a, b)
	if err != nil {
		return nil, fmt.Errorf("swap %s/%s: %w", a, b, err)
	}
	order := make([]model.OrderEntry, len(ss))
	for i, id := range swapped {
		order[i] = model.OrderEntry{ID: id, Order: ss[i].Order}
	}
	return order, nil
}

func newChaptersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chapters",
		Short: "Chapter commands",
	}

	list := &cobra.Command{
		Use:   "list <section-id>",
		Short: "List a section's chapters in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			l := editor.NewChapterList(c, app.log)
			if err := l.Load(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": l.Chapters()})
		},
	}

	show := &cobra.Command{
		Use:   "show <chapter-id>",
		Short: "Show a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			ch, err := c.GetChapter(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, api.ErrNotFound) {
					return writeErr(cmd, errNotFound("chapter", args[0]))
				}
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   ch,
				"_hints": []string{"bookcraft edit " + ch.ID},
			})
		},
	}

	var title string
	create := &cobra.Command{
		Use:   "create <section-id>",
		Short: "Add a chapter to a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Var("title", strings.TrimSpace(title), "required,max=200"); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			ch, err := c.CreateChapter(cmd.Context(), args[0], strings.TrimSpace(title))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": ch})
		},
	}
	create.Flags().StringVar(&title, "title", "", "Chapter title")

	var newTitle string
	rename := &cobra.Command{
		Use:   "rename <chapter-id>",
		Short: "Rename a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Var("title", strings.TrimSpace(newTitle), "required,max=200"); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			ch, err := c.UpdateChapter(cmd.Context(), args[0], strings.TrimSpace(newTitle))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": ch})
		},
	}
	rename.Flags().StringVar(&newTitle, "title", "", "New title")

	del := &cobra.Command{
		Use:   "delete <chapter-id>",
		Short: "Delete a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteChapter(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": args[0]}})
		},
	}

	swap := &cobra.Command{
		Use:   "swap <section-id> <chapter-id> <chapter-id>",
		Short: "Swap the positions of two chapters",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			l := editor.NewChapterList(c, app.log)
			if err := l.Load(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			if err := l.Swap(cmd.Context(), args[1], args[2]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": l.Chapters()})
		},
	}

	cmd.AddCommand(list, show, create, rename, del, swap)
	return cmd
}
