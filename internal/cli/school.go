package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bookcraft-cli/internal/api"
	"bookcraft-cli/internal/export"
	"bookcraft-cli/internal/model"
	"bookcraft-cli/internal/validate"

	"github.com/spf13/cobra"
)

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Activation keys (book access codes)",
	}
	cmd.AddCommand(newKeysListCmd(app))
	cmd.AddCommand(newKeysGenerateCmd(app))
	cmd.AddCommand(newKeysActivateCmd(app))
	cmd.AddCommand(newKeysRevokeCmd(app))
	return cmd
}

func newKeysListCmd(app *App) *cobra.Command {
	var bookID, xlsx string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List keys (optionally exporting them to a spreadsheet)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			keys, err := c.ListKeys(cmd.Context(), strings.TrimSpace(bookID))
			if err != nil {
				return writeErr(cmd, err)
			}
			if xlsx != "" {
				if err := exportFile(xlsx, func(f *os.File) error { return export.Keys(f, keys) }); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"path": xlsx, "rows": len(keys)}})
			}
			return writeOut(cmd, app, map[string]any{"data": keys})
		},
	}
	cmd.Flags().StringVar(&bookID, "book", "", "Only keys for this book")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "Write an .xlsx file instead of printing")
	return cmd
}

func newKeysGenerateCmd(app *App) *cobra.Command {
	var in api.GenerateKeysInput
	var expires string
	var xlsx string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate activation keys for a book",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.BookID = strings.TrimSpace(in.BookID)
			if expires != "" {
				t, err := parseExpiry(expires, time.Now())
				if err != nil {
					return writeErr(cmd, err)
				}
				in.ExpiresAt = &t
			}
			if err := validate.Struct(in); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			keys, err := c.GenerateKeys(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			if xlsx != "" {
				if err := exportFile(xlsx, func(f *os.File) error { return export.Keys(f, keys) }); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, map[string]any{"data": keys})
		},
	}
	cmd.Flags().StringVar(&in.BookID, "book", "", "Book id")
	cmd.Flags().IntVar(&in.Count, "count", 1, "How many keys")
	cmd.Flags().IntVar(&in.MaxUses, "max-uses", 1, "Redemptions allowed per key")
	cmd.Flags().StringVar(&expires, "expires", "", "Expiry: RFC3339, YYYY-MM-DD, or a duration like 720h")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "Also write the new keys to an .xlsx file")
	return cmd
}

// parseExpiry accepts an absolute time (RFC3339 or YYYY-MM-DD, UTC) or a
// duration from now.
func parseExpiry(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return now.Add(d).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid expiry %q", s)
}

func newKeysActivateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <code>",
		Short: "Redeem an activation key for your account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := api.ActivateKeyInput{Code: strings.ToUpper(strings.TrimSpace(args[0]))}
			if err := validate.Struct(in); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			k, err := c.ActivateKey(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   k,
				"_hints": []string{"bookcraft books show " + k.BookID},
			})
		},
	}
}

func newKeysRevokeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.RevokeKey(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"revoked": args[0]}})
		},
	}
}

func newMembersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "School membership",
	}

	var xlsx string
	list := &cobra.Command{
		Use:   "list",
		Short: "List school members (optionally exporting them to a spreadsheet)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			ms, err := c.ListMembers(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if xlsx != "" {
				if err := exportFile(xlsx, func(f *os.File) error { return export.Members(f, ms) }); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"path": xlsx, "rows": len(ms)}})
			}
			return writeOut(cmd, app, map[string]any{"data": ms})
		},
	}
	list.Flags().StringVar(&xlsx, "xlsx", "", "Write an .xlsx file instead of printing")

	var in api.MemberInput
	var role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a member by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Email = strings.TrimSpace(in.Email)
			in.Role = model.Role(strings.ToLower(strings.TrimSpace(role)))
			if err := validate.Struct(in); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			m, err := c.AddMember(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": m})
		},
	}
	add.Flags().StringVar(&in.Email, "email", "", "Member email")
	add.Flags().StringVar(&role, "role", string(model.RoleStudent), "Role (teacher|student|editor)")

	remove := &cobra.Command{
		Use:   "remove <user-id>",
		Short: "Remove a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.RemoveMember(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"removed": args[0]}})
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

// exportFile writes path atomically through fn.
func exportFile(path string, fn func(f *os.File) error) error {
	path = strings.TrimSpace(path)
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return fmt.Errorf("export path must end in .xlsx: %s", path)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
