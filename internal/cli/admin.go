package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"bookcraft-cli/internal/model"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newAdminCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Platform administration (admin role)",
	}

	users := &cobra.Command{
		Use:   "users",
		Short: "User administration",
	}
	users.AddCommand(newAdminUsersListCmd(app))
	users.AddCommand(newAdminUsersRoleCmd(app))
	users.AddCommand(newAdminUsersBlockCmd(app, true))
	users.AddCommand(newAdminUsersBlockCmd(app, false))

	cmd.AddCommand(users)
	cmd.AddCommand(newAdminSettingsCmd(app))
	cmd.AddCommand(newAdminStatsCmd(app))
	return cmd
}

func parseRole(s string) (model.Role, error) {
	r := model.Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case model.RoleAdmin, model.RoleTeacher, model.RoleStudent, model.RoleEditor:
		return r, nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

func newAdminUsersListCmd(app *App) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r model.Role
			if role != "" {
				parsed, err := parseRole(role)
				if err != nil {
					return writeErr(cmd, err)
				}
				r = parsed
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			us, err := c.ListUsers(cmd.Context(), r)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": us})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "Only users with this role")
	return cmd
}

func newAdminUsersRoleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <user-id> <role>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRole(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			u, err := c.SetUserRole(cmd.Context(), args[0], r)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": u})
		},
	}
}

func newAdminUsersBlockCmd(app *App, block bool) *cobra.Command {
	use, short := "block <user-id>", "Block a user from signing in"
	if !block {
		use, short = "unblock <user-id>", "Allow a blocked user to sign in again"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			u, err := c.SetUserBlocked(cmd.Context(), args[0], block)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": u})
		},
	}
}

func newAdminSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Platform settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := c.GetSettings(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": s})
		},
	}

	var file string
	set := &cobra.Command{
		Use:   "set [key=value...]",
		Short: "Patch settings from key=value pairs and/or a YAML or JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := settingsPatch(file, args)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := c.UpdateSettings(cmd.Context(), patch)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": s})
		},
	}
	set.Flags().StringVar(&file, "file", "", "YAML (or JSON) file with settings")

	cmd.AddCommand(set)
	return cmd
}

// settingsPatch merges a YAML/JSON file with key=value args (args win).
// Values in args are decoded as YAML scalars, so true/42 keep their type.
func settingsPatch(file string, args []string) (model.Settings, error) {
	patch := model.Settings{}
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &patch); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid setting %q (want key=value)", a)
		}
		var val any
		if err := yaml.Unmarshal([]byte(v), &val); err != nil || val == nil {
			val = v
		}
		patch[k] = val
	}
	if len(patch) == 0 {
		return nil, errors.New("nothing to set")
	}
	return patch, nil
}

func newAdminStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Platform counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := c.Stats(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": st})
		},
	}
}
