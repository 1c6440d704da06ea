package cli

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"bookcraft-cli/internal/api"
	"bookcraft-cli/internal/store"
	"bookcraft-cli/internal/validate"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	var email string
	var password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				p, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return writeErr(cmd, err)
				}
				password = p
			}
			in := api.LoginInput{Email: strings.TrimSpace(email), Password: password}
			if err := validate.Struct(in); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			token, user, err := c.Login(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			app.session = &store.Session{Token: token, User: user}
			if err := app.saveSession(); err != nil {
				return writeErr(cmd, err)
			}
			dropCachedResponses(cmd, app)
			return writeOut(cmd, app, map[string]any{
				"data":   user,
				"_hints": []string{"bookcraft books list"},
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", envOr("BOOKCRAFT_EMAIL", ""), "Account email")
	cmd.Flags().StringVar(&password, "password", envOr("BOOKCRAFT_PASSWORD", ""), "Account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var in api.RegisterInput
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account (optionally redeeming an activation key) and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				p, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return writeErr(cmd, err)
				}
				in.Password = p
			}
			in.Name = strings.TrimSpace(in.Name)
			in.Email = strings.TrimSpace(in.Email)
			in.Key = strings.ToUpper(strings.TrimSpace(in.Key))
			if err := validate.Struct(in); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			token, user, err := c.Register(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			app.session = &store.Session{Token: token, User: user}
			if err := app.saveSession(); err != nil {
				return writeErr(cmd, err)
			}
			dropCachedResponses(cmd, app)
			return writeOut(cmd, app, map[string]any{"data": user})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&in.Password, "password", envOr("BOOKCRAFT_PASSWORD", ""), "Password (min 8 characters)")
	cmd.Flags().StringVar(&in.Key, "key", "", "Activation key to redeem")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.ClearSession(); err != nil {
				return writeErr(cmd, err)
			}
			app.session = &store.Session{}
			dropCachedResponses(cmd, app)
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"loggedOut": true}})
		},
	}
}

func newMeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			u, err := c.Me(cmd.Context())
			if err != nil {
				if errors.Is(err, api.ErrUnauthorized) {
					_ = store.ClearSession()
					return writeErr(cmd, errLoginRequired)
				}
				return writeErr(cmd, err)
			}
			if app.session.Token == app.Token {
				app.session.User = u
				_ = store.SaveSession(app.session)
			}
			return writeOut(cmd, app, map[string]any{"data": u})
		},
	}
}

func readSecret(r io.Reader) (string, error) {
	ln, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(ln, "\r\n"), nil
}
