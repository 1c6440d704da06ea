package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strconv"
	"strings"
	"time"

	"bookcraft-cli/internal/api"
	"bookcraft-cli/internal/auth"
	"bookcraft-cli/internal/format"
	"bookcraft-cli/internal/logger"
	"bookcraft-cli/internal/model"
	"bookcraft-cli/internal/offline"
	"bookcraft-cli/internal/perm"
	"bookcraft-cli/internal/store"
	"bookcraft-cli/internal/validate"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type App struct {
	APIURL     string
	Token      string
	Format     string
	PrettyJSON bool
	Offline    bool
	NoCache    bool
	LogLevel   string

	log     *logger.Logger
	cfg     *store.GlobalConfig
	session *store.Session

	client    *api.Client
	cache     *offline.Cache
	transport *offline.Transport
}

func NewRootCmd() *cobra.Command {
	// Existing env vars win over .env entries.
	_ = godotenv.Load()

	return newRootCmd(&App{})
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "bookcraft",
		Short:        "Bookcraft authoring CLI + chapter editor",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Sign in (the token is kept in ~/.bookcraft/session.json)
  bookcraft login --email teacher@example.com

  # Browse
  bookcraft books list
  bookcraft books tree <book-id>

  # Edit a chapter in the terminal editor (shortcut for: bookcraft edit <chapter-id>)
  bookcraft ch-42
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		app.log = logger.New(cmd.ErrOrStderr(), app.LogLevel)
		if err := app.loadState(); err != nil {
			return writeErr(cmd, err)
		}
		route := routeOf(cmd)
		switch auth.Gate(route, app.authenticated()) {
		case auth.RouteLogin:
			return writeErr(cmd, errLoginRequired)
		case auth.RouteBooks:
			who := "a user"
			if app.session.User != nil {
				who = app.session.User.Email
			}
			return writeErr(cmd, fmt.Errorf("already logged in as %s; run `bookcraft logout` to switch accounts", who))
		}
		if app.authenticated() {
			if err := perm.Check(app.role(), commandPath(cmd)); err != nil {
				return writeErr(cmd, err)
			}
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api", envOr("BOOKCRAFT_API_URL", ""), "API origin (default: config apiUrl or "+store.DefaultAPIURL+")")
	cmd.PersistentFlags().StringVar(&app.Token, "token", envOr("BOOKCRAFT_TOKEN", ""), "Bearer token (overrides the stored session)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("BOOKCRAFT_FORMAT", "json"), "Output format (json|yaml)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().BoolVar(&app.Offline, "offline", envBool("BOOKCRAFT_OFFLINE"), "Serve reads from the local cache only")
	cmd.PersistentFlags().BoolVar(&app.NoCache, "no-cache", false, "Bypass the local response cache")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("BOOKCRAFT_LOG_LEVEL", "warn"), "Log level (debug|info|warn|error)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newMeCmd(app))
	cmd.AddCommand(newBooksCmd(app))
	cmd.AddCommand(newSectionsCmd(app))
	cmd.AddCommand(newChaptersCmd(app))
	cmd.AddCommand(newBlocksCmd(app))
	cmd.AddCommand(newWidgetsCmd(app))
	cmd.AddCommand(newQuestionsCmd(app))
	cmd.AddCommand(newOptionsCmd(app))
	cmd.AddCommand(newQuizCmd(app))
	cmd.AddCommand(newKeysCmd(app))
	cmd.AddCommand(newMembersCmd(app))
	cmd.AddCommand(newAdminCmd(app))
	cmd.AddCommand(newPresenceCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newCacheCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	closeAfterRun(cmd, app)
	return cmd
}

// closeAfterRun wraps every RunE in the tree so the app is closed however the
// command ends. Cobra skips PersistentPostRunE when RunE fails.
func closeAfterRun(cmd *cobra.Command, app *App) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			defer app.close()
			return run(cmd, args)
		}
	}
	for _, c := range cmd.Commands() {
		closeAfterRun(c, app)
	}
}

// routeOf is the top-level command name, which is what access rules key on.
func routeOf(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	if !cmd.HasParent() {
		return ""
	}
	return cmd.Name()
}

// commandPath is the command path without the binary name.
func commandPath(cmd *cobra.Command) string {
	_, rest, _ := strings.Cut(cmd.CommandPath(), " ")
	return rest
}

// role is the signed-in role, from the stored user or the token's claims.
func (app *App) role() model.Role {
	if app.session != nil && app.session.User != nil && app.session.User.Role != "" && app.session.Token == app.Token {
		return app.session.User.Role
	}
	c, err := auth.ParseClaims(app.Token)
	if err != nil {
		return ""
	}
	return model.Role(c.Role)
}

func (app *App) loadState() error {
	cfg, err := store.LoadConfig()
	if err != nil {
		return err
	}
	app.cfg = cfg
	sess, err := store.LoadSession()
	if err != nil {
		return err
	}
	app.session = sess
	if strings.TrimSpace(app.Token) == "" {
		app.Token = sess.Token
	}
	if !app.Offline {
		app.Offline = cfg.Offline
	}
	return nil
}

func (app *App) authenticated() bool {
	return auth.Authenticated(app.Token, time.Now())
}

func (app *App) apiBase() string {
	if v := strings.TrimRight(strings.TrimSpace(app.APIURL), "/"); v != "" {
		return v
	}
	return app.cfg.APIBase()
}

// apiClient returns the REST client, building it on first use. Reads go through the
// offline cache unless --no-cache is set.
func (app *App) apiClient(ctx context.Context) (*api.Client, error) {
	if app.client != nil {
		return app.client, nil
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{Timeout: 30 * time.Second, Jar: jar}

	base := app.apiBase()
	c, err := api.New(base, api.WithHTTPClient(hc), api.WithToken(app.Token), api.WithLogger(app.log))
	if err != nil {
		return nil, err
	}

	if !app.NoCache {
		path, err := store.CachePath()
		if err != nil {
			return nil, err
		}
		cache, err := offline.Open(ctx, path, app.cfg.CacheGeneration())
		if err != nil {
			// Degrade to plain network access.
			app.log.Warn("offline cache unavailable", "path", path, "error", err)
		} else {
			if n, err := cache.Activate(ctx); err != nil {
				app.log.Warn("activate offline cache failed", "cache", cache.Name(), "error", err)
			} else if n > 0 {
				app.log.Info("dropped stale cache generations", "cache", cache.Name(), "entries", n)
			}
			app.cache = cache
			app.transport = offline.NewTransport(cache, c.BaseURL(),
				offline.WithLogger(app.log),
				offline.WithOffline(app.Offline),
			)
			hc.Transport = app.transport
		}
	}

	app.client = c
	return c, nil
}

func (app *App) close() {
	if app.transport != nil {
		app.transport.Wait()
	}
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.log.Warn("close offline cache failed", "error", err)
		}
		app.cache = nil
	}
	if app.log != nil {
		app.log.Sync()
	}
}

// saveSession persists the session, keeping the client token in sync.
func (app *App) saveSession() error {
	if app.client != nil {
		app.client.SetToken(app.session.Token)
	}
	return store.SaveSession(app.session)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(k)))
	return err == nil && v
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// writeErr prints err to stderr and returns it. Field errors print one
// `field: message` line each.
func writeErr(cmd *cobra.Command, err error) error {
	var fe validate.FieldErrors
	if errors.As(err, &fe) && len(fe) > 0 {
		for _, ln := range fe.Lines() {
			fmt.Fprintln(cmd.ErrOrStderr(), ln)
		}
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
