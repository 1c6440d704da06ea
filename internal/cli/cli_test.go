package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"bookcraft-cli/internal/model"
	"bookcraft-cli/internal/store"

	"github.com/xuri/excelize/v2"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// fakeAPI serves the handful of endpoints the command tests touch.
type fakeAPI struct {
	mu     sync.Mutex
	orders [][]model.OrderEntry
	auths   []string
	blocks  []model.Block
	answers []string
}

// accounts maps the fake server's tokens to their users.
var accounts = map[string]model.User{
	"tok-1":       {ID: "u1", Email: "t@example.com", Role: model.RoleTeacher},
	"tok-student": {ID: "u9", Email: "s@example.com", Role: model.RoleStudent},
}

func ok(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func fail(w http.ResponseWriter, status int, messages any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "messages": messages})
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "secret-pass" {
			fail(w, http.StatusBadRequest, "invalid credentials")
			return
		}
		token := "tok-1"
		if in.Email == "s@example.com" {
			token = "tok-student"
		}
		u := accounts[token]
		ok(w, map[string]any{"token": token, "user": u})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		u, found := accounts[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		if !found {
			fail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ok(w, u)
	})
	mux.HandleFunc("POST /api/books", func(w http.ResponseWriter, r *http.Request) {
		fail(w, http.StatusUnprocessableEntity, map[string]any{"title": []string{"already taken"}})
	})
	mux.HandleFunc("GET /api/chapters/{id}/blocks", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.auths = append(f.auths, r.Header.Get("Authorization"))
		blocks := append([]model.Block(nil), f.blocks...)
		f.mu.Unlock()
		ok(w, blocks)
	})
	mux.HandleFunc("PUT /api/chapters/{id}/blocks/order", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Order []model.OrderEntry `json:"order"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		f.orders = append(f.orders, in.Order)
		f.mu.Unlock()
		ok(w, nil)
	})
	mux.HandleFunc("POST /api/widgets/{id}/attempts", func(w http.ResponseWriter, r *http.Request) {
		ok(w, model.Attempt{ID: "att-1", WidgetID: r.PathValue("id")})
	})
	mux.HandleFunc("POST /api/attempts/{id}/answers", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Answer json.RawMessage `json:"answer"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		f.answers = append(f.answers, r.PathValue("id")+" "+string(in.Answer))
		f.mu.Unlock()
		ok(w, model.AnswerResult{Correct: true, Score: 1})
	})
	mux.HandleFunc("POST /api/attempts/{id}/complete", func(w http.ResponseWriter, r *http.Request) {
		ok(w, model.AttemptResult{AttemptID: r.PathValue("id"), Score: 1, MaxScore: 1, Completed: true})
	})
	mux.HandleFunc("GET /api/school/members", func(w http.ResponseWriter, r *http.Request) {
		ok(w, []model.SchoolMember{
			{UserID: "u2", Name: "Ada", Email: "ada@example.com", Role: model.RoleStudent},
			{UserID: "u3", Name: "Grace", Email: "grace@example.com", Role: model.RoleTeacher},
		})
	})
	return mux
}

func newFakeAPI(t *testing.T) (*fakeAPI, string) {
	t.Helper()
	t.Setenv("BOOKCRAFT_CONFIG_DIR", t.TempDir())
	t.Setenv("BOOKCRAFT_TOKEN", "")
	t.Setenv("BOOKCRAFT_OFFLINE", "")
	f := &fakeAPI{
		blocks: []model.Block{
			{ID: "b1", ChapterID: "ch1", Layout: model.LayoutSingle, Order: 1},
			{ID: "b2", ChapterID: "ch1", Layout: model.LayoutSingle, Order: 2, Widgets: []model.Widget{
				{ID: "wq", BlockID: "b2", Type: model.WidgetSingleChoice, Data: json.RawMessage(`{}`)},
				{ID: "wt", BlockID: "b2", Type: model.WidgetText, Column: 0, Row: 1, Data: json.RawMessage(`{"markdown":"hi"}`)},
			}},
			{ID: "b3", ChapterID: "ch1", Layout: model.LayoutSingle, Order: 3},
		},
	}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func decodeEnvelope(t *testing.T, stdout []byte) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s", err, string(stdout))
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("expected JSON envelope to contain data key; got: %v", env)
	}
	return env
}

func TestProtectedCommandWithoutSessionAsksForLogin(t *testing.T) {
	_, base := newFakeAPI(t)

	_, stderr, err := runCLI(t, []string{"--api", base, "--no-cache", "books", "list"})
	if err == nil {
		t.Fatalf("expected error without a session")
	}
	if !strings.Contains(string(stderr), "bookcraft login") {
		t.Fatalf("expected login hint on stderr, got: %s", stderr)
	}
}

func TestLoginStoresSessionAndGuestsRoutesClose(t *testing.T) {
	_, base := newFakeAPI(t)

	stdout, stderr, err := runCLI(t, []string{"--api", base, "--no-cache", "login", "--email", "t@example.com", "--password", "secret-pass"})
	if err != nil {
		t.Fatalf("login: %v\nstderr:\n%s", err, stderr)
	}
	env := decodeEnvelope(t, stdout)
	if hints, _ := env["_hints"].([]any); len(hints) == 0 {
		t.Fatalf("expected hints after login, got %v", env)
	}

	sess, err := store.LoadSession()
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if sess.Token != "tok-1" || sess.User == nil || sess.User.Email != "t@example.com" {
		t.Fatalf("unexpected stored session: %+v", sess)
	}

	// The stored token now authenticates protected commands.
	if _, stderr, err := runCLI(t, []string{"--api", base, "--no-cache", "me"}); err != nil {
		t.Fatalf("me: %v\nstderr:\n%s", err, stderr)
	}

	// And login is a guest route, so it is refused while signed in.
	_, stderr, err = runCLI(t, []string{"--api", base, "--no-cache", "login", "--email", "t@example.com", "--password", "secret-pass"})
	if err == nil || !strings.Contains(string(stderr), "already logged in as t@example.com") {
		t.Fatalf("expected already-logged-in error, got err=%v stderr=%s", err, stderr)
	}
}

func TestLoginValidatesBeforeCallingServer(t *testing.T) {
	_, base := newFakeAPI(t)

	_, stderr, err := runCLI(t, []string{"--api", base, "--no-cache", "login", "--email", "not-an-email"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "email: ") || !strings.HasPrefix(lines[1], "password: ") {
		t.Fatalf("expected one line per field, got:\n%s", stderr)
	}
}

func TestServerFieldErrorsPrintPerField(t *testing.T) {
	_, base := newFakeAPI(t)

	_, stderr, err := runCLI(t, []string{"--api", base, "--token", "tok-1", "--no-cache", "books", "create", "--title", "Algebra"})
	if err == nil {
		t.Fatalf("expected server validation error")
	}
	if got := strings.TrimSpace(string(stderr)); got != "title: already taken" {
		t.Fatalf("unexpected stderr: %q", got)
	}
}

func TestBlocksSwapPersistsWholeOrder(t *testing.T) {
	f, base := newFakeAPI(t)

	stdout, stderr, err := runCLI(t, []string{"--api", base, "--token", "tok-1", "--no-cache", "blocks", "swap", "ch1", "b1", "b3"})
	if err != nil {
		t.Fatalf("swap: %v\nstderr:\n%s", err, stderr)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.orders) != 1 {
		t.Fatalf("expected one order write, got %d", len(f.orders))
	}
	want := []model.OrderEntry{{ID: "b3", Order: 1}, {ID: "b2", Order: 2}, {ID: "b1", Order: 3}}
	got := f.orders[0]
	if len(got) != len(want) {
		t.Fatalf("order = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if f.auths[0] != "Bearer tok-1" {
		t.Fatalf("expected bearer token on requests, got %q", f.auths[0])
	}

	env := decodeEnvelope(t, stdout)
	data, _ := env["data"].([]any)
	if len(data) != 3 {
		t.Fatalf("expected 3 entries in output, got %v", env["data"])
	}
}

func TestBlocksSwapUnknownBlockWritesNothing(t *testing.T) {
	f, base := newFakeAPI(t)

	_, _, err := runCLI(t, []string{"--api", base, "--token", "tok-1", "--no-cache", "blocks", "swap", "ch1", "b1", "nope"})
	if err == nil {
		t.Fatalf("expected error for unknown block")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.orders) != 0 {
		t.Fatalf("expected no order write, got %v", f.orders)
	}
}

func TestExpiredTokenIsTreatedAsSignedOut(t *testing.T) {
	_, base := newFakeAPI(t)

	// header {"alg":"none"}, payload {"sub":"u1","exp":1}
	expired := "eyJhbGciOiJub25lIn0.eyJzdWIiOiJ1MSIsImV4cCI6MX0."
	_, stderr, err := runCLI(t, []string{"--api", base, "--token", expired, "--no-cache", "blocks", "list", "ch1"})
	if err == nil || !strings.Contains(string(stderr), "login") {
		t.Fatalf("expected login error for expired token, got err=%v stderr=%s", err, stderr)
	}
}

func TestConfigSetThenGet(t *testing.T) {
	t.Setenv("BOOKCRAFT_CONFIG_DIR", t.TempDir())
	t.Setenv("BOOKCRAFT_TOKEN", "")

	if _, stderr, err := runCLI(t, []string{"config", "set", "debounceMs", "250"}); err != nil {
		t.Fatalf("config set: %v\nstderr:\n%s", err, stderr)
	}
	if _, stderr, err := runCLI(t, []string{"config", "set", "tui.preview", "off"}); err != nil {
		t.Fatalf("config set: %v\nstderr:\n%s", err, stderr)
	}
	if _, _, err := runCLI(t, []string{"config", "set", "nope", "1"}); err == nil {
		t.Fatalf("expected unknown key error")
	}

	stdout, stderr, err := runCLI(t, []string{"config", "get"})
	if err != nil {
		t.Fatalf("config get: %v\nstderr:\n%s", err, stderr)
	}
	data, _ := decodeEnvelope(t, stdout)["data"].(map[string]any)
	if data["debounceMs"] != float64(250) {
		t.Fatalf("debounceMs = %v", data["debounceMs"])
	}
	tuiCfg, _ := data["tui"].(map[string]any)
	if tuiCfg["preview"] != false {
		t.Fatalf("tui.preview = %v", tuiCfg["preview"])
	}
	if data["flushOnClose"] != true {
		t.Fatalf("flushOnClose should default to true, got %v", data["flushOnClose"])
	}
}

func TestYAMLFormat(t *testing.T) {
	t.Setenv("BOOKCRAFT_CONFIG_DIR", t.TempDir())
	t.Setenv("BOOKCRAFT_TOKEN", "")

	stdout, stderr, err := runCLI(t, []string{"--format", "yaml", "config", "get"})
	if err != nil {
		t.Fatalf("config get: %v\nstderr:\n%s", err, stderr)
	}
	if !strings.Contains(string(stdout), "data:") || !strings.Contains(string(stdout), "debounceMs: 500") {
		t.Fatalf("unexpected yaml output:\n%s", stdout)
	}
}

func TestCacheStatusAndPurge(t *testing.T) {
	_, base := newFakeAPI(t)

	// A cached read populates the active generation.
	if _, stderr, err := runCLI(t, []string{"--api", base, "--token", "tok-1", "blocks", "list", "ch1"}); err != nil {
		t.Fatalf("blocks list: %v\nstderr:\n%s", err, stderr)
	}

	stdout, stderr, err := runCLI(t, []string{"cache", "status"})
	if err != nil {
		t.Fatalf("cache status: %v\nstderr:\n%s", err, stderr)
	}
	data, _ := decodeEnvelope(t, stdout)["data"].(map[string]any)
	if data["active"] != "bookcraft-v1" {
		t.Fatalf("active = %v", data["active"])
	}

	stdout, stderr, err = runCLI(t, []string{"cache", "purge"})
	if err != nil {
		t.Fatalf("cache purge: %v\nstderr:\n%s", err, stderr)
	}
	data, _ = decodeEnvelope(t, stdout)["data"].(map[string]any)
	if n, _ := data["deleted"].(float64); n < 1 {
		t.Fatalf("expected purge to delete the cached read, got %v", data["deleted"])
	}
}

func TestMembersListExportsSpreadsheet(t *testing.T) {
	_, base := newFakeAPI(t)
	out := filepath.Join(t.TempDir(), "members.xlsx")

	stdout, stderr, err := runCLI(t, []string{"--api", base, "--token", "tok-1", "--no-cache", "members", "list", "--xlsx", out})
	if err != nil {
		t.Fatalf("members list: %v\nstderr:\n%s", err, stderr)
	}
	data, _ := decodeEnvelope(t, stdout)["data"].(map[string]any)
	if data["rows"] != float64(2) {
		t.Fatalf("rows = %v", data["rows"])
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}

	entries, _ := os.ReadDir(filepath.Dir(out))
	if len(entries) != 1 {
		t.Fatalf("expected only the export file, got %d entries", len(entries))
	}
}

func TestExportRequiresXLSXExtension(t *testing.T) {
	err := exportFile(filepath.Join(t.TempDir(), "keys.csv"), func(*os.File) error { return nil })
	if err == nil {
		t.Fatalf("expected extension error")
	}
}

func TestParseExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-03-01T10:00:00+02:00", time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)},
		{"48h", now.Add(48 * time.Hour)},
	}
	for _, c := range cases {
		got, err := parseExpiry(c.in, now)
		if err != nil {
			t.Fatalf("parseExpiry(%q): %v", c.in, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("parseExpiry(%q) = %v, want %v", c.in, got, c.want)
		}
	}
	if _, err := parseExpiry("-1h", now); err == nil {
		t.Fatalf("expected error for negative duration")
	}
}

func TestSettingsPatchTypesScalars(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(file, []byte("registrationOpen: false\nmaxUploadMb: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	patch, err := settingsPatch(file, []string{"maxUploadMb=25", "siteName=Bookcraft"})
	if err != nil {
		t.Fatalf("settingsPatch: %v", err)
	}
	if patch["registrationOpen"] != false {
		t.Fatalf("registrationOpen = %#v", patch["registrationOpen"])
	}
	if patch["maxUploadMb"] != 25 {
		t.Fatalf("maxUploadMb = %#v", patch["maxUploadMb"])
	}
	if patch["siteName"] != "Bookcraft" {
		t.Fatalf("siteName = %#v", patch["siteName"])
	}

	if _, err := settingsPatch("", []string{"novalue"}); err == nil {
		t.Fatalf("expected error for missing '='")
	}
	if _, err := settingsPatch("", nil); err == nil {
		t.Fatalf("expected error for empty patch")
	}
}

func TestRouteOf(t *testing.T) {
	root := NewRootCmd()
	cases := map[string][]string{
		"books":  {"books", "list"},
		"cache":  {"cache", "purge"},
		"login":  {"login"},
		"blocks": {"blocks", "swap"},
	}
	for want, path := range cases {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Fatalf("find %v: %v", path, err)
		}
		if got := routeOf(cmd); got != want {
			t.Fatalf("routeOf(%v) = %q, want %q", path, got, want)
		}
	}
	if got := routeOf(root); got != "" {
		t.Fatalf("routeOf(root) = %q", got)
	}
}

func TestDocsArePublic(t *testing.T) {
	t.Setenv("BOOKCRAFT_CONFIG_DIR", t.TempDir())
	t.Setenv("BOOKCRAFT_TOKEN", "")

	stdout, stderr, err := runCLI(t, []string{"docs"})
	if err != nil {
		t.Fatalf("docs: %v\nstderr:\n%s", err, stderr)
	}
	topics, _ := decodeEnvelope(t, stdout)["data"].([]any)
	if len(topics) == 0 {
		t.Fatalf("expected topics")
	}

	stdout, stderr, err = runCLI(t, []string{"docs", "editor", "--raw"})
	if err != nil {
		t.Fatalf("docs editor: %v\nstderr:\n%s", err, stderr)
	}
	if !strings.HasPrefix(string(stdout), "# Chapter editor") {
		t.Fatalf("unexpected docs output:\n%s", stdout)
	}

	if _, _, err := runCLI(t, []string{"docs", "nope"}); err == nil {
		t.Fatalf("expected unknown topic error")
	}
}

func TestStudentCannotRunTeacherCommands(t *testing.T) {
	_, base := newFakeAPI(t)
	if err := store.SaveSession(&store.Session{
		Token: "tok-1",
		User:  &model.User{ID: "u9", Email: "s@example.com", Role: model.RoleStudent},
	}); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := runCLI(t, []string{"--api", base, "--no-cache", "members", "list"})
	if err == nil || !strings.Contains(string(stderr), "student accounts cannot run `bookcraft members list`") {
		t.Fatalf("expected role error, got err=%v stderr=%s", err, stderr)
	}

	if _, stderr, err := runCLI(t, []string{"--api", base, "--no-cache", "blocks", "list", "ch1"}); err != nil {
		t.Fatalf("students may read blocks: %v\nstderr:\n%s", err, stderr)
	}
}

func TestQuizAttemptSpansInvocations(t *testing.T) {
	f, base := newFakeAPI(t)
	if err := store.SaveSession(&store.Session{
		Token: "tok-1",
		User:  &model.User{ID: "u9", Email: "s@example.com", Role: model.RoleStudent},
	}); err != nil {
		t.Fatal(err)
	}
	common := []string{"--api", base, "--no-cache"}

	if _, stderr, err := runCLI(t, append(common, "quiz", "start", "ch1", "wt")); err == nil {
		t.Fatalf("expected text widget to be rejected")
	} else if !strings.Contains(string(stderr), "not a quiz") {
		t.Fatalf("unexpected stderr: %s", stderr)
	}

	if _, stderr, err := runCLI(t, append(common, "quiz", "start", "ch1", "wq")); err != nil {
		t.Fatalf("quiz start: %v\nstderr:\n%s", err, stderr)
	}
	sess, _ := store.LoadSession()
	if sess.Attempt == nil || sess.Attempt.AttemptID != "att-1" || sess.Attempt.WidgetType != model.WidgetSingleChoice {
		t.Fatalf("expected held attempt, got %+v", sess.Attempt)
	}

	// The widget type comes from the held attempt.
	if _, stderr, err := runCLI(t, append(common, "quiz", "answer", "wq", "opt-2")); err != nil {
		t.Fatalf("quiz answer: %v\nstderr:\n%s", err, stderr)
	}
	f.mu.Lock()
	answers := append([]string(nil), f.answers...)
	f.mu.Unlock()
	if len(answers) != 1 || !strings.HasPrefix(answers[0], "att-1 ") || !strings.Contains(answers[0], "opt-2") {
		t.Fatalf("unexpected answers: %v", answers)
	}

	stdout, stderr, err := runCLI(t, append(common, "quiz", "complete", "wq"))
	if err != nil {
		t.Fatalf("quiz complete: %v\nstderr:\n%s", err, stderr)
	}
	data, _ := decodeEnvelope(t, stdout)["data"].(map[string]any)
	if data["completed"] != true {
		t.Fatalf("unexpected result: %v", data)
	}
	sess, _ = store.LoadSession()
	if sess.Attempt != nil {
		t.Fatalf("expected attempt to be cleared, got %+v", sess.Attempt)
	}
}

func meEmail(t *testing.T, args []string) string {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("me: %v\nstderr:\n%s", err, stderr)
	}
	data, _ := decodeEnvelope(t, stdout)["data"].(map[string]any)
	email, _ := data["email"].(string)
	return email
}

func TestSwitchingAccountsDoesNotServeCachedProfile(t *testing.T) {
	_, base := newFakeAPI(t)

	if got := meEmail(t, []string{"--api", base, "--token", "tok-1", "me"}); got != "t@example.com" {
		t.Fatalf("me as teacher = %q", got)
	}

	student := accounts["tok-student"]
	if err := store.SaveSession(&store.Session{Token: "tok-student", User: &student}); err != nil {
		t.Fatal(err)
	}
	if got := meEmail(t, []string{"--api", base, "me"}); got != "s@example.com" {
		t.Fatalf("me as student = %q", got)
	}

	sess, err := store.LoadSession()
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if sess.User == nil || sess.User.Role != model.RoleStudent {
		t.Fatalf("expected stored user to stay the student, got %+v", sess.User)
	}

	// Permission checks keep using the student's role.
	_, stderr, err := runCLI(t, []string{"--api", base, "members", "list"})
	if err == nil || !strings.Contains(string(stderr), "student accounts cannot run") {
		t.Fatalf("expected role error, got err=%v stderr=%s", err, stderr)
	}
}

func TestLoginAndLogoutPurgeCachedResponses(t *testing.T) {
	_, base := newFakeAPI(t)

	cachedEntries := func() float64 {
		t.Helper()
		stdout, stderr, err := runCLI(t, []string{"cache", "status"})
		if err != nil {
			t.Fatalf("cache status: %v\nstderr:\n%s", err, stderr)
		}
		data, _ := decodeEnvelope(t, stdout)["data"].(map[string]any)
		gens, _ := data["generations"].([]any)
		var n float64
		for _, g := range gens {
			m, _ := g.(map[string]any)
			c, _ := m["entries"].(float64)
			n += c
		}
		return n
	}

	if _, stderr, err := runCLI(t, []string{"--api", base, "--token", "tok-1", "blocks", "list", "ch1"}); err != nil {
		t.Fatalf("blocks list: %v\nstderr:\n%s", err, stderr)
	}
	if n := cachedEntries(); n < 1 {
		t.Fatalf("expected a cached read, got %v entries", n)
	}

	if _, stderr, err := runCLI(t, []string{"--api", base, "login", "--email", "s@example.com", "--password", "secret-pass"}); err != nil {
		t.Fatalf("login: %v\nstderr:\n%s", err, stderr)
	}
	if n := cachedEntries(); n != 0 {
		t.Fatalf("expected login to empty the cache, got %v entries", n)
	}

	if _, stderr, err := runCLI(t, []string{"--api", base, "me"}); err != nil {
		t.Fatalf("me: %v\nstderr:\n%s", err, stderr)
	}
	if _, stderr, err := runCLI(t, []string{"logout"}); err != nil {
		t.Fatalf("logout: %v\nstderr:\n%s", err, stderr)
	}
	if n := cachedEntries(); n != 0 {
		t.Fatalf("expected logout to empty the cache, got %v entries", n)
	}
}

func TestCacheIsClosedWhenCommandFails(t *testing.T) {
	_, base := newFakeAPI(t)

	app := &App{}
	cmd := newRootCmd(app)
	var out, errBuf bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errBuf)
	cmd.SetArgs([]string{"--api", base, "--token", "tok-1", "blocks", "swap", "ch1", "b1", "nope"})

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected swap with an unknown block to fail")
	}
	if app.client == nil {
		t.Fatalf("expected the command to have built an API client")
	}
	if app.cache != nil {
		t.Fatalf("expected the offline cache to be closed after a failed command")
	}
}
