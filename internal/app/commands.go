package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/MrSnakeDoc/stash/internal/authgate"
	"github.com/MrSnakeDoc/stash/internal/bookmarks"
	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/importer"
	"github.com/MrSnakeDoc/stash/internal/probe"
	"github.com/MrSnakeDoc/stash/internal/session"
	"github.com/MrSnakeDoc/stash/internal/version"
)

type command struct {
	name      string
	args      string
	summary   string
	bootstrap bool // restore the persisted session and theme first
	auth      bool // requires an authenticated session
	run       func(ctx context.Context, a *App, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{name: "login", args: "[-email e] [-password p] [-show-password]", summary: "log in", bootstrap: true, run: runLogin},
		{name: "register", args: "[-email e] [-password p] [-show-password]", summary: "create an account and log in", bootstrap: true, run: runRegister},
		{name: "logout", summary: "forget the stored session", bootstrap: true, run: runLogout},
		{name: "whoami", summary: "show the logged-in user", bootstrap: true, run: runWhoami},
		{name: "list", args: "[-expand id,...]", summary: "list bookmarks, newest first", bootstrap: true, auth: true, run: runList},
		{name: "add", args: "<url>", summary: "save a bookmark", bootstrap: true, auth: true, run: runAdd},
		{name: "delete", args: "<id>", summary: "delete a bookmark", bootstrap: true, auth: true, run: runDelete},
		{name: "import", args: "<bookmarks.yaml|services.yaml>", summary: "save every URL of a Homepage config", bootstrap: true, auth: true, run: runImport},
		{name: "probe", args: "[-json]", summary: "test the connection to the API", run: runProbe},
		{name: "theme", args: "[show|toggle|light|dark]", summary: "show or change the color theme", bootstrap: true, run: runTheme},
		{name: "shell", summary: "interactive session", bootstrap: true, run: runShell},
		{name: "version", summary: "print build information", run: runVersion},
		{name: "help", summary: "show this help", run: runHelp},
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: stash [-debug] [-api-url url] [-state file|redis|memory] <command> [args]")
	_, _ = fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range commands {
		_, _ = fmt.Fprintf(tw, "  %s %s\t%s\n", c.name, c.args, c.summary)
	}
	_ = tw.Flush()
}

func (a *App) usage() {
	writeUsage(a.errOut)
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func runLogin(ctx context.Context, a *App, args []string) error {
	return a.authenticate(ctx, "login", authgate.ModeLogin, args)
}

func runRegister(ctx context.Context, a *App, args []string) error {
	return a.authenticate(ctx, "register", authgate.ModeRegister, args)
}

func (a *App) authenticate(ctx context.Context, name string, mode authgate.Mode, args []string) error {
	fs := a.flagSet(name)
	email := fs.String("email", "", "account email (prompted when omitted)")
	password := fs.String("password", "", "account password (prompted when omitted)")
	show := fs.Bool("show-password", false, "echo the password while typing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *email == "" {
		if *email, err = a.readLine("Email: "); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = a.readPassword("Password: ", *show); err != nil {
			return err
		}
	}

	gate := a.newGate()
	if mode == authgate.ModeRegister {
		gate.ToggleMode()
	}
	gate.SetEmail(*email)
	gate.SetPassword(*password)
	if err := gate.Submit(ctx); err != nil {
		return errors.New(gate.Message())
	}

	return a.reportLogin()
}

var errLoginIncomplete = errors.New("login did not complete, the session changed meanwhile")

// reportLogin prints the authenticated user, or fails when the session is no
// longer authenticated.
func (a *App) reportLogin() error {
	st := a.session.State()
	if st.User == nil {
		return errLoginIncomplete
	}
	a.printf("✅ Logged in as %s\n", st.User.Email)
	return nil
}

func runLogout(ctx context.Context, a *App, _ []string) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.println("Logged out")
	return nil
}

func runWhoami(_ context.Context, a *App, _ []string) error {
	st := a.session.State()
	if st.Status() != session.StatusAuthenticated {
		a.println("not logged in")
		return nil
	}
	a.printf("%s (id %d)\n", st.User.Email, st.User.ID)
	return nil
}

func runList(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("list")
	expand := fs.String("expand", "", "comma-separated bookmark ids whose summaries are shown in full")
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, raw := range strings.Split(*expand, ",") {
		if raw = strings.TrimSpace(raw); raw == "" {
			continue
		}
		id, err := parseID(raw)
		if err != nil {
			return err
		}
		a.summary.Toggle(id)
	}

	err := a.sync.FetchAll(ctx)
	a.renderList(a.sync.State())
	if err != nil {
		return errors.New(bookmarks.LoadErrorMessage)
	}
	return nil
}

func runAdd(ctx context.Context, a *App, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: stash add <url>")
	}
	b, err := a.addBookmark(ctx, args[0])
	if err != nil {
		return err
	}
	if b != nil {
		a.printf("✅ Saved [%d] %s\n", b.ID, b.DisplayTitle())
	}
	return nil
}

// addBookmark saves rawURL. An empty URL is a no-op.
func (a *App) addBookmark(ctx context.Context, rawURL string) (*domain.Bookmark, error) {
	b, err := a.sync.Create(ctx, rawURL)
	switch {
	case errors.Is(err, bookmarks.ErrEmptyURL):
		return nil, nil
	case err != nil && b == nil:
		return nil, errors.New(bookmarks.ErrorMessage(err, bookmarks.SaveErrorMessage))
	case err != nil:
		a.logger.Warn("bookmark saved but the list was not refreshed")
	}
	return b, nil
}

func runDelete(ctx context.Context, a *App, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: stash delete <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := a.sync.Delete(ctx, id); err != nil {
		return errors.New(bookmarks.ErrorMessage(err, bookmarks.DeleteErrorMessage))
	}
	a.printf("🗑  Deleted bookmark %d\n", id)
	return nil
}

func runImport(ctx context.Context, a *App, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: stash import <file>")
	}
	entries, err := importer.Load(args[0])
	if err != nil {
		return err
	}

	report, err := importer.Import(ctx, a.sync, entries, a.logger)
	a.printf("Imported %d of %d bookmarks\n", len(report.Created), len(entries))
	for _, f := range report.Failed {
		a.printf("  ✗ %s (%s): %s\n", f.Entry.Name, f.Entry.URL, bookmarks.ErrorMessage(f.Err, bookmarks.SaveErrorMessage))
	}
	return err
}

func runProbe(ctx context.Context, a *App, args []string) error {
	fs := a.flagSet("probe")
	asJSON := fs.Bool("json", false, "print the full result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res := a.prober.Probe(ctx)
	if *asJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		a.println(string(data))
	} else {
		a.renderProbe(res)
	}
	if res.Phase == probe.PhaseError {
		return errors.New("API unreachable")
	}
	return nil
}

func runTheme(ctx context.Context, a *App, args []string) error {
	action := "show"
	if len(args) > 0 {
		action = strings.ToLower(args[0])
	}

	var err error
	switch action {
	case "show":
	case "toggle":
		_, err = a.theme.Toggle(ctx)
	case "light", "dark":
		_, err = a.theme.Set(ctx, domain.Theme(action))
	default:
		return fmt.Errorf("unknown theme action %q (want show, toggle, light or dark)", action)
	}
	if err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	a.printf("Theme: %s\n", a.theme.Current())
	return nil
}

func runVersion(_ context.Context, a *App, _ []string) error {
	a.println(version.String())
	return nil
}

func runHelp(_ context.Context, a *App, _ []string) error {
	writeUsage(a.out)
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid bookmark id %q", raw)
	}
	return id, nil
}
