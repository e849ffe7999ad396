package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MrSnakeDoc/stash/internal/authgate"
	"github.com/MrSnakeDoc/stash/internal/bookmarks"
	"github.com/MrSnakeDoc/stash/internal/session"
	"github.com/MrSnakeDoc/stash/internal/version"
)

const authHelp = `auth commands:
  email <address>     set the email
  password [secret]   set the password (prompted when omitted)
  show                toggle password visibility
  toggle              switch between login and register
  submit              log in or register
  status              show the form
  probe | theme [..] | help | quit`

const dashboardHelp = `dashboard commands:
  list                show the bookmarks
  refresh             reload the bookmarks from the server
  add <url>           save a bookmark
  delete <id>         delete a bookmark
  more <id>           show more or less of a summary
  whoami | logout | probe | theme [..] | help | quit`

// shell renders the auth form while anonymous and the dashboard once a
// session exists. The bookmark watcher refreshes the dashboard on its own.
type shell struct {
	app  *App
	gate *authgate.Gate
	show bool
}

func runShell(ctx context.Context, a *App, _ []string) error {
	sh := &shell{app: a, gate: a.newGate()}

	watcher := bookmarks.NewWatcher(a.sync, a.bus, a.session, a.logger, sh.onFetch)
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := watcher.Start(wctx); err != nil {
		return fmt.Errorf("failed to start bookmark watcher: %w", err)
	}
	defer watcher.Stop()

	a.printf("stash %s, API %s. Type `help` for commands.\n", version.Version, a.client.BaseURL())

	for {
		line, err := a.readLine(sh.prompt())
		if errors.Is(err, io.EOF) {
			a.println()
			return nil
		}
		if err != nil {
			return err
		}

		name, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		switch name {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		if a.session.State().Status() == session.StatusAuthenticated {
			err = sh.dashboard(ctx, name, rest)
		} else {
			err = sh.auth(ctx, name, rest)
		}
		if err != nil {
			a.printf("❌ %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (sh *shell) prompt() string {
	st := sh.app.session.State()
	if st.Status() == session.StatusAuthenticated {
		return fmt.Sprintf("stash (%s)> ", st.User.Email)
	}
	return fmt.Sprintf("%s> ", sh.gate.Mode())
}

func (sh *shell) onFetch(_ bookmarks.Trigger, err error) {
	if errors.Is(err, bookmarks.ErrNotAuthenticated) {
		return
	}
	sh.app.renderList(sh.app.sync.State())
}

func (sh *shell) auth(ctx context.Context, name, rest string) error {
	a := sh.app
	switch name {
	case "email":
		sh.gate.SetEmail(rest)
	case "password":
		pw := rest
		if pw == "" {
			var err error
			if pw, err = a.readPassword("Password: ", sh.show); err != nil {
				return err
			}
		}
		sh.gate.SetPassword(pw)
	case "show":
		sh.show = sh.gate.TogglePasswordVisibility()
		a.printf("Password: %s\n", sh.gate.MaskedPassword())
	case "toggle":
		a.printf("Mode: %s\n", sh.gate.ToggleMode())
	case "submit":
		if err := sh.gate.Submit(ctx); err != nil {
			return errors.New(sh.gate.Message())
		}
		return a.reportLogin()
	case "status":
		a.printf("Mode: %s\nEmail: %s\nPassword: %s\n", sh.gate.Mode(), sh.gate.Email(), sh.gate.MaskedPassword())
		if msg := sh.gate.Message(); msg != "" {
			a.printf("Error: %s\n", msg)
		}
	case "help":
		a.println(authHelp)
	default:
		return sh.common(ctx, name, rest, authHelp)
	}
	return nil
}

func (sh *shell) dashboard(ctx context.Context, name, rest string) error {
	a := sh.app
	switch name {
	case "list":
		a.renderList(a.sync.State())
	case "refresh":
		err := a.sync.FetchAll(ctx)
		a.renderList(a.sync.State())
		if err != nil {
			return errors.New(bookmarks.LoadErrorMessage)
		}
	case "add":
		b, err := a.addBookmark(ctx, rest)
		if err != nil {
			return err
		}
		if b != nil {
			a.printf("✅ Saved [%d] %s\n", b.ID, b.DisplayTitle())
		}
	case "delete":
		return runDelete(ctx, a, strings.Fields(rest))
	case "more":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		if _, ok := a.sync.Find(id); !ok {
			return fmt.Errorf("no bookmark %d in the list", id)
		}
		a.summary.Toggle(id)
		a.renderList(a.sync.State())
	case "whoami":
		return runWhoami(ctx, a, nil)
	case "logout":
		if err := runLogout(ctx, a, nil); err != nil {
			return err
		}
		sh.gate = a.newGate()
		sh.show = false
	case "help":
		a.println(dashboardHelp)
	default:
		return sh.common(ctx, name, rest, dashboardHelp)
	}
	return nil
}

func (sh *shell) common(ctx context.Context, name, rest, help string) error {
	switch name {
	case "probe":
		return runProbe(ctx, sh.app, strings.Fields(rest))
	case "theme":
		return runTheme(ctx, sh.app, strings.Fields(rest))
	default:
		return fmt.Errorf("unknown command %q\n%s", name, help)
	}
}
