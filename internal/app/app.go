package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/term"

	"github.com/MrSnakeDoc/stash/internal/api"
	"github.com/MrSnakeDoc/stash/internal/authgate"
	"github.com/MrSnakeDoc/stash/internal/bookmarks"
	"github.com/MrSnakeDoc/stash/internal/config"
	"github.com/MrSnakeDoc/stash/internal/events"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/probe"
	"github.com/MrSnakeDoc/stash/internal/session"
	"github.com/MrSnakeDoc/stash/internal/statestore"
	"github.com/MrSnakeDoc/stash/internal/theme"
	"github.com/MrSnakeDoc/stash/internal/utils"
	"github.com/MrSnakeDoc/stash/internal/version"
)

// Streams are the terminal the app talks to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// App wires the client components together for one process.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	client  *api.Client
	state   statestore.Store
	session *session.Store
	bus     *events.Bus
	sync    *bookmarks.Sync
	summary *bookmarks.SummaryView
	theme   *theme.Manager
	prober  *probe.Prober

	in          *bufio.Reader
	inFD        int
	interactive bool
	color       bool

	outMu  sync.Mutex
	out    io.Writer
	errOut io.Writer
}

// New builds the app. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger, s Streams) (*App, error) {
	state, err := openStateStore(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	client := api.New(api.Options{
		BaseURL:         cfg.APIBaseURL(),
		RootURL:         cfg.ServerRootURL(),
		Timeout:         cfg.RequestTimeout,
		RegisterTimeout: cfg.RegisterTimeout,
		UserAgent:       version.UserAgent(),
		Logger:          loggerClient,
	})

	sess := session.New(client, state, loggerClient)
	bus := events.NewBus()

	a := &App{
		cfg:     cfg,
		logger:  loggerClient,
		client:  client,
		state:   state,
		session: sess,
		bus:     bus,
		sync:    bookmarks.NewSync(client, sess, bus, loggerClient),
		summary: bookmarks.NewSummaryView(),
		theme:   theme.New(state, cfg.ThemeDefault, loggerClient),
		prober:  probe.New(client.WithTimeout(cfg.ProbeTimeout), loggerClient),
		in:      bufio.NewReader(s.In),
		inFD:    -1,
		out:     s.Out,
		errOut:  s.Err,
	}

	if f, ok := s.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		a.inFD = int(f.Fd())
		a.interactive = true
	}
	if f, ok := s.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		a.color = true
	}
	return a, nil
}

// Close releases the session and the state store.
func (a *App) Close() {
	a.session.Close()
	utils.MustClose(a.state, a.logger, "state store")
}

// Run executes one command.
func (a *App) Run(ctx context.Context, name string, args []string) error {
	cmd, ok := lookup(name)
	if !ok {
		a.usage()
		return fmt.Errorf("unknown command %q", name)
	}

	if cmd.bootstrap {
		if err := a.bootstrap(ctx); err != nil {
			return err
		}
	}
	if cmd.auth && a.session.State().Status() != session.StatusAuthenticated {
		return errNotLoggedIn
	}
	return cmd.run(ctx, a, args)
}

var errNotLoggedIn = errors.New("not logged in, run `stash login` first")

// bootstrap restores the persisted session and theme.
func (a *App) bootstrap(ctx context.Context) error {
	if err := a.session.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	if _, err := a.theme.Load(ctx); err != nil {
		a.logger.Warn("failed to load theme preference, using detected theme", logger.Error(err))
	}
	return nil
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, _ = fmt.Fprintln(a.out, args...)
}

// Main is the stash entrypoint. It returns the process exit code.
func Main(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("stash", flag.ContinueOnError)
	fs.SetOutput(stderr)
	debug := fs.Bool("debug", false, "log at debug level")
	apiURL := fs.String("api-url", "", "override STASH_API_URL")
	stateBackend := fs.String("state", "", "override STASH_STATE_BACKEND (file, redis, memory)")
	fs.Usage = func() { writeUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	name := fs.Arg(0)
	if name == "" {
		writeUsage(stderr)
		return 2
	}

	cfg := config.Load()
	if *debug {
		cfg.LogLevel = "debug"
	}
	if *apiURL != "" {
		cfg.APIURL = strings.TrimRight(*apiURL, "/")
		cfg.UseLocalAPI = false
	}
	if *stateBackend != "" {
		cfg.StateBackend = strings.ToLower(*stateBackend)
	}

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer func() { _ = loggerClient.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := New(ctx, cfg, loggerClient, Streams{In: stdin, Out: stdout, Err: stderr})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	defer a.Close()

	if err := a.Run(ctx, name, fs.Args()[1:]); err != nil {
		_, _ = fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}

func (a *App) newGate() *authgate.Gate {
	return authgate.New(a.session, authgate.Options{
		BaseURL: a.client.BaseURL(),
		Logger:  a.logger,
	})
}
