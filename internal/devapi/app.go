package devapi

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/stash/internal/config"
	"github.com/MrSnakeDoc/stash/internal/httpserver"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/index"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/scheduler"
	"github.com/MrSnakeDoc/stash/internal/sessiondb"
	"github.com/MrSnakeDoc/stash/internal/version"
)

// App is the local development backend: an in-memory implementation of the
// bookmark API the client talks to.
type App struct {
	cfg      *config.DevAPIConfig
	logger   logger.Logger
	server   *httpserver.Server
	memIndex *index.MemoryIndex
	sessions *sessiondb.DB
	sweeper  *scheduler.SessionSweeper
}

// New builds the app from the environment.
func New() (*App, error) {
	cfg := config.LoadDevAPI()
	return NewWithConfig(cfg, logger.New(cfg.LogLevel, cfg.PrettyLog))
}

// NewWithConfig builds the app from an explicit configuration.
func NewWithConfig(cfg *config.DevAPIConfig, loggerClient logger.Logger) (*App, error) {
	sessions, err := sessiondb.New(cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session table: %w", err)
	}

	memIndex := index.NewMemoryIndex()

	sweepTrigger := make(chan struct{}, 1)
	sweeper := scheduler.NewSessionSweeper(sessions, loggerClient, cfg.SweepInterval, sweepTrigger)

	d := deps.Deps{
		Logger:           loggerClient,
		StartTime:        time.Now(),
		Version:          version.Version,
		Commit:           version.Commit,
		BuildDate:        version.BuildDate,
		GoVersion:        version.GoVersion,
		TimeNow:          time.Now,
		APIPrefix:        cfg.APIPrefix,
		EnableHealth:     cfg.EnableHealth,
		AllowedOrigin:    cfg.AllowedOrigin,
		AllowedCIDRS:     cfg.AdminCIDRs,
		TrustProxy:       cfg.TrustProxy,
		AuthBurst:        cfg.AuthBurst,
		AuthRefillPerMin: cfg.AuthRefillPerMin,
		PasswordCost:     cfg.PasswordCost,
		MemoryIndex:      memIndex,
		Sessions:         sessions,
		SweepTrigger:     sweepTrigger,
		LastSweep:        sweeper.LastSweep,
	}

	return &App{
		cfg:      cfg,
		logger:   loggerClient,
		server:   httpserver.New(cfg, loggerClient, d),
		memIndex: memIndex,
		sessions: sessions,
		sweeper:  sweeper,
	}, nil
}

// Run serves until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext serves until ctx is done, then shuts down gracefully.
func (a *App) RunContext(ctx context.Context) error {
	a.logger.Infof("🚀 Starting stash dev API %s on %s (prefix %q)",
		version.Version, a.cfg.ListenPort, a.cfg.APIPrefix)
	if !a.cfg.EnableHealth {
		a.logger.Info("health route disabled, only the server root answers liveness checks")
	}

	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session sweeper: %w", err)
	}
	a.logger.Info("session sweeper started",
		logger.Duration("interval", a.cfg.SweepInterval),
		logger.Duration("session_ttl", a.cfg.SessionTTL))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.sweeper.Stop()
		return err
	}

	a.sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.logger.Info("✅ stash dev API stopped cleanly",
		logger.Int("accounts", a.memIndex.AccountCount()),
		logger.Int("bookmarks", a.memIndex.BookmarkCount()),
		logger.Int("sessions", a.sessions.Count()))
	return nil
}
