package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/stash/internal/logger"
)

// DefaultSweepInterval is used when the sweeper is created with a zero interval
const DefaultSweepInterval = 10 * time.Minute

// ExpiredSessions is the part of the session table the sweeper needs.
type ExpiredSessions interface {
	TerminateExpired() (int, error)
}

// SessionSweeper periodically drops expired bearer sessions
type SessionSweeper struct {
	sessions      ExpiredSessions
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}

	mu        sync.RWMutex
	lastSweep time.Time
	lastCount int
}

// NewSessionSweeper creates a new session sweeper. manualTrigger may be nil.
func NewSessionSweeper(
	sessions ExpiredSessions,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *SessionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &SessionSweeper{
		sessions:      sessions,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs a first sweep, then sweeps every interval and on each manual trigger
func (s *SessionSweeper) Start(ctx context.Context) error {
	if err := s.Sweep(ctx); err != nil {
		s.logger.Warn("initial session sweep failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Sweep(ctx); err != nil {
					s.logger.Error("session sweep failed",
						logger.Error(err))
				}
			case <-s.manualTrigger:
				s.logger.Info("manual session sweep triggered")
				if err := s.Sweep(ctx); err != nil {
					s.logger.Error("session sweep failed",
						logger.Error(err))
				}
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper. Safe to call more than once.
func (s *SessionSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Sweep removes expired sessions once
func (s *SessionSweeper) Sweep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	removed, err := s.sessions.TerminateExpired()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.lastSweep = time.Now()
	s.lastCount = removed
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Info("expired sessions swept",
			logger.Int("removed", removed))
	} else {
		s.logger.Debug("no expired sessions to sweep")
	}
	return nil
}

// LastSweep returns when the last successful sweep ran and how many sessions it removed
func (s *SessionSweeper) LastSweep() (time.Time, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastSweep, s.lastCount
}
