package bookmarks

import (
	"context"
	"errors"
	"sync"

	"github.com/MrSnakeDoc/stash/internal/events"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/session"
)

// SessionSource streams session states.
type SessionSource interface {
	Subscribe() (<-chan session.State, func())
}

// Trigger says why the watcher fetched.
type Trigger struct {
	Generation uint64 // invalidation generation, 0 for a session change
	Login      bool   // a token appeared
}

// Watcher refetches the list once per invalidation and whenever a session
// starts, and resets it when the session ends.
type Watcher struct {
	sync     *Sync
	bus      *events.Bus
	sessions SessionSource
	logger   logger.Logger
	onFetch  func(Trigger, error)

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher. onFetch, when set, runs after every fetch on
// the watcher goroutine.
func NewWatcher(s *Sync, bus *events.Bus, sessions SessionSource, log logger.Logger, onFetch func(Trigger, error)) *Watcher {
	return &Watcher{
		sync:     s,
		bus:      bus,
		sessions: sessions,
		logger:   log,
		onFetch:  onFetch,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start subscribes and runs the loop until Stop or ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	states, unsubscribe := w.sessions.Subscribe()
	invalidations := w.bus.Subscribe(0)

	go func() {
		defer close(w.done)
		defer invalidations.Close()
		defer unsubscribe()

		var token string
		for {
			select {
			case st, ok := <-states:
				if !ok {
					states = nil
					continue
				}
				token = w.sessionChanged(ctx, token, st)
			case inv := <-invalidations.C:
				w.logger.Debug("bookmark list invalidated",
					logger.Uint64("generation", inv.Generation))
				w.fetch(ctx, Trigger{Generation: inv.Generation})
			case <-w.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop ends the loop and waits for it.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
}

func (w *Watcher) sessionChanged(ctx context.Context, prev string, st session.State) string {
	switch {
	case st.Status() == session.StatusAuthenticated && st.Token != prev:
		w.logger.Debug("session started, loading bookmarks")
		w.fetch(ctx, Trigger{Login: true})
		return st.Token
	case st.Token == "" && prev != "":
		w.logger.Debug("session ended, clearing bookmarks")
		w.sync.Reset()
		return ""
	default:
		return prev
	}
}

func (w *Watcher) fetch(ctx context.Context, trigger Trigger) {
	err := w.sync.FetchAll(ctx)
	if err != nil && !errors.Is(err, ErrNotAuthenticated) {
		w.logger.Debug("bookmark refresh failed", logger.Error(err))
	}
	if w.onFetch != nil {
		w.onFetch(trigger, err)
	}
}
