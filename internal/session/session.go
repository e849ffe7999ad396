package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/stash/internal/api"
	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/statestore"
)

// Backend is the part of the API the session needs.
type Backend interface {
	Login(ctx context.Context, creds domain.Credentials) (*api.AuthResponse, error)
	Register(ctx context.Context, creds domain.Credentials) (*api.AuthResponse, error)
	Me(ctx context.Context, token string) (*domain.User, error)
}

// ErrSuperseded is returned by Login and Register when a later operation,
// such as Logout, started before they completed. Their result is discarded.
var ErrSuperseded = errors.New("session changed while authenticating")

// Status is the coarse lifecycle position derived from a State.
type Status int

const (
	StatusAnonymous Status = iota
	StatusRehydrating
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusRehydrating:
		return "rehydrating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// State is a snapshot of who is logged in.
type State struct {
	User    *domain.User
	Token   string
	Loading bool
}

// Status derives the lifecycle position.
func (s State) Status() Status {
	switch {
	case s.User != nil && s.Token != "":
		return StatusAuthenticated
	case s.Loading && s.Token != "":
		return StatusRehydrating
	default:
		return StatusAnonymous
	}
}

// Store is the single source of truth for the current session.
// Completions of superseded operations (a login finishing after a logout,
// for instance) are discarded.
type Store struct {
	backend Backend
	persist statestore.Store
	log     logger.Logger

	// persistMu serializes token writes with the epoch check that guards them.
	persistMu sync.Mutex

	mu     sync.RWMutex
	state  State
	epoch  uint64
	subs   map[uint64]chan State
	nextID uint64
	closed bool
}

// New creates an anonymous session. Call Initialize to rehydrate.
func New(backend Backend, persist statestore.Store, log logger.Logger) *Store {
	return &Store{
		backend: backend,
		persist: persist,
		log:     log,
		subs:    make(map[uint64]chan State),
	}
}

// Initialize restores the persisted token and resolves its user. Any backend
// failure logs the session out; only a failing state store is returned.
func (s *Store) Initialize(ctx context.Context) error {
	epoch := s.begin(State{})

	token, ok, err := s.persist.Get(ctx, statestore.KeyToken)
	if err != nil {
		s.log.Warn("failed to read persisted token", logger.Error(err))
		return fmt.Errorf("failed to read persisted token: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	if !s.apply(epoch, State{Token: token, Loading: true}) {
		return nil
	}

	user, err := s.backend.Me(ctx, token)
	if err != nil {
		s.log.Warn("session rehydration failed, logging out",
			logger.String("kind", api.KindOf(err).String()),
			logger.Error(err))
		s.persistMu.Lock()
		defer s.persistMu.Unlock()
		if !s.stillCurrent(epoch) {
			return nil
		}
		if derr := s.persist.Delete(ctx, statestore.KeyToken); derr != nil {
			s.log.Warn("failed to discard persisted token", logger.Error(derr))
		}
		s.apply(epoch, State{})
		return nil
	}

	s.apply(epoch, State{User: user, Token: token})
	return nil
}

// Login authenticates and persists the token. Failures are returned unchanged
// and leave the session anonymous. ErrSuperseded means a later operation won.
func (s *Store) Login(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, "login", s.backend.Login, domain.Credentials{Email: email, Password: password})
}

// Register creates an account; success is an implicit login.
func (s *Store) Register(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, "register", s.backend.Register, domain.Credentials{Email: email, Password: password})
}

type authFunc func(context.Context, domain.Credentials) (*api.AuthResponse, error)

func (s *Store) authenticate(ctx context.Context, op string, call authFunc, creds domain.Credentials) error {
	s.mu.RLock()
	prev := s.state
	s.mu.RUnlock()

	prev.Loading = true
	epoch := s.begin(prev)

	resp, err := call(ctx, creds)
	if err != nil {
		prev.Loading = false
		s.apply(epoch, prev)
		return err
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if !s.stillCurrent(epoch) {
		return ErrSuperseded
	}
	if perr := s.persist.Set(ctx, statestore.KeyToken, resp.Token); perr != nil {
		s.log.Error("failed to persist token, session will not survive a restart",
			logger.String("op", op),
			logger.Error(perr))
	}

	// Anything that began during Set writes the key after us, under persistMu.
	if !s.apply(epoch, State{User: resp.User, Token: resp.Token}) {
		if derr := s.persist.Delete(ctx, statestore.KeyToken); derr != nil {
			s.log.Warn("failed to discard superseded token", logger.Error(derr))
		}
		return ErrSuperseded
	}
	s.log.Debug("authenticated",
		logger.String("op", op),
		logger.Int64("user_id", resp.User.ID))
	return nil
}

// Logout clears the session in memory and in persisted storage. It makes no
// network call and is idempotent. Memory is cleared even if the persisted
// delete fails; that error is returned.
func (s *Store) Logout(ctx context.Context) error {
	s.begin(State{})

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.persist.Delete(ctx, statestore.KeyToken); err != nil {
		s.log.Warn("failed to delete persisted token", logger.Error(err))
		return fmt.Errorf("failed to delete persisted token: %w", err)
	}
	return nil
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneState(s.state)
}

// Token returns the current bearer token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Token
}

// Subscribe returns a channel receiving the latest state after every
// transition, starting with the current one. Slow readers only see the
// newest state. The returned func unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- cloneState(s.state)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close ends the session lifecycle and closes every subscription.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// begin supersedes every in-flight operation and sets st.
func (s *Store) begin(st State) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.setLocked(st)
	return s.epoch
}

// apply sets st only if no newer operation started since epoch.
func (s *Store) apply(epoch uint64, st State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return false
	}
	s.setLocked(st)
	return true
}

func (s *Store) stillCurrent(epoch uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.epoch == epoch
}

func (s *Store) setLocked(st State) {
	s.state = st
	for _, ch := range s.subs {
		publishLatest(ch, cloneState(st))
	}
}

// publishLatest replaces any unread value. Callers hold s.mu, so sends are serialized.
func publishLatest(ch chan State, st State) {
	select {
	case ch <- st:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func cloneState(st State) State {
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}
