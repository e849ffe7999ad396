package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/stash/internal/api"
	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/statestore"
	"github.com/MrSnakeDoc/stash/internal/statestore/memory"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeBackend struct {
	mu       sync.Mutex
	users    map[string]*domain.User // token -> user
	loginErr error
	gate     chan struct{} // when set, Login waits on it
	meCalls  int
}

func (f *fakeBackend) Login(ctx context.Context, creds domain.Credentials) (*api.AuthResponse, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &api.AuthResponse{User: &domain.User{ID: 1, Email: creds.Email}, Token: "tok123"}, nil
}

func (f *fakeBackend) Register(ctx context.Context, creds domain.Credentials) (*api.AuthResponse, error) {
	return &api.AuthResponse{User: &domain.User{ID: 2, Email: creds.Email}, Token: "tok-new"}, nil
}

func (f *fakeBackend) Me(_ context.Context, token string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, &api.Error{Kind: api.KindServerRejected, Op: "resolve session", Status: http.StatusUnauthorized, Message: "Invalid token"}
}

func newStore(t *testing.T, backend Backend) (*Store, *memory.Store) {
	t.Helper()
	persist := memory.New()
	s := New(backend, persist, logger.New("error", false))
	t.Cleanup(s.Close)
	return s, persist
}

func persistedToken(t *testing.T, st statestore.Store) (string, bool) {
	t.Helper()
	v, ok, err := st.Get(context.Background(), statestore.KeyToken)
	if err != nil {
		t.Fatalf("Get(token) error = %v", err)
	}
	return v, ok
}

func TestLoginStoresUserAndToken(t *testing.T) {
	s, persist := newStore(t, &fakeBackend{})

	if err := s.Login(context.Background(), "a@b.com", "secret1"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	st := s.State()
	if st.User == nil || st.User.ID != 1 || st.User.Email != "a@b.com" {
		t.Errorf("User = %+v, want {1 a@b.com}", st.User)
	}
	if st.Token != "tok123" {
		t.Errorf("Token = %q, want tok123", st.Token)
	}
	if st.Loading {
		t.Error("Loading = true after login")
	}
	if st.Status() != StatusAuthenticated {
		t.Errorf("Status() = %v, want authenticated", st.Status())
	}
	if v, ok := persistedToken(t, persist); !ok || v != "tok123" {
		t.Errorf("persisted token = %q, %v, want tok123, true", v, ok)
	}
}

func TestLoginFailureIsSurfaced(t *testing.T) {
	rejected := &api.Error{Kind: api.KindServerRejected, Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	s, persist := newStore(t, &fakeBackend{loginErr: rejected})

	err := s.Login(context.Background(), "a@b.com", "wrong-pw")
	if !errors.Is(err, rejected) {
		t.Fatalf("Login() error = %v, want %v", err, rejected)
	}

	st := s.State()
	if st.Status() != StatusAnonymous || st.Loading {
		t.Errorf("State = %+v, want anonymous and not loading", st)
	}
	if _, ok := persistedToken(t, persist); ok {
		t.Error("token persisted after failed login")
	}
}

func TestLoadingDuringLogin(t *testing.T) {
	backend := &fakeBackend{gate: make(chan struct{})}
	s, _ := newStore(t, backend)

	done := make(chan error, 1)
	go func() { done <- s.Login(context.Background(), "a@b.com", "secret1") }()

	deadline := time.Now().Add(time.Second)
	for !s.State().Loading {
		if time.Now().After(deadline) {
			t.Fatal("Loading never became true during login")
		}
		time.Sleep(time.Millisecond)
	}

	close(backend.gate)
	if err := <-done; err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if s.State().Loading {
		t.Error("Loading still true after login")
	}
}

func TestRegisterIsImplicitLogin(t *testing.T) {
	s, persist := newStore(t, &fakeBackend{})

	if err := s.Register(context.Background(), "new@b.com", "secret1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if st := s.State(); st.Status() != StatusAuthenticated || st.User.Email != "new@b.com" {
		t.Errorf("State = %+v, want authenticated as new@b.com", st)
	}
	if v, _ := persistedToken(t, persist); v != "tok-new" {
		t.Errorf("persisted token = %q, want tok-new", v)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Store)
	}{
		{name: "from anonymous", setup: func(*Store) {}},
		{name: "from authenticated", setup: func(s *Store) {
			_ = s.Login(context.Background(), "a@b.com", "secret1")
		}},
		{name: "twice", setup: func(s *Store) {
			_ = s.Login(context.Background(), "a@b.com", "secret1")
			_ = s.Logout(context.Background())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, persist := newStore(t, &fakeBackend{})
			tt.setup(s)

			if err := s.Logout(context.Background()); err != nil {
				t.Fatalf("Logout() error = %v", err)
			}

			st := s.State()
			if st.User != nil || st.Token != "" {
				t.Errorf("State = %+v, want no user and no token", st)
			}
			if _, ok := persistedToken(t, persist); ok {
				t.Error("persisted token still present after Logout()")
			}
		})
	}
}

func TestInitialize(t *testing.T) {
	user := &domain.User{ID: 3, Email: "c@d.com"}

	tests := []struct {
		name       string
		persisted  string
		wantStatus Status
		wantKept   bool
		wantMe     int
	}{
		{name: "no token", wantStatus: StatusAnonymous, wantMe: 0},
		{name: "valid token", persisted: "good", wantStatus: StatusAuthenticated, wantKept: true, wantMe: 1},
		{name: "rejected token", persisted: "expired", wantStatus: StatusAnonymous, wantKept: false, wantMe: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{users: map[string]*domain.User{"good": user}}
			s, persist := newStore(t, backend)
			if tt.persisted != "" {
				_ = persist.Set(context.Background(), statestore.KeyToken, tt.persisted)
			}

			if err := s.Initialize(context.Background()); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}

			st := s.State()
			if st.Status() != tt.wantStatus {
				t.Errorf("Status() = %v, want %v", st.Status(), tt.wantStatus)
			}
			if st.Loading {
				t.Error("Loading = true after Initialize()")
			}
			if _, ok := persistedToken(t, persist); ok != tt.wantKept {
				t.Errorf("persisted token present = %v, want %v", ok, tt.wantKept)
			}
			if backend.meCalls != tt.wantMe {
				t.Errorf("Me calls = %d, want %d", backend.meCalls, tt.wantMe)
			}
		})
	}
}

func TestInitializeRejectedIsIdempotent(t *testing.T) {
	s, persist := newStore(t, &fakeBackend{})
	_ = persist.Set(context.Background(), statestore.KeyToken, "expired")

	for i := 0; i < 2; i++ {
		if err := s.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize() #%d error = %v", i+1, err)
		}
		if st := s.State(); st.Status() != StatusAnonymous || st.Loading || st.Token != "" {
			t.Errorf("Initialize() #%d state = %+v, want anonymous", i+1, st)
		}
		if _, ok := persistedToken(t, persist); ok {
			t.Errorf("Initialize() #%d left a persisted token", i+1)
		}
	}
}

func TestRehydrationFailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	persist := memory.New()
	_ = persist.Set(context.Background(), statestore.KeyToken, "expired")

	s := New(&fakeBackend{}, persist, logger.FromZap(zap.New(core)))
	defer s.Close()

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if n := logs.FilterMessage("session rehydration failed, logging out").Len(); n != 1 {
		t.Errorf("rehydration warnings = %d, want 1", n)
	}
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	s, _ := newStore(t, &fakeBackend{})

	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	if st := <-ch; st.Status() != StatusAnonymous {
		t.Fatalf("initial state = %v, want anonymous", st.Status())
	}

	if err := s.Login(context.Background(), "a@b.com", "secret1"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	// Latest wins: the loading state may have been overwritten.
	if st := <-ch; st.Status() != StatusAuthenticated {
		t.Errorf("state after login = %v, want authenticated", st.Status())
	}

	_ = s.Logout(context.Background())
	if st := <-ch; st.Status() != StatusAnonymous {
		t.Errorf("state after logout = %v, want anonymous", st.Status())
	}

	unsubscribe()
	unsubscribe()
	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}
}

func TestCloseClosesSubscriptions(t *testing.T) {
	s, _ := newStore(t, &fakeBackend{})
	ch, _ := s.Subscribe()
	<-ch

	s.Close()
	if _, ok := <-ch; ok {
		t.Error("channel still open after Close()")
	}

	late, _ := s.Subscribe()
	if _, ok := <-late; ok {
		t.Error("Subscribe() after Close() must return a closed channel")
	}
}

func TestLogoutSupersedesInFlightLogin(t *testing.T) {
	backend := &fakeBackend{gate: make(chan struct{})}
	s, persist := newStore(t, backend)

	done := make(chan error, 1)
	go func() { done <- s.Login(context.Background(), "a@b.com", "secret1") }()

	deadline := time.Now().Add(time.Second)
	for !s.State().Loading {
		if time.Now().After(deadline) {
			t.Fatal("login never started")
		}
		time.Sleep(time.Millisecond)
	}

	_ = s.Logout(context.Background())
	close(backend.gate)
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("Login() error = %v, want ErrSuperseded", err)
	}

	if st := s.State(); st.Status() != StatusAnonymous {
		t.Errorf("State = %+v, want anonymous after superseding logout", st)
	}
	if _, ok := persistedToken(t, persist); ok {
		t.Error("superseded login persisted its token")
	}
}

// blockingSet holds the first token write until release is closed.
type blockingSet struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSet) Set(ctx context.Context, key, value string) error {
	if key == statestore.KeyToken {
		b.once.Do(func() {
			close(b.entered)
			<-b.release
		})
	}
	return b.Store.Set(ctx, key, value)
}

func TestLogoutDuringTokenWriteWins(t *testing.T) {
	persist := &blockingSet{
		Store:   memory.New(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(&fakeBackend{}, persist, logger.New("error", false))
	t.Cleanup(s.Close)

	loginDone := make(chan error, 1)
	go func() { loginDone <- s.Login(context.Background(), "a@b.com", "secret1") }()
	<-persist.entered

	logoutDone := make(chan error, 1)
	go func() { logoutDone <- s.Logout(context.Background()) }()

	deadline := time.Now().Add(time.Second)
	for s.State().Loading {
		if time.Now().After(deadline) {
			t.Fatal("logout never started")
		}
		time.Sleep(time.Millisecond)
	}
	close(persist.release)

	if err := <-loginDone; !errors.Is(err, ErrSuperseded) {
		t.Errorf("Login() error = %v, want ErrSuperseded", err)
	}
	if err := <-logoutDone; err != nil {
		t.Errorf("Logout() error = %v", err)
	}

	if st := s.State(); st.Status() != StatusAnonymous || st.User != nil {
		t.Errorf("State = %+v, want anonymous", st)
	}
	if tok, ok := persistedToken(t, persist); ok {
		t.Errorf("persisted token = %q after logout, want absent", tok)
	}
}

func TestStateIsACopy(t *testing.T) {
	s, _ := newStore(t, &fakeBackend{})
	_ = s.Login(context.Background(), "a@b.com", "secret1")

	st := s.State()
	st.User.Email = "mutated"

	if got := s.State().User.Email; got != "a@b.com" {
		t.Errorf("internal user mutated through State(): %q", got)
	}
}
