package authgate

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/stash/internal/api"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

type fakeAuth struct {
	mu       sync.Mutex
	logins   int
	register int
	err      error
	gate     chan struct{}
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return f.err
}

func (f *fakeAuth) Register(ctx context.Context, email, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.register++
	return f.err
}

func newGate(auth Authenticator) *Gate {
	return New(auth, Options{BaseURL: "http://localhost:3001/api", Logger: logger.New("error", false)})
}

func TestSubmitDelegatesByMode(t *testing.T) {
	auth := &fakeAuth{}
	g := newGate(auth)
	g.SetEmail("a@b.com")
	g.SetPassword("secret1")

	if err := g.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if auth.logins != 1 || auth.register != 0 {
		t.Errorf("login mode: logins=%d register=%d, want 1/0", auth.logins, auth.register)
	}

	g.ToggleMode()
	if err := g.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if auth.register != 1 {
		t.Errorf("register mode: register=%d, want 1", auth.register)
	}
}

func TestSubmitValidationBlocksNetwork(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     string
	}{
		{name: "short password", email: "a@b.com", password: "12345", want: "at least 6 characters"},
		{name: "bad email", email: "nope", password: "secret1", want: "valid address"},
		{name: "empty", want: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{}
			g := newGate(auth)
			g.SetEmail(tt.email)
			g.SetPassword(tt.password)

			if err := g.Submit(context.Background()); err == nil {
				t.Fatal("Submit() error = nil, want validation error")
			}
			if auth.logins != 0 {
				t.Errorf("backend called %d times, want 0", auth.logins)
			}
			if g.Category() != CategoryValidation {
				t.Errorf("Category() = %v, want validation", g.Category())
			}
			if !strings.Contains(g.Message(), tt.want) {
				t.Errorf("Message() = %q, want it to contain %q", g.Message(), tt.want)
			}
		})
	}
}

func TestSubmitRejectsReentry(t *testing.T) {
	auth := &fakeAuth{gate: make(chan struct{})}
	g := newGate(auth)
	g.SetEmail("a@b.com")
	g.SetPassword("secret1")

	done := make(chan error, 1)
	go func() { done <- g.Submit(context.Background()) }()

	deadline := time.Now().Add(time.Second)
	for !g.Submitting() {
		if time.Now().After(deadline) {
			t.Fatal("submission never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := g.Submit(context.Background()); !errors.Is(err, ErrSubmitting) {
		t.Errorf("second Submit() error = %v, want ErrSubmitting", err)
	}

	close(auth.gate)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if auth.logins != 1 {
		t.Errorf("logins = %d, want 1", auth.logins)
	}
	if g.Submitting() {
		t.Error("Submitting() = true after completion")
	}
}

func TestSubmitFailureSetsMessage(t *testing.T) {
	auth := &fakeAuth{err: &api.Error{Kind: api.KindServerRejected, Status: http.StatusUnauthorized, Message: "Invalid credentials"}}
	g := newGate(auth)
	g.SetEmail("a@b.com")
	g.SetPassword("secret1")

	if err := g.Submit(context.Background()); err == nil {
		t.Fatal("Submit() error = nil, want rejection")
	}
	if got, want := g.Message(), "Server error (401): Invalid credentials"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}

	g.ToggleMode()
	if g.Message() != "" || g.Category() != CategoryNone {
		t.Errorf("ToggleMode() kept error %q", g.Message())
	}
	if g.Email() != "a@b.com" {
		t.Errorf("ToggleMode() cleared email: %q", g.Email())
	}
}

func TestPasswordVisibility(t *testing.T) {
	g := newGate(&fakeAuth{})
	g.SetPassword("héllo")

	if got := g.MaskedPassword(); got != "•••••" {
		t.Errorf("MaskedPassword() = %q, want 5 bullets", got)
	}
	if !g.TogglePasswordVisibility() {
		t.Fatal("TogglePasswordVisibility() = false, want true")
	}
	if got := g.MaskedPassword(); got != "héllo" {
		t.Errorf("MaskedPassword() = %q, want plain password", got)
	}
}

func TestDescribe(t *testing.T) {
	base := "http://localhost:3001/api"

	tests := []struct {
		name     string
		err      error
		baseURL  string
		wantCat  Category
		wantText string
	}{
		{
			name:     "network",
			err:      &api.Error{Kind: api.KindNetworkUnreachable},
			baseURL:  base,
			wantCat:  CategoryNetwork,
			wantText: "Network error: Unable to connect to http://localhost:3001/api. Please check your internet connection and verify the backend server is running.",
		},
		{
			name:     "network without base url",
			err:      &api.Error{Kind: api.KindNetworkUnreachable},
			wantCat:  CategoryNetwork,
			wantText: "Network error: Unable to connect to backend server. Please check your internet connection and verify the backend server is running.",
		},
		{
			name:     "server with message",
			err:      &api.Error{Kind: api.KindServerRejected, Status: 409, Message: "Email already registered"},
			baseURL:  base,
			wantCat:  CategoryServer,
			wantText: "Server error (409): Email already registered",
		},
		{
			name:     "server without message",
			err:      &api.Error{Kind: api.KindServerRejected, Status: 500},
			baseURL:  base,
			wantCat:  CategoryServer,
			wantText: "Server error (500): Unknown error",
		},
		{
			name:     "no response",
			err:      &api.Error{Kind: api.KindNoResponse},
			baseURL:  base,
			wantCat:  CategoryNoResponse,
			wantText: "No response received from server. Please check if the backend is running.",
		},
		{
			name:     "malformed",
			err:      &api.Error{Kind: api.KindMalformedResponse, Op: "login", Message: "response is missing token or user"},
			baseURL:  base,
			wantCat:  CategoryClient,
			wantText: "Error: response is missing token or user",
		},
		{
			name:     "foreign error",
			err:      errors.New("boom"),
			baseURL:  base,
			wantCat:  CategoryClient,
			wantText: "Error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, text := Describe(tt.err, tt.baseURL)
			if cat != tt.wantCat {
				t.Errorf("Describe() category = %v, want %v", cat, tt.wantCat)
			}
			if text != tt.wantText {
				t.Errorf("Describe() text = %q, want %q", text, tt.wantText)
			}
		})
	}
}
