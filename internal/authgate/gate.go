package authgate

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

// ErrSubmitting is returned when Submit is called while a submission is running.
var ErrSubmitting = errors.New("a submission is already in progress")

// Authenticator performs the actual login or registration.
type Authenticator interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password string) error
}

// Mode is the submission intent.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "login"
}

// Options configures a Gate.
type Options struct {
	BaseURL string // shown in network error messages
	Logger  logger.Logger
}

// Gate holds the auth form state. On success it does nothing more: the
// session's own state change is what moves the user on.
type Gate struct {
	auth    Authenticator
	baseURL string
	log     logger.Logger

	mu           sync.Mutex
	mode         Mode
	email        string
	password     string
	showPassword bool
	submitting   bool
	category     Category
	message      string
}

// New creates a Gate in login mode.
func New(auth Authenticator, opts Options) *Gate {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Gate{
		auth:    auth,
		baseURL: opts.BaseURL,
		log:     log,
	}
}

func (g *Gate) SetEmail(email string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.email = strings.TrimSpace(email)
}

func (g *Gate) SetPassword(password string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.password = password
}

func (g *Gate) Email() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.email
}

func (g *Gate) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// ToggleMode flips login/register and clears the error. Entered fields are kept.
func (g *Gate) ToggleMode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mode == ModeLogin {
		g.mode = ModeRegister
	} else {
		g.mode = ModeLogin
	}
	g.category, g.message = CategoryNone, ""
	return g.mode
}

// TogglePasswordVisibility flips whether MaskedPassword reveals the password.
func (g *Gate) TogglePasswordVisibility() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.showPassword = !g.showPassword
	return g.showPassword
}

// MaskedPassword renders the password field.
func (g *Gate) MaskedPassword() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.showPassword {
		return g.password
	}
	return strings.Repeat("•", len([]rune(g.password)))
}

// Submitting reports whether a submission is in flight.
func (g *Gate) Submitting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitting
}

// Message returns the current error message, or "".
func (g *Gate) Message() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.message
}

// Category returns the category of the current error.
func (g *Gate) Category() Category {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.category
}

// Submit validates the fields and delegates to Login or Register depending
// on the mode. Validation failures never reach the network.
func (g *Gate) Submit(ctx context.Context) error {
	g.mu.Lock()
	if g.submitting {
		g.mu.Unlock()
		return ErrSubmitting
	}

	creds := domain.Credentials{Email: g.email, Password: g.password}
	if err := domain.ValidateCredentials(creds); err != nil {
		g.category, g.message = CategoryValidation, err.Error()
		g.mu.Unlock()
		return err
	}

	mode := g.mode
	g.submitting = true
	g.category, g.message = CategoryNone, ""
	g.mu.Unlock()

	var err error
	if mode == ModeRegister {
		err = g.auth.Register(ctx, creds.Email, creds.Password)
	} else {
		err = g.auth.Login(ctx, creds.Email, creds.Password)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitting = false
	if err != nil {
		g.category, g.message = Describe(err, g.baseURL)
		g.log.Debug("auth submission failed",
			logger.String("mode", mode.String()),
			logger.String("category", g.category.String()),
			logger.Error(err))
		return err
	}
	return nil
}
