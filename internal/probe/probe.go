package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/stash/internal/api"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

// Phase of a probe run.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

const (
	MessageIdle          = "API connection test not started"
	MessageLoading       = "Testing connection to API..."
	MessageHealthy       = "Successfully connected to the API and verified health"
	MessageHealthMissing = "Connected to API server, but health check endpoint not available"
)

// Checker issues the two liveness calls.
type Checker interface {
	Root(ctx context.Context) (*api.Ping, error)
	Health(ctx context.Context) (*api.Ping, error)
}

// RequestDetail describes the request that failed.
type RequestDetail struct {
	Method  string        `json:"method,omitempty"`
	URL     string        `json:"url,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

// ErrorDetail is the transport error of a failed root check.
type ErrorDetail struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Request RequestDetail `json:"config"`
}

// Diagnostics is the free-form payload attached to a result.
type Diagnostics struct {
	RootStatus   int          `json:"rootStatus,omitempty"`
	HealthStatus int          `json:"healthStatus,omitempty"`
	HealthData   string       `json:"healthData,omitempty"`
	HealthError  string       `json:"healthError,omitempty"`
	Error        *ErrorDetail `json:"error,omitempty"`
}

// Result is the outcome of the last probe.
type Result struct {
	Phase       Phase        `json:"status"`
	Message     string       `json:"message"`
	Diagnostics *Diagnostics `json:"details,omitempty"`
	CheckedAt   time.Time    `json:"checkedAt,omitzero"`
}

// Prober checks backend reachability independently of the session.
// The root check decides the outcome; the health check only adds detail.
type Prober struct {
	checker Checker
	log     logger.Logger

	mu     sync.Mutex
	result Result
}

func New(checker Checker, log logger.Logger) *Prober {
	return &Prober{
		checker: checker,
		log:     log,
		result:  Result{Phase: PhaseIdle, Message: MessageIdle},
	}
}

// Result returns the last result.
func (p *Prober) Result() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Probe runs root then health. A probe already in flight is not restarted;
// its loading result is returned instead.
func (p *Prober) Probe(ctx context.Context) Result {
	p.mu.Lock()
	if p.result.Phase == PhaseLoading {
		r := p.result
		p.mu.Unlock()
		return r
	}
	p.result = Result{Phase: PhaseLoading, Message: MessageLoading}
	p.mu.Unlock()

	r := p.run(ctx)
	r.CheckedAt = time.Now()

	p.mu.Lock()
	p.result = r
	p.mu.Unlock()

	p.log.Debug("connection probe finished",
		logger.String("phase", string(r.Phase)),
		logger.String("message", r.Message))
	return r
}

func (p *Prober) run(ctx context.Context) Result {
	root, err := p.checker.Root(ctx)
	if err != nil {
		return Result{
			Phase:       PhaseError,
			Message:     fmt.Sprintf("Connection failed: %v", err),
			Diagnostics: &Diagnostics{Error: errorDetail(err)},
		}
	}

	diag := &Diagnostics{RootStatus: root.Status}

	health, err := p.checker.Health(ctx)
	if err != nil {
		p.log.Debug("health endpoint unavailable", logger.Error(err))
		diag.HealthStatus = api.StatusOf(err)
		diag.HealthError = err.Error()
		return Result{Phase: PhaseSuccess, Message: MessageHealthMissing, Diagnostics: diag}
	}

	diag.HealthStatus = health.Status
	diag.HealthData = health.Body
	return Result{Phase: PhaseSuccess, Message: MessageHealthy, Diagnostics: diag}
}

func errorDetail(err error) *ErrorDetail {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return &ErrorDetail{Code: api.KindClient.String(), Message: err.Error()}
	}
	return &ErrorDetail{
		Code:    apiErr.Kind.String(),
		Message: apiErr.Error(),
		Request: RequestDetail{
			Method:  apiErr.Method,
			URL:     apiErr.URL,
			Timeout: apiErr.Timeout,
		},
	}
}
