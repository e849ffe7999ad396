package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/stash/internal/api"
	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

const (
	// LoadErrorMessage is shown when the list could not be fetched.
	LoadErrorMessage = "Failed to load bookmarks"
	// SaveErrorMessage is shown when a create fails without a server message.
	SaveErrorMessage = "Error saving bookmark"
	// DeleteErrorMessage is shown when a delete fails without a server message.
	DeleteErrorMessage = "Error deleting bookmark"
)

var (
	ErrEmptyURL         = errors.New("url is empty")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Backend is the part of the API the list needs.
type Backend interface {
	ListBookmarks(ctx context.Context, token string) ([]domain.Bookmark, error)
	CreateBookmark(ctx context.Context, token, rawURL string) (*domain.Bookmark, error)
	DeleteBookmark(ctx context.Context, token string, id int64) error
}

// TokenSource provides the current bearer token ("" when anonymous).
type TokenSource interface {
	Token() string
}

// Publisher announces that the list is stale.
type Publisher interface {
	Publish(ctx context.Context) (uint64, error)
}

// Phase is the outcome of the last applied fetch.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoaded
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseLoaded:
		return "loaded"
	case PhaseErrored:
		return "errored"
	default:
		return "idle"
	}
}

// State is a snapshot of the list.
type State struct {
	Bookmarks []domain.Bookmark
	Phase     Phase
	Loading   bool  // at least one fetch is in flight
	Err       error // set when the last applied fetch failed
}

// Sync keeps the user's bookmark list. Every fetch carries a sequence number
// and a response older than the last applied one is dropped, so the newest
// request always wins regardless of arrival order.
type Sync struct {
	backend Backend
	tokens  TokenSource
	bus     Publisher
	log     logger.Logger

	mu         sync.RWMutex
	list       []domain.Bookmark
	phase      Phase
	err        error
	inflight   int
	nextSeq    uint64
	appliedSeq uint64
}

func NewSync(backend Backend, tokens TokenSource, bus Publisher, log logger.Logger) *Sync {
	return &Sync{
		backend: backend,
		tokens:  tokens,
		bus:     bus,
		log:     log,
	}
}

// FetchAll replaces the whole list with the server's. On failure the previous
// list is kept and the error flag is set. The flag only changes when a result
// is applied, so it always matches Phase. Without a token nothing is called.
func (s *Sync) FetchAll(ctx context.Context) error {
	token := s.tokens.Token()
	if token == "" {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.inflight++
	s.mu.Unlock()

	list, err := s.backend.ListBookmarks(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--

	if seq <= s.appliedSeq {
		s.log.Debug("discarding stale bookmark list",
			logger.Uint64("seq", seq),
			logger.Uint64("applied_seq", s.appliedSeq))
		return nil
	}
	s.appliedSeq = seq

	if err != nil {
		s.phase = PhaseErrored
		s.err = err
		s.log.Warn("failed to load bookmarks",
			logger.String("kind", api.KindOf(err).String()),
			logger.Error(err))
		return err
	}

	s.list = slices.Clone(list)
	s.phase = PhaseLoaded
	s.err = nil
	s.log.Debug("bookmarks loaded",
		logger.Uint64("seq", seq),
		logger.Int("count", len(list)))
	return nil
}

// Create submits rawURL and publishes an invalidation. The local list is not
// touched; subscribers refetch.
func (s *Sync) Create(ctx context.Context, rawURL string) (*domain.Bookmark, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrEmptyURL
	}
	token := s.tokens.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	b, err := s.backend.CreateBookmark(ctx, token, rawURL)
	if err != nil {
		s.log.Warn("failed to save bookmark",
			logger.String("url", rawURL),
			logger.Error(err))
		return nil, err
	}

	gen, err := s.bus.Publish(ctx)
	if err != nil {
		return b, fmt.Errorf("failed to publish invalidation: %w", err)
	}
	s.log.Debug("bookmark created",
		logger.Int64("id", b.ID),
		logger.Uint64("generation", gen))
	return b, nil
}

// Delete removes id on the server, then locally. A failed delete keeps the
// entry, is logged and is returned. The backend is called even if id is not
// in the local list. Fetches started before the delete are discarded.
func (s *Sync) Delete(ctx context.Context, id int64) error {
	token := s.tokens.Token()
	if token == "" {
		return ErrNotAuthenticated
	}

	if err := s.backend.DeleteBookmark(ctx, token, id); err != nil {
		s.log.Error("failed to delete bookmark",
			logger.Int64("id", id),
			logger.String("kind", api.KindOf(err).String()),
			logger.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = slices.DeleteFunc(s.list, func(b domain.Bookmark) bool { return b.ID == id })
	s.appliedSeq = s.nextSeq
	return nil
}

// Reset forgets the list and any in-flight fetch.
func (s *Sync) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.list = nil
	s.phase = PhaseIdle
	s.err = nil
	s.appliedSeq = s.nextSeq
}

// State returns a copy of the current list state.
func (s *Sync) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		Bookmarks: slices.Clone(s.list),
		Phase:     s.phase,
		Loading:   s.inflight > 0,
		Err:       s.err,
	}
}

// Find returns the bookmark with id from the local list.
func (s *Sync) Find(id int64) (domain.Bookmark, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := slices.IndexFunc(s.list, func(b domain.Bookmark) bool { return b.ID == id })
	if i < 0 {
		return domain.Bookmark{}, false
	}
	return s.list[i], true
}

// ErrorMessage returns the server message carried by err, or fallback.
func ErrorMessage(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Kind == api.KindServerRejected && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
