package index

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// ErrEmailTaken is returned when registering an address that already has an account.
var ErrEmailTaken = errors.New("email already registered")

// Account is a registered user of the dev backend.
type Account struct {
	ID           int64
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// User returns the public identity of the account.
func (a *Account) User() *domain.User {
	return &domain.User{ID: a.ID, Email: a.Email}
}

// MemoryIndex provides in-memory storage for accounts and their bookmarks.
// Bookmark IDs are unique across all accounts.
type MemoryIndex struct {
	mu         sync.RWMutex
	accounts   map[int64]*Account         // ID -> Account
	byEmail    map[string]int64           // lowercased email -> ID
	bookmarks  map[int64][]domain.Bookmark // user ID -> bookmarks, insertion order
	nextUserID int64
	nextMarkID int64
	lastChange time.Time // timestamp of the last bookmark write
	now        func() time.Time
}

// NewMemoryIndex creates an empty index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		accounts:  make(map[int64]*Account),
		byEmail:   make(map[string]int64),
		bookmarks: make(map[int64][]domain.Bookmark),
		now:       time.Now,
	}
}

// CreateAccount registers a new account. Emails are matched case-insensitively.
func (idx *MemoryIndex) CreateAccount(email string, passwordHash []byte) (*Account, error) {
	key := normalizeEmail(email)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.byEmail[key]; ok {
		return nil, ErrEmailTaken
	}

	idx.nextUserID++
	acc := &Account{
		ID:           idx.nextUserID,
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		CreatedAt:    idx.now().UTC(),
	}
	idx.accounts[acc.ID] = acc
	idx.byEmail[key] = acc.ID
	return acc, nil
}

// AccountByEmail looks up an account by email
func (idx *MemoryIndex) AccountByEmail(email string) (*Account, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	id, ok := idx.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, false
	}
	return idx.accounts[id], true
}

// Account retrieves an account by ID
func (idx *MemoryIndex) Account(id int64) (*Account, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	acc, ok := idx.accounts[id]
	return acc, ok
}

// AccountCount returns the number of registered accounts
func (idx *MemoryIndex) AccountCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.accounts)
}

// ─────────────────────────────────────────────────────────────────
// Bookmark methods
// ─────────────────────────────────────────────────────────────────

// AddBookmark stores b for userID, assigning its ID and CreatedAt.
func (idx *MemoryIndex) AddBookmark(userID int64, b domain.Bookmark) domain.Bookmark {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.nextMarkID++
	b.ID = idx.nextMarkID
	b.CreatedAt = idx.now().UTC()
	idx.bookmarks[userID] = append(idx.bookmarks[userID], b)
	idx.lastChange = b.CreatedAt
	return b
}

// ListBookmarks returns a copy of the user's bookmarks, newest first.
func (idx *MemoryIndex) ListBookmarks(userID int64) []domain.Bookmark {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	src := idx.bookmarks[userID]
	out := make([]domain.Bookmark, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// DeleteBookmark removes bookmark id owned by userID. It reports false when
// the user has no such bookmark.
func (idx *MemoryIndex) DeleteBookmark(userID, id int64) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	list := idx.bookmarks[userID]
	for i := range list {
		if list[i].ID != id {
			continue
		}
		idx.bookmarks[userID] = append(list[:i:i], list[i+1:]...)
		idx.lastChange = idx.now().UTC()
		return true
	}
	return false
}

// BookmarkCount returns the number of bookmarks across all accounts
func (idx *MemoryIndex) BookmarkCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := 0
	for _, list := range idx.bookmarks {
		n += len(list)
	}
	return n
}

// GetLastChange returns the timestamp of the last bookmark write
func (idx *MemoryIndex) GetLastChange() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastChange
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
