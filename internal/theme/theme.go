package theme

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/statestore"
)

// Manager owns the light/dark preference. The persisted entry wins; without
// one the environment decides and nothing is written until the user changes it.
type Manager struct {
	store    statestore.Store
	override string
	getenv   func(string) string
	log      logger.Logger

	mu      sync.RWMutex
	current domain.Theme
}

// New creates a Manager. override ("light"/"dark") replaces terminal detection.
func New(store statestore.Store, override string, log logger.Logger) *Manager {
	return &Manager{
		store:    store,
		override: override,
		getenv:   os.Getenv,
		log:      log,
		current:  domain.ThemeLight,
	}
}

// Load reads the persisted preference, falling back to Detect.
func (m *Manager) Load(ctx context.Context) (domain.Theme, error) {
	t, err := m.load(ctx)

	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
	return t, err
}

func (m *Manager) load(ctx context.Context) (domain.Theme, error) {
	v, ok, err := m.store.Get(ctx, statestore.KeyTheme)
	if err != nil {
		return m.Detect(), fmt.Errorf("failed to read theme: %w", err)
	}
	if !ok {
		return m.Detect(), nil
	}

	t, err := domain.ParseTheme(v)
	if err != nil {
		m.log.Warn("ignoring invalid persisted theme", logger.String("value", v))
		return m.Detect(), nil
	}
	return t, nil
}

// Current returns the active theme.
func (m *Manager) Current() domain.Theme {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Toggle flips the theme and persists it.
func (m *Manager) Toggle(ctx context.Context) (domain.Theme, error) {
	return m.Set(ctx, m.Current().Toggle())
}

// Set makes t the active theme and persists it. The in-memory value changes
// even when persisting fails.
func (m *Manager) Set(ctx context.Context, t domain.Theme) (domain.Theme, error) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()

	if err := m.store.Set(ctx, statestore.KeyTheme, string(t)); err != nil {
		return t, fmt.Errorf("failed to save theme: %w", err)
	}
	return t, nil
}

// Detect returns the environment's preference: the override when valid,
// then the terminal background from COLORFGBG, else light.
func (m *Manager) Detect() domain.Theme {
	if m.override != "" {
		if t, err := domain.ParseTheme(m.override); err == nil {
			return t
		}
		m.log.Warn("ignoring invalid theme override", logger.String("value", m.override))
	}
	if t, ok := fromColorFgBg(m.getenv("COLORFGBG")); ok {
		return t
	}
	return domain.ThemeLight
}

// fromColorFgBg reads "fg;bg" (sometimes "fg;default;bg"). ANSI backgrounds
// 0-6 and 8 are dark.
func fromColorFgBg(v string) (domain.Theme, bool) {
	if v == "" {
		return "", false
	}
	parts := strings.Split(v, ";")
	bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil || bg < 0 || bg > 15 {
		return "", false
	}
	if bg <= 6 || bg == 8 {
		return domain.ThemeDark, true
	}
	return domain.ThemeLight, true
}
