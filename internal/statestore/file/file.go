package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"gopkg.in/yaml.v3"
)

// Store persists state as a flat YAML mapping in a single file.
type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]string
	log    logger.Logger
}

// Open loads path if it exists. A missing file is an empty store; an
// unreadable document is logged and replaced on the next write.
func Open(path string, log logger.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("state file path is empty")
	}

	s := &Store{
		path:   path,
		values: make(map[string]string),
		log:    log,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &s.values); err != nil {
		log.Warn("state file is not valid YAML, starting empty",
			logger.String("path", path),
			logger.Error(err))
		s.values = make(map[string]string)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}

	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.values)
	next[key] = value
	if err := s.write(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return nil
	}

	next := maps.Clone(s.values)
	delete(next, key)
	if err := s.write(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *Store) Close() error { return nil }

// write replaces the file atomically (temp file + rename), mode 0600.
func (s *Store) write(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	s.log.Debug("state saved", logger.String("path", s.path), logger.Int("keys", len(values)))
	return nil
}
