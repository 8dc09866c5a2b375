// Package statefile is a file-backed key-value store for persisted client state.
// Every key lives in its own JSON file so a write never rewrites unrelated keys.
package statefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const (
	defaultStateDir = "./wal/state"
	stateDirEnv     = "AEGIS_STATE_DIR"
)

// Store keeps one file per key under dir.
type Store struct {
	mu  sync.Mutex
	dir string
}

// StateDir returns the directory used when none is configured.
func StateDir() string {
	if stateDir := os.Getenv(stateDirEnv); stateDir != "" {
		return stateDir
	}
	return defaultStateDir
}

// NewStore creates the directory if needed. An empty dir falls back to StateDir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = StateDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create state dir")
	}

	return &Store{dir: dir}, nil
}

// Get returns the stored value. ok is false when the key was never set or was removed.
func (s *Store) Get(key string) (string, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}

		return "", false, errors.Wrapf(err, "read state %q", key)
	}

	if len(payload) == 0 {
		return "", false, nil
	}

	return string(payload), true, nil
}

// Set writes the value atomically via temp file and rename.
func (s *Store) Set(key, value string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return errors.Wrapf(err, "write state %q temp file", key)
	}

	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "persist state %q", key)
	}

	return nil
}

// Remove deletes the key. Removing a missing key is not an error.
func (s *Store) Remove(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "remove state %q", key)
	}

	return nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) (string, error) {
	if s == nil || s.dir == "" {
		return "", errors.New("state store is not initialized")
	}

	name := sanitizeKey(key)
	if name == "" {
		return "", fmt.Errorf("invalid state key %q", key)
	}

	return filepath.Join(s.dir, name+".json"), nil
}

func sanitizeKey(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return ""
	}

	var b strings.Builder

	prevUnderscore := false

	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)

			prevUnderscore = false

			continue
		}

		if !prevUnderscore {
			b.WriteByte('_')

			prevUnderscore = true
		}
	}

	return strings.Trim(b.String(), "_-")
}
