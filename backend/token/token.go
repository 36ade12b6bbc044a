package token

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/logger"
)

// Store keeps the screencast restore token in a single 0600 file.
type Store struct {
	path string

	mu   sync.Mutex
	last string // content of our own last write, to ignore its echo
}

func New(cfg *config.TokenConfig) (*Store, error) {
	if cfg == nil || cfg.File == "" {
		return nil, fmt.Errorf("token: no file configured")
	}
	return &Store{path: cfg.File}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the stored token, or "" when there is none.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save replaces the token atomically.
func (s *Store) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".restore-token-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(token + "\n"); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}
	s.last = token
	logger.Debug("[token] saved restore token to %s", s.path)
	return nil
}

// Clear removes the token file. A missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = ""
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	logger.Info("[token] restore token cleared")
	return nil
}

func (s *Store) lastWritten() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
