package token

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/b0bbywan/go-portal-test/logger"
)

// Handler is told about changes made to the token file by someone else.
type Handler interface {
	SetRestoreToken(token string)
	ForgetRestoreToken()
}

// Watch follows the token file until ctx ends. The parent directory is
// watched since the file itself is replaced on every save.
func (s *Store) Watch(ctx context.Context, h Handler) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Info("[token] failed to close watcher: %v", closeErr)
		}
		return err
	}
	if err := watcher.Add(dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Info("[token] failed to close watcher: %v", closeErr)
		}
		return err
	}

	logger.Info("[token] watching %s", s.path)
	go s.listen(ctx, watcher, h)
	return nil
}

func (s *Store) listen(ctx context.Context, watcher *fsnotify.Watcher, h Handler) {
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warn("[token] failed to close watcher: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.dispatch(event, h)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("[token] fsnotify watcher error: %v", err)
		}
	}
}

func (s *Store) dispatch(event fsnotify.Event, h Handler) {
	if filepath.Clean(event.Name) != filepath.Clean(s.path) {
		return
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		logger.Info("[token] %s removed, invalidating restore token", filepath.Base(s.path))
		h.ForgetRestoreToken()
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		token, err := s.Load()
		if err != nil {
			logger.Warn("[token] failed to read %s: %v", s.path, err)
			return
		}
		if token == s.lastWritten() {
			return
		}
		if token == "" {
			h.ForgetRestoreToken()
			return
		}
		logger.Info("[token] %s rewritten externally", filepath.Base(s.path))
		h.SetRestoreToken(token)
	default:
		logger.Debug("[token] ignoring %s on %s", event.Op, event.Name)
	}
}
