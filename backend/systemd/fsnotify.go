package systemd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/b0bbywan/go-portal-test/logger"
)

const (
	INVOCATION_PREFIX = "invocation:"

	STABLE_WAIT_TIMEOUT = 65 * time.Second
	STABLE_WAIT_MIN     = 500 * time.Millisecond
	STABLE_WAIT_MAX     = 8 * time.Second
	STABLE_WAIT_FACTOR  = 1.5
)

// startFSNotifier watches the invocation links systemd --user writes for
// each started unit. Those change before the SubState signal arrives on
// some setups, and keep working when the bus subscription is dropped.
func (l *listener) startFSNotifier(unitsDir string) error {
	if len(l.watched) == 0 {
		return nil
	}

	if _, err := os.Stat(unitsDir); err != nil {
		return fmt.Errorf("units directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(unitsDir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Info("[systemd] failed to close watcher: %v", closeErr)
		}
		return err
	}

	logger.Info("[systemd] fsnotify listener started, monitoring %s", unitsDir)
	go l.listenFSNotify(watcher)
	return nil
}

func (l *listener) listenFSNotify(watcher *fsnotify.Watcher) {
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warn("[systemd] failed to close watcher: %v", err)
		}
	}()

	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			l.dispatchFSNotify(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("[systemd] fsnotify watcher error: %v", err)
		}
	}
}

// dispatchFSNotify returns the watched unit the event belongs to, or "".
func (l *listener) dispatchFSNotify(event fsnotify.Event) string {
	name, ok := strings.CutPrefix(filepath.Base(event.Name), INVOCATION_PREFIX)
	if !ok || !l.watched[name] {
		return ""
	}

	logger.Debug("[systemd] %s invocation %s", name, event.Op)
	if _, loaded := l.pending.LoadOrStore(name, true); !loaded {
		go l.waitForStableState(name)
	}
	return name
}

// waitForStableState refreshes the unit with backoff until it leaves any
// transitional state, then publishes it.
func (l *listener) waitForStableState(name string) {
	ctx, cancel := context.WithTimeout(l.ctx, STABLE_WAIT_TIMEOUT)
	defer func() {
		l.pending.Delete(name)
		if ctx.Err() == context.DeadlineExceeded {
			logger.Warn("[systemd] %s did not settle in %s, cache might be out of sync", name, STABLE_WAIT_TIMEOUT)
		}
		cancel()
	}()

	wait := STABLE_WAIT_MIN
	// fires immediately
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			u, err := l.refresh(ctx, name)
			if err == nil {
				switch u.ActiveState {
				case "active", "inactive", "failed":
					logger.Debug("[systemd] %s reached stable state: %s", name, u.ActiveState)
					if l.changed(name, u.SubState) {
						l.notify(*u)
					}
					return
				}
				logger.Debug("[systemd] %s still in transitional state: %s", name, u.ActiveState)
			}
			timer.Reset(wait)
			wait = min(time.Duration(float64(wait)*STABLE_WAIT_FACTOR), STABLE_WAIT_MAX)
		}
	}
}
