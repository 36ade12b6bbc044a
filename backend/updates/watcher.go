package updates

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/events"
	"github.com/b0bbywan/go-portal-test/logger"
)

const MARKER_SOURCE = "marker"

// watchMarker reports the creation of the marker file. A marker already
// present at startup counts as an available update.
func (b *Backend) watchMarker() error {
	if _, err := os.Stat(b.marker); err == nil {
		b.markerCreated()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(b.marker)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Info("[updates] failed to close watcher: %v", closeErr)
		}
		return err
	}

	logger.Info("[updates] watching %s", b.marker)
	go b.listen(watcher)
	return nil
}

func (b *Backend) listen(watcher *fsnotify.Watcher) {
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warn("[updates] failed to close watcher: %v", err)
		}
	}()

	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) == filepath.Clean(b.marker) && event.Has(fsnotify.Create) {
				b.markerCreated()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("[updates] fsnotify watcher error: %v", err)
		}
	}
}

func (b *Backend) markerCreated() {
	data := portal.UpdateAvailableData{Source: MARKER_SOURCE}
	b.MarkAvailable(data)
	b.notify(events.Event{Type: events.TypeUpdateAvailable, Data: data})
}
