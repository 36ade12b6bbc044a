package window

import (
	"context"

	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/backend/updates"
	"github.com/b0bbywan/go-portal-test/events"
	"github.com/b0bbywan/go-portal-test/logger"
)

const (
	UPDATE_AVAILABLE = "Update available"
	UPDATE_INSTALLED = "Installed"
	UPDATE_FAILED    = "Something went wrong"
)

// Run feeds the controller with events until ch closes or ctx ends.
func (c *Controller) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			c.HandleEvent(e)
		}
	}
}

// HandleEvent reflects backend events in the view. Events the window
// does not show are ignored.
func (c *Controller) HandleEvent(e events.Event) {
	switch e.Type {
	case events.TypeUpdateAvailable:
		data, ok := e.Data.(portal.UpdateAvailableData)
		if !ok {
			return
		}
		// the marker watcher already recorded its own announcements
		if c.updates != nil && data.Source != updates.MARKER_SOURCE {
			c.updates.MarkAvailable(data)
		}
		c.mu.Lock()
		c.progress = 0
		c.mu.Unlock()
		c.labels.Set(LabelUpdate, UPDATE_AVAILABLE)
		logger.Info("[window] update available (remote commit %q)", data.RemoteCommit)
		c.finish("update", nil)

	case events.TypeUpdateProgress:
		data, ok := e.Data.(portal.UpdateProgressData)
		if !ok {
			return
		}
		c.mu.Lock()
		c.progress = data.Progress
		c.mu.Unlock()
		switch data.Status {
		case portal.UpdateDone:
			c.labels.Set(LabelUpdate, UPDATE_INSTALLED)
		case portal.UpdateFailed:
			c.labels.Set(LabelUpdate, UPDATE_FAILED)
			logger.Warn("[window] update failed: %s %s", data.Error, data.ErrorMessage)
		}
		c.finish("update", nil)

	case events.TypeNotificationAction:
		data, ok := e.Data.(portal.ActionInvokedData)
		if !ok || data.ID != NOTIFICATION_ID {
			return
		}
		if data.Action == ACK_ACTION || data.Action == "ack" {
			c.Ack()
		}

	case events.TypeScreencastUpdated:
		if c.Tracker == nil {
			return
		}
		c.labels.Set(LabelScreencast, c.Tracker.Summary())
		c.finish("screencast", nil)
	}
}
