package window

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/b0bbywan/go-portal-test/backend"
	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/backend/screencast"
	"github.com/b0bbywan/go-portal-test/cache"
	"github.com/b0bbywan/go-portal-test/events"
	"github.com/b0bbywan/go-portal-test/logger"
)

const PROXY_PROBE_URI = "http://www.flatpak.org"

// FromPortal adapts a portal client to the window's Portal.
func FromPortal(c *portal.Client) Portal {
	return portalAdapter{c}
}

type portalAdapter struct {
	*portal.Client
}

func (p portalAdapter) Inhibit(ctx context.Context, flags portal.InhibitFlags, reason string) (Inhibition, error) {
	in, err := p.Client.Inhibit(ctx, flags, reason)
	if err != nil {
		return nil, err
	}
	return in, nil
}

// New builds the controller. sound and updates may be nil when disabled.
// dataDir holds the test file handed to the OpenURI and Email portals.
func New(ctx context.Context, p Portal, tracker *screencast.Tracker, snd Sound, upd Updates, dataDir string) *Controller {
	c := &Controller{
		ctx:     ctx,
		portal:  p,
		Tracker: tracker,
		sound:   snd,
		updates: upd,
		dataDir: dataDir,
		labels:  cache.New[string](0),
		eventsC: make(chan events.Event, 16),
	}
	c.labels.Set(LabelSandbox, backend.SandboxStatus())
	c.labels.Set(LabelMonitor, portal.NETWORK_IFACE)
	c.labels.Set(LabelResolver, portal.PROXY_IFACE)
	if tracker != nil {
		c.labels.Set(LabelScreencast, tracker.Summary())
	}
	return c
}

// Refresh reloads the network status and proxies.
func (c *Controller) Refresh(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		status, err := c.portal.NetworkStatus(gctx)
		if err != nil {
			return err
		}
		c.labels.Set(LabelNetwork, status.String())
		return nil
	})
	g.Go(func() error {
		proxies, err := c.portal.LookupProxy(gctx, PROXY_PROBE_URI)
		if err != nil {
			c.labels.Set(LabelProxies, "")
			return err
		}
		c.labels.Set(LabelProxies, strings.Join(proxies, ", "))
		return nil
	})
	err := g.Wait()
	c.finish("refresh", err)
	return err
}

// finish logs the outcome of an action, records failures and tells
// listeners the view changed. Cancellations are not failures.
func (c *Controller) finish(action string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, portal.ErrCancelled), errors.Is(err, context.Canceled):
		logger.Info("[window] %s cancelled", action)
	case errors.Is(err, screencast.ErrInProgress), errors.Is(err, screencast.ErrAborted):
		logger.Info("[window] %s: %v", action, err)
	default:
		logger.Error("[window] %s failed: %v", action, err)
		failure := events.FailureData{Action: action, Error: err.Error()}
		c.mu.Lock()
		c.lastError = &failure
		c.mu.Unlock()
		c.notify(events.Event{Type: events.TypePortalFailed, Data: failure})
	}
	c.notify(events.Event{Type: events.TypeWindowUpdated, Data: c.View()})
}

func (c *Controller) View() View {
	labels := c.labels.Snapshot()

	c.mu.Lock()
	v := View{
		SandboxStatus:   labels[LabelSandbox],
		NetworkStatus:   labels[LabelNetwork],
		MonitorName:     labels[LabelMonitor],
		ResolverName:    labels[LabelResolver],
		Proxies:         labels[LabelProxies],
		Encoding:        labels[LabelEncoding],
		ScreencastLabel: labels[LabelScreencast],
		Username:        labels[LabelUsername],
		Realname:        labels[LabelRealname],
		Screenshot:      c.screenshot,
		Photo:           c.photo,
		Inhibit: InhibitView{
			Flags:  c.inhibitFlags,
			Label:  c.inhibitFlags.String(),
			Active: c.inhibition != nil,
		},
		Acked:     c.acked,
		Sound:     c.soundReport,
		LastError: c.lastError,
		UpdatedAt: c.labels.UpdatedAt(),
	}
	progress := c.progress
	c.mu.Unlock()

	if c.Tracker != nil {
		v.Screencast = c.Tracker.Status()
	}
	if c.updates != nil {
		status := c.updates.Status()
		v.Update = &UpdateView{
			Label:      labels[LabelUpdate],
			Progress:   progress,
			Available:  status.Available,
			Monitoring: status.Monitoring,
		}
	}
	return v
}

func (c *Controller) Events() <-chan events.Event {
	return c.eventsC
}

func (c *Controller) notify(e events.Event) {
	select {
	case c.eventsC <- e:
	default:
		logger.Warn("[window] event channel full, dropping %s event", e.Type)
	}
}

// Close releases the inhibition, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	in := c.inhibition
	c.inhibition = nil
	c.inhibitFlags = 0
	c.mu.Unlock()
	if in != nil {
		in.Release()
	}
}

func (c *Controller) testFile() (string, error) {
	return ensureTestFile(filepath.Clean(c.dataDir))
}
