package updates

import (
	"context"
	"errors"
	"fmt"

	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/events"
	"github.com/b0bbywan/go-portal-test/logger"
)

// ErrNoMonitor is returned by Install when the Flatpak portal could not be
// reached, typically because the process is not sandboxed.
var ErrNoMonitor = errors.New("updates: no update monitor")

// FromPortal adapts a portal client to the updates Client.
func FromPortal(c *portal.Client) Client {
	return portalClient{c}
}

type portalClient struct {
	*portal.Client
}

func (p portalClient) CreateUpdateMonitor(ctx context.Context) (Monitor, error) {
	m, err := p.Client.CreateUpdateMonitor(ctx)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func New(ctx context.Context, client Client, cfg *config.UpdatesConfig) (*Backend, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if client == nil {
		return nil, fmt.Errorf("updates: no portal client")
	}

	return &Backend{
		ctx:     ctx,
		client:  client,
		marker:  cfg.Marker,
		restart: []string{config.AppName, "--replace"},
		eventsC: make(chan events.Event, 16),
	}, nil
}

// Start creates the portal update monitor and watches the marker file.
// Neither is fatal: outside a sandbox both are simply unavailable.
func (b *Backend) Start() error {
	m, err := b.client.CreateUpdateMonitor(b.ctx)
	if err != nil {
		logger.Warn("[updates] update monitor unavailable: %v", err)
	} else {
		b.mu.Lock()
		b.monitor = m
		b.mu.Unlock()
	}

	if b.marker != "" {
		if err := b.watchMarker(); err != nil {
			logger.Warn("[updates] cannot watch %s: %v", b.marker, err)
		}
	}
	return nil
}

// MarkAvailable records an update announced by the portal or the marker.
func (b *Backend) MarkAvailable(data portal.UpdateAvailableData) {
	b.mu.Lock()
	b.available = &data
	b.mu.Unlock()
	logger.Info("[updates] update available (%s)", data.Source)
}

// Install asks the portal to install the available update. Progress is
// reported by the portal client as update.progress events.
func (b *Backend) Install(ctx context.Context) error {
	b.mu.Lock()
	m := b.monitor
	b.mu.Unlock()
	if m == nil {
		return ErrNoMonitor
	}
	return m.Update(ctx)
}

// Restart spawns the latest installed version with --replace, which makes
// it take over the bus name from this process.
func (b *Backend) Restart(ctx context.Context) (uint32, error) {
	pid, err := b.client.Spawn(ctx, "/", b.restart)
	if err != nil {
		logger.Error("[updates] restart failed: %v", err)
		return 0, err
	}
	return pid, nil
}

func (b *Backend) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Status{Monitoring: b.monitor != nil, Available: b.available != nil}
	if b.available != nil {
		update := *b.available
		s.Update = &update
	}
	return s
}

func (b *Backend) Events() <-chan events.Event {
	return b.eventsC
}

func (b *Backend) notify(e events.Event) {
	select {
	case b.eventsC <- e:
	default:
		logger.Warn("[updates] event channel full, dropping %s event", e.Type)
	}
}

func (b *Backend) Close() {
	b.mu.Lock()
	m := b.monitor
	b.monitor = nil
	b.mu.Unlock()
	if m != nil {
		m.Close()
	}
}
