package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
	"github.com/b0bbywan/go-portal-test/cache"
	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/events"
	"github.com/b0bbywan/go-portal-test/logger"
)

// New connects to the session bus. The portal client is always enabled:
// every other backend but sound and zeroconf goes through it.
func New(ctx context.Context, cfg *config.PortalConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("portal: missing configuration")
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	if len(conn.Names()) == 0 {
		_ = conn.Close()
		return nil, fmt.Errorf("portal: session bus connection has no unique name")
	}

	c := newClient(ctx, conn, cfg)
	logger.Info("[portal] client initialized (sender %s)", c.sender)
	return c, nil
}

func newClient(ctx context.Context, conn *dbus.Conn, cfg *config.PortalConfig) *Client {
	ctx, cancel := context.WithCancel(ctx)
	c := &Client{
		conn:     conn,
		ctx:      ctx,
		cancel:   cancel,
		timeout:  cfg.Timeout,
		parent:   cfg.ParentWindow,
		versions: cache.New[uint32](0),
		signals:  make(chan *dbus.Signal, 32),
		subs:     make(map[subscriptionKey][]*Subscription),
		eventsC:  make(chan events.Event, 16),
	}
	if conn != nil && len(conn.Names()) > 0 {
		c.sender = senderPath(conn.Names()[0])
	}
	return c
}

// senderPath turns a unique bus name into the request path element:
// ":1.42" becomes "1_42".
func senderPath(uniqueName string) string {
	return strings.ReplaceAll(strings.TrimPrefix(uniqueName, ":"), ".", "_")
}

// Start begins signal dispatching and the notification listener.
func (c *Client) Start() error {
	c.conn.Signal(c.signals)
	c.wg.Add(1)
	go c.dispatch()

	if err := c.listenNotifications(); err != nil {
		logger.Warn("[portal] notification actions unavailable: %v", err)
	}

	logger.Info("[portal] dispatcher started")
	return nil
}

// Close stops the dispatcher, drops every subscription and closes the connection.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn == nil {
		return
	}
	c.conn.RemoveSignal(c.signals)
	c.wg.Wait()

	c.subsMu.Lock()
	c.subs = nil
	c.subsMu.Unlock()

	if err := c.conn.Close(); err != nil {
		logger.Error("[portal] failed to close D-Bus connection: %v", err)
	}
	c.conn = nil
}

func (c *Client) Events() <-chan events.Event {
	return c.eventsC
}

func (c *Client) notify(e events.Event) {
	select {
	case c.eventsC <- e:
	default:
		logger.Warn("[portal] event channel full, dropping %s event", e.Type)
	}
}

func (c *Client) desktop() dbus.BusObject {
	return c.conn.Object(PORTAL_DEST, PORTAL_PATH)
}

func (c *Client) flatpak() dbus.BusObject {
	return c.conn.Object(FLATPAK_DEST, FLATPAK_PATH)
}

// Version returns the "version" property of a desktop portal interface,
// or 0 when it cannot be read.
func (c *Client) Version(iface string) uint32 {
	v, err := c.versions.GetOrLoad(iface, func() (uint32, error) {
		variant, err := idbus.GetProperty(c.ctx, c.desktop(), iface, PROP_VERSION)
		if err != nil {
			return 0, err
		}
		version, ok := variant.Value().(uint32)
		if !ok {
			return 0, fmt.Errorf("version of %s has type %s", iface, variant.Signature())
		}
		return version, nil
	})
	if err != nil {
		logger.Debug("[portal] cannot read %s version: %v", iface, err)
		return 0
	}
	return v
}

// Versions reports the cached interface versions.
func (c *Client) Versions() map[string]uint32 {
	return c.versions.Snapshot()
}
