package portal

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
	"github.com/b0bbywan/go-portal-test/logger"
)

// bytestring encodes s as a NUL terminated ay.
func bytestring(s string) []byte {
	return append([]byte(s), 0)
}

// Spawn runs argv as a new instance of the latest installed version of
// the sandboxed app and returns its pid.
func (c *Client) Spawn(ctx context.Context, cwd string, argv []string) (uint32, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("%s: empty argv", FLATPAK_SPAWN)
	}
	args := make([][]byte, 0, len(argv))
	for _, a := range argv {
		args = append(args, bytestring(a))
	}

	var pid uint32
	err := idbus.Call(ctx, c.flatpak(), FLATPAK_SPAWN,
		bytestring(cwd),
		args,
		map[uint32]dbus.UnixFD{},
		map[string]string{},
		uint32(FLATPAK_SPAWN_LATEST_VERSION),
		map[string]dbus.Variant{},
	).Store(&pid)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", FLATPAK_SPAWN, err)
	}
	logger.Info("[portal] spawned %v with pid %d", argv, pid)
	return pid, nil
}

func updateMonitorPath(sender, token string) dbus.ObjectPath {
	return dbus.ObjectPath(UPDATE_MONITOR_PATH_PREFIX + sender + "/" + token)
}

// CreateUpdateMonitor watches for new versions of the sandboxed app.
// UpdateAvailable and Progress signals are forwarded as events.
func (c *Client) CreateUpdateMonitor(ctx context.Context) (*UpdateMonitor, error) {
	token := newToken()
	predicted := updateMonitorPath(c.sender, token)

	m := &UpdateMonitor{client: c, done: make(chan struct{})}
	if err := m.subscribe(predicted); err != nil {
		return nil, err
	}

	var handle dbus.ObjectPath
	err := idbus.Call(ctx, c.flatpak(), FLATPAK_CREATE_MONITOR, map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
	}).Store(&handle)
	if err != nil {
		m.unsubscribe()
		return nil, fmt.Errorf("%s: %w", FLATPAK_CREATE_MONITOR, err)
	}
	if handle != predicted {
		m.unsubscribe()
		if err := m.subscribe(handle); err != nil {
			return nil, err
		}
	}
	m.handle = handle

	c.wg.Add(1)
	go m.listen()
	logger.Info("[portal] update monitor %s created", handle)
	return m, nil
}

func (m *UpdateMonitor) subscribe(path dbus.ObjectPath) error {
	for _, member := range []string{SIGNAL_UPDATE_AVAILABLE, SIGNAL_PROGRESS} {
		sub, err := m.client.Subscribe(path, UPDATE_MONITOR_IFACE, member)
		if err != nil {
			m.unsubscribe()
			return fmt.Errorf("subscribe %s.%s: %w", UPDATE_MONITOR_IFACE, member, err)
		}
		m.subs = append(m.subs, sub)
	}
	return nil
}

func (m *UpdateMonitor) unsubscribe() {
	for _, sub := range m.subs {
		sub.Close()
	}
	m.subs = nil
}

// Update installs the available update. Progress is reported through events.
func (m *UpdateMonitor) Update(ctx context.Context) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}
	obj := m.client.conn.Object(FLATPAK_DEST, m.handle)
	if err := idbus.CallMethod(ctx, obj, UPDATE_MONITOR_UPDATE, m.client.parent, map[string]dbus.Variant{}); err != nil {
		return fmt.Errorf("%s: %w", UPDATE_MONITOR_UPDATE, err)
	}
	return nil
}

func (m *UpdateMonitor) Close() {
	m.once.Do(func() {
		close(m.done)
		if conn := m.client.conn; conn != nil {
			obj := conn.Object(FLATPAK_DEST, m.handle)
			if err := idbus.CallMethod(context.Background(), obj, UPDATE_MONITOR_CLOSE); err != nil {
				logger.Debug("[portal] failed to close update monitor: %v", err)
			}
		}
	})
}
