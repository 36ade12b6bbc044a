package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/logger"
)

const pollInterval = 100 * time.Millisecond

// App owns the well-known bus name and the exported action group.
type App struct {
	conn    *dbus.Conn
	name    string
	path    dbus.ObjectPath
	timeout time.Duration

	mu       sync.Mutex
	handlers map[string]func()

	done     chan struct{}
	quitOnce sync.Once
}

// ObjectPath derives the object path GApplication uses for an app id.
func ObjectPath(id string) dbus.ObjectPath {
	return dbus.ObjectPath("/" + strings.ReplaceAll(id, ".", "/"))
}

func New(cfg *config.InstanceConfig) (*App, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return newApp(conn, config.AppID, cfg), nil
}

func newApp(conn *dbus.Conn, name string, cfg *config.InstanceConfig) *App {
	timeout := 5 * time.Second
	if cfg != nil && cfg.ReplaceTimeout > 0 {
		timeout = cfg.ReplaceTimeout
	}
	a := &App{
		conn:     conn,
		name:     name,
		path:     ObjectPath(name),
		timeout:  timeout,
		handlers: make(map[string]func()),
		done:     make(chan struct{}),
	}
	a.handlers[ACTION_QUIT] = a.Quit
	return a
}

// AddAction registers a handler for an action activated over org.gtk.Actions.
func (a *App) AddAction(name string, fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[name] = fn
}

func (a *App) actionNames() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.handlers))
	for name := range a.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Activate runs the named action.
func (a *App) Activate(name string) error {
	a.mu.Lock()
	fn, ok := a.handlers[name]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	go fn()
	return nil
}

// Claim takes the well-known name. If another process owns it and replace
// is set, that process is asked to quit first.
func (a *App) Claim(ctx context.Context, replace bool) error {
	reply, err := a.conn.RequestName(a.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request %s: %w", a.name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner && reply != dbus.RequestNameReplyAlreadyOwner {
		if !replace {
			return &AlreadyRunningError{Name: a.name}
		}
		if err := a.ReplaceRunning(ctx); err != nil {
			return err
		}
		reply, err = a.conn.RequestName(a.name, dbus.NameFlagDoNotQueue)
		if err != nil {
			return fmt.Errorf("failed to request %s: %w", a.name, err)
		}
		if reply != dbus.RequestNameReplyPrimaryOwner {
			return &AlreadyRunningError{Name: a.name}
		}
	}

	if err := a.export(); err != nil {
		return err
	}
	logger.Info("[app] owning %s at %s", a.name, a.path)
	return nil
}

func (a *App) export() error {
	obj := &actions{app: a}
	if err := a.conn.Export(obj, a.path, ACTIONS_IFACE); err != nil {
		return err
	}

	node := &introspect.Node{
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    ACTIONS_IFACE,
				Methods: introspect.Methods(obj),
			},
		},
	}
	return a.conn.Export(
		introspect.NewIntrospectable(node),
		a.path,
		DBUS_INTROSPECTABLE,
	)
}

// ReplaceRunning asks the current owner of the name to quit and waits,
// at most the configured timeout, for the name to become unowned.
func (a *App) ReplaceRunning(ctx context.Context) error {
	logger.Info("[app] replacing the running instance")

	rule := []dbus.MatchOption{
		dbus.WithMatchInterface(DBUS_IFACE),
		dbus.WithMatchMember(DBUS_OWNER_CHANGED),
		dbus.WithMatchArg(0, a.name),
	}
	if err := a.conn.AddMatchSignal(rule...); err != nil {
		return err
	}
	defer func() {
		if err := a.conn.RemoveMatchSignal(rule...); err != nil {
			logger.Debug("[app] failed to remove match: %v", err)
		}
	}()
	signals := make(chan *dbus.Signal, 8)
	a.conn.Signal(signals)
	defer a.conn.RemoveSignal(signals)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	obj := a.conn.Object(a.name, a.path)
	call := obj.CallWithContext(ctx, ACTIONS_ACTIVATE, 0, ACTION_QUIT, []dbus.Variant{}, map[string]dbus.Variant{})
	if call.Err != nil {
		return fmt.Errorf("failed to quit the running instance: %w", call.Err)
	}

	logger.Info("[app] waiting for the running instance to give up %s", a.name)
	return waitForRelease(ctx, a.name, signals, func() (bool, error) {
		var owned bool
		err := a.conn.BusObject().CallWithContext(ctx, DBUS_NAME_HAS_OWNER, 0, a.name).Store(&owned)
		return owned, err
	})
}

// waitForRelease returns once NameOwnerChanged reports an empty new owner
// or hasOwner turns false, polling in case the signal was missed.
func waitForRelease(ctx context.Context, name string, signals <-chan *dbus.Signal, hasOwner func() (bool, error)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if owned, err := hasOwner(); err == nil && !owned {
			return nil
		}

		select {
		case <-ctx.Done():
			return &ReplaceTimeoutError{Name: name}
		case sig := <-signals:
			if released(sig, name) {
				return nil
			}
		case <-ticker.C:
		}
	}
}

// released reports a NameOwnerChanged(name, old, "") signal.
func released(sig *dbus.Signal, name string) bool {
	if sig == nil || sig.Name != DBUS_IFACE+"."+DBUS_OWNER_CHANGED || len(sig.Body) < 3 {
		return false
	}
	changed, _ := sig.Body[0].(string)
	newOwner, _ := sig.Body[2].(string)
	return changed == name && newOwner == ""
}

// Done is closed once the quit action ran.
func (a *App) Done() <-chan struct{} {
	return a.done
}

func (a *App) Quit() {
	a.quitOnce.Do(func() {
		logger.Info("[app] received a request to quit")
		close(a.done)
	})
}

// Close releases the name and the connection.
func (a *App) Close() {
	if a.conn == nil {
		return
	}
	if _, err := a.conn.ReleaseName(a.name); err != nil {
		logger.Debug("[app] failed to release %s: %v", a.name, err)
	}
	if err := a.conn.Close(); err != nil {
		logger.Warn("[app] failed to close D-Bus connection: %v", err)
	}
	a.conn = nil
}
