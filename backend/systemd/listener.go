package systemd

import (
	"context"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/b0bbywan/go-portal-test/logger"
)

func newListener(s *Backend) *listener {
	ctx, cancel := context.WithCancel(s.ctx)
	return &listener{
		ctx:       ctx,
		cancel:    cancel,
		watched:   s.watched,
		refresh:   s.RefreshUnit,
		notify:    s.notify,
		lastState: make(map[string]string),
	}
}

// start subscribes to systemd signals, no polling involved.
func (l *listener) start(conn *dbus.Conn) error {
	if err := conn.Subscribe(); err != nil {
		return err
	}

	updateCh := make(chan *dbus.SubStateUpdate, 16)
	errCh := make(chan error, 1)
	conn.SetSubStateSubscriber(updateCh, errCh)

	go l.listen(updateCh, errCh)
	logger.Debug("[systemd] listener started")
	return nil
}

func (l *listener) listen(updateCh <-chan *dbus.SubStateUpdate, errCh <-chan error) {
	for {
		select {
		case <-l.ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				return
			}
			logger.Warn("[systemd] listener error: %v", err)
		case update, ok := <-updateCh:
			if !ok {
				return
			}
			l.handle(update)
		}
	}
}

func (l *listener) handle(update *dbus.SubStateUpdate) {
	if update == nil || !l.watched[update.UnitName] {
		return
	}
	if !l.changed(update.UnitName, update.SubState) {
		return
	}

	logger.Debug("[systemd] %s -> %s", update.UnitName, update.SubState)
	u, err := l.refresh(l.ctx, update.UnitName)
	if err != nil {
		logger.Warn("[systemd] failed to refresh %s: %v", update.UnitName, err)
		return
	}
	l.notify(*u)
}

// changed records the substate and reports whether it differs from the last one.
func (l *listener) changed(name, subState string) bool {
	l.lastStateMu.Lock()
	defer l.lastStateMu.Unlock()
	if l.lastState[name] == subState {
		return false
	}
	l.lastState[name] = subState
	return true
}

func (l *listener) stop(conn *dbus.Conn) {
	l.cancel()
	if conn != nil {
		if err := conn.Unsubscribe(); err != nil {
			logger.Debug("[systemd] failed to unsubscribe: %v", err)
		}
	}
}
