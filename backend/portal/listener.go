package portal

import (
	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
	"github.com/b0bbywan/go-portal-test/events"
	"github.com/b0bbywan/go-portal-test/logger"
)

func (c *Client) listenNotifications() error {
	sub, err := c.Subscribe(PORTAL_PATH, NOTIFICATION_IFACE, SIGNAL_ACTION_INVOKED)
	if err != nil {
		return err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer sub.Close()
		for {
			select {
			case <-c.ctx.Done():
				return
			case sig := <-sub.C:
				data, err := parseActionInvoked(sig)
				if err != nil {
					logger.Warn("[portal] %v", err)
					continue
				}
				logger.Info("[portal] notification %s: action %s", data.ID, data.Action)
				c.notify(events.Event{Type: events.TypeNotificationAction, Data: data})
			}
		}
	}()
	return nil
}

// parseActionInvoked decodes ActionInvoked(s id, s action, av parameter).
func parseActionInvoked(sig *dbus.Signal) (ActionInvokedData, error) {
	if sig == nil || len(sig.Body) < 2 {
		return ActionInvokedData{}, &idbus.SignalError{Signal: SIGNAL_ACTION_INVOKED, Reason: "body too short"}
	}
	id, okID := sig.Body[0].(string)
	action, okAction := sig.Body[1].(string)
	if !okID || !okAction {
		return ActionInvokedData{}, &idbus.SignalError{Signal: SIGNAL_ACTION_INVOKED, Reason: "id or action is not a string"}
	}
	data := ActionInvokedData{ID: id, Action: action}
	if len(sig.Body) > 2 {
		if params, ok := sig.Body[2].([]dbus.Variant); ok {
			for _, p := range params {
				data.Parameter = append(data.Parameter, p.Value())
			}
		}
	}
	return data, nil
}

func (m *UpdateMonitor) listen() {
	defer m.client.wg.Done()
	defer m.unsubscribe()

	available, progress := m.subs[0].C, m.subs[1].C
	for {
		select {
		case <-m.client.ctx.Done():
			return
		case <-m.done:
			return
		case sig := <-available:
			data, err := parseUpdateAvailable(sig)
			if err != nil {
				logger.Warn("[portal] %v", err)
				continue
			}
			logger.Info("[portal] update available: %s -> %s", data.RunningCommit, data.RemoteCommit)
			m.client.notify(events.Event{Type: events.TypeUpdateAvailable, Data: data})
		case sig := <-progress:
			data, err := parseProgress(sig)
			if err != nil {
				logger.Warn("[portal] %v", err)
				continue
			}
			logger.Debug("[portal] update progress %d/%d %d%%", data.Op, data.NOps, data.Progress)
			m.client.notify(events.Event{Type: events.TypeUpdateProgress, Data: data})
		}
	}
}

func signalDict(sig *dbus.Signal, name string) (map[string]dbus.Variant, error) {
	if sig == nil || len(sig.Body) < 1 {
		return nil, &idbus.SignalError{Signal: name, Reason: "body too short"}
	}
	dict, ok := sig.Body[0].(map[string]dbus.Variant)
	if !ok {
		return nil, &idbus.SignalError{Signal: name, Reason: "body[0] is not map[string]Variant"}
	}
	return dict, nil
}

func parseUpdateAvailable(sig *dbus.Signal) (UpdateAvailableData, error) {
	dict, err := signalDict(sig, SIGNAL_UPDATE_AVAILABLE)
	if err != nil {
		return UpdateAvailableData{}, err
	}
	return UpdateAvailableData{
		RunningCommit: idbus.MapString(dict, "running-commit"),
		LocalCommit:   idbus.MapString(dict, "local-commit"),
		RemoteCommit:  idbus.MapString(dict, "remote-commit"),
		Source:        "portal",
	}, nil
}

func parseProgress(sig *dbus.Signal) (UpdateProgressData, error) {
	dict, err := signalDict(sig, SIGNAL_PROGRESS)
	if err != nil {
		return UpdateProgressData{}, err
	}
	data := UpdateProgressData{
		Error:        idbus.MapString(dict, "error"),
		ErrorMessage: idbus.MapString(dict, "error_message"),
	}
	data.NOps, _ = idbus.MapUint32(dict, "n_ops")
	data.Op, _ = idbus.MapUint32(dict, "op")
	data.Progress, _ = idbus.MapUint32(dict, "progress")
	if status, ok := idbus.MapUint32(dict, "status"); ok {
		data.Status = UpdateStatus(status)
	}
	return data, nil
}
