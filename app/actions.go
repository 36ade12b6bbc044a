package app

import (
	"slices"

	"github.com/godbus/dbus/v5"

	"github.com/b0bbywan/go-portal-test/logger"
)

// actionDescription is the (bgav) tuple of org.gtk.Actions.Describe.
type actionDescription struct {
	Enabled   bool
	Parameter dbus.Signature
	State     []dbus.Variant
}

// actions implements org.gtk.Actions for parameterless, stateless actions.
type actions struct {
	app *App
}

func (a *actions) List() ([]string, *dbus.Error) {
	return a.app.actionNames(), nil
}

func (a *actions) Describe(name string) (actionDescription, *dbus.Error) {
	if !slices.Contains(a.app.actionNames(), name) {
		return actionDescription{}, dbus.MakeFailedError(ErrUnknownAction)
	}
	return actionDescription{Enabled: true, State: []dbus.Variant{}}, nil
}

func (a *actions) DescribeAll() (map[string]actionDescription, *dbus.Error) {
	all := make(map[string]actionDescription)
	for _, name := range a.app.actionNames() {
		all[name] = actionDescription{Enabled: true, State: []dbus.Variant{}}
	}
	return all, nil
}

func (a *actions) Activate(name string, parameter []dbus.Variant, platformData map[string]dbus.Variant) *dbus.Error {
	logger.Info("[app] action %s activated", name)
	if err := a.app.Activate(name); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (a *actions) SetState(name string, value dbus.Variant, platformData map[string]dbus.Variant) *dbus.Error {
	return dbus.MakeFailedError(ErrUnknownAction)
}
