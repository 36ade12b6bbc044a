package ui

import (
	"strings"

	"github.com/b0bbywan/go-portal-test/backend"
	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/window"
)

type DashboardView struct {
	Title  string
	Server *backend.ServerDeviceInfo
	Window *WindowView
}

type InhibitBox struct {
	Key     string
	Label   string
	Checked bool
}

// WindowView is the window state shaped for the templates.
type WindowView struct {
	window.View
	ScreencastLines []string
	InhibitBoxes    []InhibitBox
	Backends        backend.Backends
}

var inhibitBoxes = []struct {
	key   string
	label string
	flag  portal.InhibitFlags
}{
	{"logout", "Logout", portal.InhibitLogout},
	{"user_switch", "User Switch", portal.InhibitUserSwitch},
	{"suspend", "Suspend", portal.InhibitSuspend},
	{"idle", "Idle", portal.InhibitIdle},
}

func convertWindow(v window.View, backends backend.Backends) *WindowView {
	view := &WindowView{View: v, Backends: backends}
	if v.ScreencastLabel != "" {
		view.ScreencastLines = strings.Split(v.ScreencastLabel, "\n")
	}
	for _, b := range inhibitBoxes {
		view.InhibitBoxes = append(view.InhibitBoxes, InhibitBox{
			Key:     b.key,
			Label:   b.label,
			Checked: v.Inhibit.Flags&b.flag != 0,
		})
	}
	return view
}
