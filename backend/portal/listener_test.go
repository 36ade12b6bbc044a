package portal

import (
	"context"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/events"
)

func TestParseActionInvoked(t *testing.T) {
	sig := &dbus.Signal{Body: []interface{}{"test", "app.ack", []dbus.Variant{dbus.MakeVariant("target")}}}
	data, err := parseActionInvoked(sig)
	if err != nil {
		t.Fatalf("parseActionInvoked() error = %v", err)
	}
	if data.ID != "test" || data.Action != "app.ack" {
		t.Errorf("data = %+v", data)
	}
	if len(data.Parameter) != 1 || data.Parameter[0] != "target" {
		t.Errorf("parameter = %v", data.Parameter)
	}

	if _, err := parseActionInvoked(&dbus.Signal{Body: []interface{}{"only id"}}); err == nil {
		t.Error("short body should fail")
	}
	if _, err := parseActionInvoked(&dbus.Signal{Body: []interface{}{uint32(1), "a"}}); err == nil {
		t.Error("non-string id should fail")
	}
}

func TestParseUpdateAvailable(t *testing.T) {
	sig := &dbus.Signal{Body: []interface{}{map[string]dbus.Variant{
		"running-commit": dbus.MakeVariant("aaa"),
		"local-commit":   dbus.MakeVariant("aaa"),
		"remote-commit":  dbus.MakeVariant("bbb"),
	}}}
	data, err := parseUpdateAvailable(sig)
	if err != nil {
		t.Fatalf("parseUpdateAvailable() error = %v", err)
	}
	if data.RunningCommit != "aaa" || data.RemoteCommit != "bbb" || data.Source != "portal" {
		t.Errorf("data = %+v", data)
	}
	if _, err := parseUpdateAvailable(&dbus.Signal{}); err == nil {
		t.Error("empty body should fail")
	}
}

func TestParseProgress(t *testing.T) {
	sig := &dbus.Signal{Body: []interface{}{map[string]dbus.Variant{
		"n_ops":    dbus.MakeVariant(uint32(3)),
		"op":       dbus.MakeVariant(uint32(1)),
		"progress": dbus.MakeVariant(uint32(40)),
		"status":   dbus.MakeVariant(uint32(UpdateFailed)),
		"error":    dbus.MakeVariant("org.freedesktop.DBus.Error.Failed"),
	}}}
	data, err := parseProgress(sig)
	if err != nil {
		t.Fatalf("parseProgress() error = %v", err)
	}
	want := UpdateProgressData{NOps: 3, Op: 1, Progress: 40, Status: UpdateFailed, Error: "org.freedesktop.DBus.Error.Failed"}
	if data != want {
		t.Errorf("parseProgress() = %+v, want %+v", data, want)
	}
	if _, err := parseProgress(&dbus.Signal{Body: []interface{}{"x"}}); err == nil {
		t.Error("non-dict body should fail")
	}
}

func TestUpdateMonitorForwardsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newClient(ctx, nil, &config.PortalConfig{Timeout: time.Second})

	path := updateMonitorPath("1_42", "tok")
	m := &UpdateMonitor{client: c, handle: path, done: make(chan struct{})}
	for _, member := range []string{SIGNAL_UPDATE_AVAILABLE, SIGNAL_PROGRESS} {
		sub := newSubscription(c, path, UPDATE_MONITOR_IFACE, member)
		c.register(sub)
		m.subs = append(m.subs, sub)
	}
	c.wg.Add(1)
	go m.listen()

	c.route(&dbus.Signal{
		Path: path,
		Name: UPDATE_MONITOR_IFACE + "." + SIGNAL_PROGRESS,
		Body: []interface{}{map[string]dbus.Variant{"progress": dbus.MakeVariant(uint32(100)), "status": dbus.MakeVariant(uint32(UpdateDone))}},
	})

	select {
	case e := <-c.Events():
		if e.Type != events.TypeUpdateProgress {
			t.Errorf("event type = %s", e.Type)
		}
		if data := e.Data.(UpdateProgressData); data.Status != UpdateDone {
			t.Errorf("status = %d", data.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("no event forwarded")
	}

	cancel()
	c.wg.Wait()
	if c.subscriptions() != 0 {
		t.Error("monitor subscriptions should be removed when listening stops")
	}
}

func TestUpdateMonitorPath(t *testing.T) {
	want := dbus.ObjectPath("/org/freedesktop/portal/Flatpak/update_monitor/1_42/tok")
	if got := updateMonitorPath("1_42", "tok"); got != want {
		t.Errorf("updateMonitorPath() = %s, want %s", got, want)
	}
}
