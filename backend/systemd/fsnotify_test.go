package systemd

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func fsListener(refresh func(context.Context, string) (*Unit, error), notified chan<- Unit) *listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &listener{
		ctx:       ctx,
		cancel:    cancel,
		watched:   map[string]bool{"xdg-desktop-portal.service": true},
		refresh:   refresh,
		notify:    func(u Unit) { notified <- u },
		lastState: make(map[string]string),
	}
}

func TestDispatchFSNotify_Filter(t *testing.T) {
	notified := make(chan Unit, 4)
	l := fsListener(func(_ context.Context, name string) (*Unit, error) {
		return &Unit{Name: name, ActiveState: "active", SubState: "running"}, nil
	}, notified)
	defer l.cancel()

	tests := map[string]string{
		"/run/user/1000/systemd/units/invocation:xdg-desktop-portal.service": "xdg-desktop-portal.service",
		"/run/user/1000/systemd/units/invocation:gnome-shell.service":        "",
		"/run/user/1000/systemd/units/xdg-desktop-portal.service":            "",
		"/run/user/1000/systemd/units/invocation:":                           "",
	}
	for path, want := range tests {
		if got := l.dispatchFSNotify(fsnotify.Event{Name: path, Op: fsnotify.Create}); got != want {
			t.Errorf("dispatchFSNotify(%s) = %q, want %q", path, got, want)
		}
	}

	select {
	case u := <-notified:
		if u.Name != "xdg-desktop-portal.service" {
			t.Errorf("notified %s", u.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("no unit.updated after invocation link")
	}
}

func TestWaitForStableState(t *testing.T) {
	var calls atomic.Int32
	notified := make(chan Unit, 4)
	l := fsListener(func(_ context.Context, name string) (*Unit, error) {
		if calls.Add(1) == 1 {
			return &Unit{Name: name, ActiveState: "activating", SubState: "start"}, nil
		}
		return &Unit{Name: name, ActiveState: "active", SubState: "running", Running: true}, nil
	}, notified)
	defer l.cancel()

	l.pending.Store("xdg-desktop-portal.service", true)
	l.waitForStableState("xdg-desktop-portal.service")

	if calls.Load() != 2 {
		t.Errorf("refresh called %d times, want 2", calls.Load())
	}
	select {
	case u := <-notified:
		if !u.Running {
			t.Errorf("notified %+v, want the stable unit", u)
		}
	default:
		t.Fatal("stable state not published")
	}
	if _, ok := l.pending.Load("xdg-desktop-portal.service"); ok {
		t.Error("pending entry not cleared")
	}

	// same substate again is not republished
	l.waitForStableState("xdg-desktop-portal.service")
	if len(notified) != 0 {
		t.Error("unchanged state published twice")
	}
}

func TestWaitForStableState_Cancelled(t *testing.T) {
	notified := make(chan Unit, 1)
	l := fsListener(func(_ context.Context, name string) (*Unit, error) {
		return &Unit{Name: name, ActiveState: "deactivating"}, nil
	}, notified)
	l.cancel()

	done := make(chan struct{})
	go func() {
		l.waitForStableState("xdg-desktop-portal.service")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not stop on cancel")
	}
	if len(notified) != 0 {
		t.Error("transitional state published")
	}
}

func TestStartFSNotifier(t *testing.T) {
	notified := make(chan Unit, 4)
	l := fsListener(func(_ context.Context, name string) (*Unit, error) {
		return &Unit{Name: name, ActiveState: "active", SubState: "running"}, nil
	}, notified)
	defer l.cancel()

	if err := l.startFSNotifier(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("startFSNotifier() on a missing directory should fail")
	}

	dir := t.TempDir()
	if err := l.startFSNotifier(dir); err != nil {
		t.Fatalf("startFSNotifier() = %v", err)
	}
	if err := os.Symlink("/dev/null", filepath.Join(dir, "invocation:xdg-desktop-portal.service")); err != nil {
		t.Fatal(err)
	}

	select {
	case u := <-notified:
		if u.Name != "xdg-desktop-portal.service" {
			t.Errorf("notified %s", u.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no unit.updated after invocation link was created")
	}
}
