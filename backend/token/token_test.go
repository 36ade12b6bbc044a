package token

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/b0bbywan/go-portal-test/config"
)

type recorder struct {
	mu      sync.Mutex
	set     []string
	forgets int
}

func (r *recorder) SetRestoreToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set = append(r.set, token)
}

func (r *recorder) ForgetRestoreToken() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgets++
}

func (r *recorder) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.set...), r.forgets
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(&config.TokenConfig{File: filepath.Join(t.TempDir(), "state", "restore-token")})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return s
}

func TestNew_NoFile(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) should fail")
	}
	if _, err := New(&config.TokenConfig{}); err == nil {
		t.Error("New() without a file should fail")
	}
}

func TestLoadMissing(t *testing.T) {
	s := newStore(t)
	token, err := s.Load()
	if err != nil || token != "" {
		t.Errorf("Load() on missing file = (%q, %v), want (\"\", nil)", token, err)
	}
}

func TestSaveLoadClear(t *testing.T) {
	s := newStore(t)

	if err := s.Save("abc"); err != nil {
		t.Fatalf("Save() = %v", err)
	}
	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("token file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}
	if token, _ := s.Load(); token != "abc" {
		t.Errorf("Load() = %q, want abc", token)
	}

	if err := s.Save("def"); err != nil {
		t.Fatalf("second Save() = %v", err)
	}
	if token, _ := s.Load(); token != "def" {
		t.Errorf("Load() after overwrite = %q, want def", token)
	}

	entries, _ := os.ReadDir(filepath.Dir(s.Path()))
	if len(entries) != 1 {
		t.Errorf("state dir has %d entries, temp files should be gone", len(entries))
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() = %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear() = %v", err)
	}
	if token, _ := s.Load(); token != "" {
		t.Errorf("Load() after Clear = %q", token)
	}
}

func TestDispatch(t *testing.T) {
	s := newStore(t)
	if err := s.Save("ours"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		event       fsnotify.Event
		prepare     func()
		wantSet     []string
		wantForgets int
	}{
		{
			name:  "other file",
			event: fsnotify.Event{Name: filepath.Join(filepath.Dir(s.Path()), "other"), Op: fsnotify.Remove},
		},
		{
			name:  "echo of our own write",
			event: fsnotify.Event{Name: s.Path(), Op: fsnotify.Create},
		},
		{
			name:    "external rewrite",
			prepare: func() { _ = os.WriteFile(s.Path(), []byte("theirs\n"), 0o600) },
			event:   fsnotify.Event{Name: s.Path(), Op: fsnotify.Write},
			wantSet: []string{"theirs"},
		},
		{
			name:        "emptied",
			prepare:     func() { _ = os.WriteFile(s.Path(), nil, 0o600) },
			event:       fsnotify.Event{Name: s.Path(), Op: fsnotify.Write},
			wantForgets: 1,
		},
		{
			name:        "removed",
			event:       fsnotify.Event{Name: s.Path(), Op: fsnotify.Remove},
			wantForgets: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepare != nil {
				tt.prepare()
			}
			r := &recorder{}
			s.dispatch(tt.event, r)
			set, forgets := r.snapshot()
			if len(set) != len(tt.wantSet) || (len(set) > 0 && set[0] != tt.wantSet[0]) {
				t.Errorf("set = %v, want %v", set, tt.wantSet)
			}
			if forgets != tt.wantForgets {
				t.Errorf("forgets = %d, want %d", forgets, tt.wantForgets)
			}
		})
	}
}

func TestWatchReportsExternalChanges(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &recorder{}
	if err := s.Watch(ctx, r); err != nil {
		t.Fatalf("Watch() = %v", err)
	}

	if err := os.WriteFile(s.Path(), []byte("external\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool {
		set, _ := r.snapshot()
		return len(set) > 0 && set[len(set)-1] == "external"
	})

	if err := os.Remove(s.Path()); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool {
		_, forgets := r.snapshot()
		return forgets > 0
	})
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
