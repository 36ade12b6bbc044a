package ui

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/b0bbywan/go-portal-test/backend"
	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/backend/screencast"
	"github.com/b0bbywan/go-portal-test/backend/sound"
	"github.com/b0bbywan/go-portal-test/backend/systemd"
	"github.com/b0bbywan/go-portal-test/events"
	"github.com/b0bbywan/go-portal-test/window"
)

func fullView() window.View {
	return window.View{
		SandboxStatus:   "confined",
		NetworkStatus:   "available, connectivity=full",
		MonitorName:     portal.NETWORK_IFACE,
		ResolverName:    portal.PROXY_IFACE,
		Proxies:         "direct://",
		Encoding:        "Unicode (UTF-16) (canon)",
		Screencast:      screencast.Status{State: "active", Active: true, HasRestoreToken: true},
		ScreencastLabel: "Stream 1: 1920x1080 @ 0,0\nRestore token: abc",
		Screenshot:      &window.Image{URI: "file:///tmp/shot.png", Width: 800, Height: 600},
		Username:        "jdoe",
		Realname:        "J. Doe",
		Inhibit:         window.InhibitView{Flags: portal.InhibitIdle, Label: "idle", Active: true},
		Acked:           true,
		Update:          &window.UpdateView{Label: "Installing…", Progress: 40, Available: true, Monitoring: true},
		Sound:           &sound.Report{Frequency: 440, Duration: "500ms", Played: true, ServerError: "no server"},
		LastError:       &events.FailureData{Action: "save", Error: "denied"},
		UpdatedAt:       time.Now(),
	}
}

func allBackends() backend.Backends {
	return backend.Backends{Portal: true, Screencast: true, Sound: true, Updates: true}
}

func TestLoadTemplates(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("LoadTemplates panicked: %v", r)
		}
	}()

	tmpl := LoadTemplates()
	for _, name := range []string{"base", "dashboard", "content", "section-server", "section-window", "image"} {
		if tmpl.Lookup(name) == nil {
			t.Errorf("required template %q not found", name)
		}
	}
}

func TestSectionTemplates(t *testing.T) {
	tmpl := LoadTemplates()

	tests := []struct {
		name     string
		template string
		data     any
		contains []string
	}{
		{
			name:     "empty window",
			template: "section-window",
			data:     convertWindow(window.View{}, backend.Backends{}),
			contains: []string{"Nothing inhibited", "never"},
		},
		{
			name:     "full window",
			template: "section-window",
			data:     convertWindow(fullView(), allBackends()),
			contains: []string{
				"Restore token: abc",
				"Installing…",
				"save failed: denied",
				"800x600",
				`name="idle" checked`,
				"Inhibiting idle",
				"Acknowledged",
			},
		},
		{
			name:     "server",
			template: "section-server",
			data: &backend.ServerDeviceInfo{
				Hostname: "box",
				APISW:    "portal-test",
				Portals:  map[string]uint32{"org.freedesktop.portal.ScreenCast": 5},
				Units: []systemd.Unit{
					{Name: "xdg-desktop-portal.service", ActiveState: "active", SubState: "running", Exists: true},
					{Name: "xdg-desktop-portal-gtk.service"},
				},
			},
			contains: []string{
				"box",
				"org.freedesktop.portal.ScreenCast v5",
				"active (running)",
				"not installed",
			},
		},
		{
			name:     "image",
			template: "image",
			data:     &window.Image{URI: "file:///tmp/a.png", Width: 2, Height: 3},
			contains: []string{"2x3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tmpl.ExecuteTemplate(&buf, tt.template, tt.data); err != nil {
				t.Fatalf("failed to execute %s: %v", tt.template, err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("%s output misses %q", tt.template, want)
				}
			}
		})
	}
}

func TestSectionWindowHidesDisabledBackends(t *testing.T) {
	var buf bytes.Buffer
	view := fullView()
	view.Update = nil
	if err := LoadTemplates().ExecuteTemplate(&buf, "section-window", convertWindow(view, backend.Backends{})); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{`id="screencast"`, `id="sound"`, `id="update"`} {
		if strings.Contains(buf.String(), id) {
			t.Errorf("section %s should be hidden", id)
		}
	}
}

func TestConvertWindow(t *testing.T) {
	v := convertWindow(fullView(), allBackends())
	if len(v.ScreencastLines) != 2 || v.ScreencastLines[1] != "Restore token: abc" {
		t.Errorf("lines = %q", v.ScreencastLines)
	}
	checked := map[string]bool{}
	for _, b := range v.InhibitBoxes {
		checked[b.Key] = b.Checked
	}
	if len(checked) != 4 || !checked["idle"] || checked["logout"] {
		t.Errorf("boxes = %+v", v.InhibitBoxes)
	}
	if empty := convertWindow(window.View{}, backend.Backends{}); empty.ScreencastLines != nil {
		t.Errorf("empty label should give no lines, got %q", empty.ScreencastLines)
	}
}

func fakeAPI(t *testing.T, windowStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /server", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(backend.ServerDeviceInfo{Hostname: "box", Backends: allBackends()})
	})
	mux.HandleFunc("GET /window", func(w http.ResponseWriter, r *http.Request) {
		if windowStatus != http.StatusOK {
			w.WriteHeader(windowStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(fullView())
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func testHandler(baseURL string) *Handler {
	return &Handler{tmpl: LoadTemplates(), client: newAPIClient(baseURL)}
}

func TestDashboard(t *testing.T) {
	h := testHandler(fakeAPI(t, http.StatusOK).URL)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ui", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"<title>portal-test</title>", "box", "Restore token: abc", "EventSource"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard misses %q", want)
		}
	}
}

func TestDashboardWithoutWindow(t *testing.T) {
	h := testHandler(fakeAPI(t, http.StatusInternalServerError).URL)
	w := httptest.NewRecorder()
	h.Dashboard(w, httptest.NewRequest(http.MethodGet, "/ui", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Window state unavailable") {
		t.Errorf("dashboard = (%d, %q)", w.Code, w.Body.String())
	}
}

func TestWindowSection(t *testing.T) {
	h := testHandler(fakeAPI(t, http.StatusOK).URL)
	w := httptest.NewRecorder()
	h.WindowSection(w, httptest.NewRequest(http.MethodGet, "/ui/sections/window", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "<html") {
		t.Error("a section should not render the page")
	}

	h = testHandler(fakeAPI(t, http.StatusNotFound).URL)
	w = httptest.NewRecorder()
	h.WindowSection(w, httptest.NewRequest(http.MethodGet, "/ui/sections/window", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestDashboardServerDown(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	w := httptest.NewRecorder()
	testHandler(ts.URL).Dashboard(w, httptest.NewRequest(http.MethodGet, "/ui", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
