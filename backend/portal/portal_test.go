package portal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
	"github.com/b0bbywan/go-portal-test/config"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	return newClient(context.Background(), nil, &config.PortalConfig{Timeout: time.Second})
}

func responseSignal(path dbus.ObjectPath, code uint32, results map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Path: path,
		Name: REQUEST_IFACE + "." + SIGNAL_RESPONSE,
		Body: []interface{}{code, results},
	}
}

func TestNew_NilConfig(t *testing.T) {
	c, err := New(context.Background(), nil)
	if err == nil {
		t.Error("New(nil) should fail")
	}
	if c != nil {
		t.Error("New(nil) should not return a client")
	}
}

func TestSenderPath(t *testing.T) {
	tests := map[string]string{
		":1.42":   "1_42",
		":1.2345": "1_2345",
		"1.3":     "1_3",
	}
	for in, want := range tests {
		if got := senderPath(in); got != want {
			t.Errorf("senderPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequestPath(t *testing.T) {
	got := requestPath("1_42", "portal_test_abc")
	want := dbus.ObjectPath("/org/freedesktop/portal/desktop/request/1_42/portal_test_abc")
	if got != want {
		t.Errorf("requestPath() = %q, want %q", got, want)
	}
}

func TestNewToken(t *testing.T) {
	a, b := newToken(), newToken()
	if a == b {
		t.Fatalf("newToken() returned %q twice", a)
	}
	for _, tok := range []string{a, b} {
		if !strings.HasPrefix(tok, "portal_test_") {
			t.Errorf("token %q lacks prefix", tok)
		}
		if !requestPath("1_42", tok).IsValid() {
			t.Errorf("token %q does not form a valid object path", tok)
		}
	}
}

func TestResponseError(t *testing.T) {
	if err := responseError(SCREENSHOT_METHOD, ResponseSuccess); err != nil {
		t.Errorf("code 0 should be nil, got %v", err)
	}
	if err := responseError(SCREENSHOT_METHOD, ResponseCancelled); !errors.Is(err, ErrCancelled) {
		t.Errorf("code 1 should be ErrCancelled, got %v", err)
	}

	err := responseError(SCREENSHOT_METHOD, ResponseFailed)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("code 2 should be *RequestError, got %T", err)
	}
	if reqErr.Method != SCREENSHOT_METHOD || reqErr.Code != 2 {
		t.Errorf("RequestError = %+v", reqErr)
	}
	if !strings.Contains(err.Error(), "Screenshot") {
		t.Errorf("error message %q should name the method", err.Error())
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		sig     *dbus.Signal
		code    uint32
		wantErr bool
	}{
		{"nil signal", nil, 0, true},
		{"short body", &dbus.Signal{Body: []interface{}{uint32(0)}}, 0, true},
		{"bad code", &dbus.Signal{Body: []interface{}{"0", map[string]dbus.Variant{}}}, 0, true},
		{"bad results", &dbus.Signal{Body: []interface{}{uint32(0), "x"}}, 0, true},
		{"ok", responseSignal("/r", 0, map[string]dbus.Variant{}), 0, false},
		{"cancelled", responseSignal("/r", 1, map[string]dbus.Variant{}), 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, err := parseResponse(tt.sig)
			if tt.wantErr {
				var sigErr *idbus.SignalError
				if !errors.As(err, &sigErr) {
					t.Fatalf("expected *SignalError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if code != tt.code {
				t.Errorf("code = %d, want %d", code, tt.code)
			}
		})
	}
}

func TestRouteDeliversToMatchingSubscription(t *testing.T) {
	c := testClient(t)
	path := requestPath("1_42", "tok")
	sub := newSubscription(c, path, REQUEST_IFACE, SIGNAL_RESPONSE)
	other := newSubscription(c, requestPath("1_42", "other"), REQUEST_IFACE, SIGNAL_RESPONSE)
	c.register(sub)
	c.register(other)

	c.route(responseSignal(path, 0, map[string]dbus.Variant{}))

	select {
	case sig := <-sub.C:
		if sig.Path != path {
			t.Errorf("routed signal path = %s", sig.Path)
		}
	default:
		t.Fatal("matching subscription got nothing")
	}
	select {
	case <-other.C:
		t.Fatal("signal routed to the wrong path")
	default:
	}
}

func TestRouteDoesNotBlockWhenFull(t *testing.T) {
	c := testClient(t)
	path := requestPath("1_42", "tok")
	sub := newSubscription(c, path, REQUEST_IFACE, SIGNAL_RESPONSE)
	c.register(sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(sub.C)+3; i++ {
			c.route(responseSignal(path, 0, nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("route blocked on a full subscriber")
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	c := testClient(t)
	sub := newSubscription(c, "/a", SESSION_IFACE, SIGNAL_CLOSED)
	c.register(sub)
	if c.subscriptions() != 1 {
		t.Fatalf("subscriptions() = %d, want 1", c.subscriptions())
	}

	sub.Close()
	sub.Close()

	if c.subscriptions() != 0 {
		t.Errorf("subscriptions() = %d after Close, want 0", c.subscriptions())
	}
}

func TestRegisterAfterCloseFails(t *testing.T) {
	c := testClient(t)
	c.subs = nil
	if c.register(newSubscription(c, "/a", SESSION_IFACE, SIGNAL_CLOSED)) {
		t.Error("register should fail once the client is closed")
	}
}

func TestDispatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := newClient(ctx, nil, &config.PortalConfig{Timeout: time.Second})
	path := dbus.ObjectPath("/org/freedesktop/portal/desktop/session/1_42/s")
	sub := newSubscription(c, path, SESSION_IFACE, SIGNAL_CLOSED)
	c.register(sub)

	c.wg.Add(1)
	go c.dispatch()

	c.signals <- &dbus.Signal{Path: path, Name: SESSION_IFACE + "." + SIGNAL_CLOSED}
	select {
	case <-sub.C:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not route the signal")
	}

	cancel()
	done := make(chan struct{})
	go func() { c.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop on cancel")
	}
}

func TestWait(t *testing.T) {
	tests := []struct {
		name    string
		code    uint32
		wantErr error
	}{
		{"success", ResponseSuccess, nil},
		{"cancelled", ResponseCancelled, ErrCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t)
			path := requestPath("1_42", "tok")
			sub := newSubscription(c, path, REQUEST_IFACE, SIGNAL_RESPONSE)
			sub.C <- responseSignal(path, tt.code, map[string]dbus.Variant{"uri": dbus.MakeVariant("file:///x.png")})

			resp, err := c.wait(context.Background(), SCREENSHOT_METHOD, path, sub)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("wait() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && idbus.MapString(resp.results, "uri") != "file:///x.png" {
				t.Errorf("results = %v", resp.results)
			}
		})
	}
}

func TestWaitFailureCode(t *testing.T) {
	c := testClient(t)
	path := requestPath("1_42", "tok")
	sub := newSubscription(c, path, REQUEST_IFACE, SIGNAL_RESPONSE)
	sub.C <- responseSignal(path, ResponseFailed, map[string]dbus.Variant{})

	_, err := c.wait(context.Background(), SCREENCAST_START, path, sub)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Method != SCREENCAST_START {
		t.Fatalf("wait() error = %v, want RequestError for Start", err)
	}
}

func TestWaitTimeoutAndCancel(t *testing.T) {
	c := newClient(context.Background(), nil, &config.PortalConfig{Timeout: 20 * time.Millisecond})
	sub := newSubscription(c, "/r", REQUEST_IFACE, SIGNAL_RESPONSE)

	_, err := c.wait(context.Background(), EMAIL_COMPOSE, "/r", sub)
	var timeout *ResponseTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("wait() error = %v, want ResponseTimeoutError", err)
	}

	c.timeout = time.Minute
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.wait(ctx, EMAIL_COMPOSE, "/r", sub); !errors.Is(err, context.Canceled) {
		t.Fatalf("wait() error = %v, want context.Canceled", err)
	}
}

func TestSelectOptions(t *testing.T) {
	opts := ScreencastOptions{
		Sources:      SourceMonitor | SourceWindow,
		Cursor:       CursorHidden,
		Persist:      PersistTransient,
		RestoreToken: "abc",
	}

	tests := []struct {
		version     uint32
		wantCursor  bool
		wantPersist bool
	}{
		{1, false, false},
		{3, true, false},
		{4, true, true},
		{5, true, true},
	}

	for _, tt := range tests {
		c := testClient(t)
		c.versions.Set(SCREENCAST_IFACE, tt.version)
		dict := c.selectOptions(opts)

		if types, _ := idbus.MapUint32(dict, "types"); types != 3 {
			t.Errorf("v%d: types = %d, want 3", tt.version, types)
		}
		if _, ok := dict["cursor_mode"]; ok != tt.wantCursor {
			t.Errorf("v%d: cursor_mode present = %v, want %v", tt.version, ok, tt.wantCursor)
		}
		if _, ok := dict["persist_mode"]; ok != tt.wantPersist {
			t.Errorf("v%d: persist_mode present = %v, want %v", tt.version, ok, tt.wantPersist)
		}
		if got := idbus.MapString(dict, "restore_token"); tt.wantPersist && got != "abc" {
			t.Errorf("v%d: restore_token = %q, want abc", tt.version, got)
		}
	}
}

func TestSelectOptionsOmitsEmptyToken(t *testing.T) {
	c := testClient(t)
	c.versions.Set(SCREENCAST_IFACE, 4)
	dict := c.selectOptions(ScreencastOptions{Sources: SourceWindow, Persist: PersistTransient})
	if _, ok := dict["restore_token"]; ok {
		t.Error("an empty restore token should not be sent")
	}
}

func TestSessionClose(t *testing.T) {
	c := testClient(t)
	handle := dbus.ObjectPath("/org/freedesktop/portal/desktop/session/1_42/s")
	sub := newSubscription(c, handle, SESSION_IFACE, SIGNAL_CLOSED)
	c.register(sub)
	s := &Session{
		client:    c,
		handle:    handle,
		closedSub: sub,
		closed:    make(chan struct{}),
		streams:   []Stream{{ID: 1}},
	}

	s.Close()
	s.Close()

	select {
	case <-s.Closed():
	default:
		t.Fatal("Closed() should be closed after Close")
	}
	if len(s.Streams()) != 0 {
		t.Error("streams should be cleared on close")
	}
	if c.subscriptions() != 0 {
		t.Error("Closed subscription should be removed")
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() on closed session = %v, want ErrClosed", err)
	}
}

func TestSessionClosedByCompositor(t *testing.T) {
	c := testClient(t)
	handle := dbus.ObjectPath("/org/freedesktop/portal/desktop/session/1_42/s")
	sub := newSubscription(c, handle, SESSION_IFACE, SIGNAL_CLOSED)
	c.register(sub)
	s := &Session{client: c, handle: handle, closedSub: sub, closed: make(chan struct{})}
	go s.watchClosed()

	c.route(&dbus.Signal{Path: handle, Name: SESSION_IFACE + "." + SIGNAL_CLOSED})

	select {
	case <-s.Closed():
	case <-time.After(time.Second):
		t.Fatal("session did not observe Session.Closed")
	}
}

func TestLiveVersion(t *testing.T) {
	c, err := New(context.Background(), &config.PortalConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Skipf("no session bus: %v", err)
	}
	defer c.Close()
	if err := c.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if v := c.Version(SCREENCAST_IFACE); v == 0 {
		t.Skip("no ScreenCast portal on this session")
	}
	if _, ok := c.Versions()[SCREENCAST_IFACE]; !ok {
		t.Error("version should be cached after the first read")
	}
}
