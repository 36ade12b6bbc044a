package portal

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
	"github.com/b0bbywan/go-portal-test/logger"
)

// CreateScreencastSession runs CreateSession then SelectSources. On a
// SelectSources failure the new session is closed before returning.
func (c *Client) CreateScreencastSession(ctx context.Context, opts ScreencastOptions) (*Session, error) {
	resp, err := c.request(ctx, c.desktop(), SCREENCAST_CREATE_SESSION, map[string]dbus.Variant{
		"session_handle_token": dbus.MakeVariant(newToken()),
	})
	if err != nil {
		return nil, err
	}

	handle, ok := idbus.MapObjectPath(resp.results, "session_handle")
	if !ok {
		return nil, &RequestError{Method: SCREENCAST_CREATE_SESSION, Code: ResponseFailed}
	}

	s, err := c.newSession(handle)
	if err != nil {
		return nil, err
	}
	logger.Debug("[portal] screencast session %s created", handle)

	if _, err := c.request(ctx, c.desktop(), SCREENCAST_SELECT_SOURCES, s.handle, c.selectOptions(opts)); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// selectOptions builds the SelectSources dict. cursor_mode needs version 2
// of the interface, persistence needs version 4.
func (c *Client) selectOptions(opts ScreencastOptions) map[string]dbus.Variant {
	version := c.Version(SCREENCAST_IFACE)
	dict := map[string]dbus.Variant{
		"types":    dbus.MakeVariant(uint32(opts.Sources)),
		"multiple": dbus.MakeVariant(opts.Multiple),
	}
	if version >= 2 {
		dict["cursor_mode"] = dbus.MakeVariant(uint32(opts.Cursor))
	}
	if version >= 4 {
		dict["persist_mode"] = dbus.MakeVariant(uint32(opts.Persist))
		if opts.RestoreToken != "" {
			dict["restore_token"] = dbus.MakeVariant(opts.RestoreToken)
		}
	}
	return dict
}

func (c *Client) newSession(handle dbus.ObjectPath) (*Session, error) {
	sub, err := c.Subscribe(handle, SESSION_IFACE, SIGNAL_CLOSED)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", SESSION_IFACE+"."+SIGNAL_CLOSED, err)
	}
	s := &Session{
		client:    c,
		handle:    handle,
		closedSub: sub,
		closed:    make(chan struct{}),
	}
	go s.watchClosed()
	return s, nil
}

func (s *Session) watchClosed() {
	select {
	case <-s.closedSub.C:
		logger.Info("[portal] session %s closed by the compositor", s.handle)
		s.markClosed()
	case <-s.closed:
	case <-s.client.ctx.Done():
		s.markClosed()
	}
}

func (s *Session) markClosed() {
	s.closeOnce.Do(func() {
		s.closedSub.Close()
		s.mu.Lock()
		s.streams = nil
		s.mu.Unlock()
		close(s.closed)
	})
}

// Start shows the source picker and records the granted streams.
func (s *Session) Start(ctx context.Context) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}

	resp, err := s.client.request(ctx, s.client.desktop(), SCREENCAST_START, s.handle, s.client.parent, map[string]dbus.Variant{})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := resp.results["streams"]; ok {
		s.streams = parseStreams(v)
	}
	s.restoreToken = idbus.MapString(resp.results, "restore_token")
	if mode, ok := idbus.MapUint32(resp.results, "persist_mode"); ok {
		s.persistMode = PersistMode(mode)
	}
	logger.Info("[portal] session %s started with %d stream(s)", s.handle, len(s.streams))
	return nil
}

func (s *Session) Handle() dbus.ObjectPath {
	return s.handle
}

func (s *Session) Streams() []Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Stream, len(s.streams))
	copy(out, s.streams)
	return out
}

// RestoreToken is the token returned by Start, empty if none was returned.
func (s *Session) RestoreToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreToken
}

func (s *Session) PersistMode() PersistMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistMode
}

// Closed is closed once the session ends, whoever ended it.
func (s *Session) Closed() <-chan struct{} {
	return s.closed
}

// Close ends the session. Calling it on an already closed session does nothing.
func (s *Session) Close() {
	select {
	case <-s.closed:
		return
	default:
	}
	if conn := s.client.conn; conn != nil {
		obj := conn.Object(PORTAL_DEST, s.handle)
		if err := idbus.CallMethod(context.Background(), obj, SESSION_CLOSE); err != nil {
			logger.Warn("[portal] failed to close session %s: %v", s.handle, err)
		}
	}
	s.markClosed()
}
