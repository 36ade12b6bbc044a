package screencast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/events"
	"github.com/b0bbywan/go-portal-test/logger"
)

// New creates a tracker. store may be nil, in which case the restore
// token only lives in memory.
func New(ctx context.Context, client Client, store TokenStore, opts portal.ScreencastOptions) *Tracker {
	t := &Tracker{
		ctx:     ctx,
		client:  client,
		store:   store,
		opts:    opts,
		state:   NotStarted,
		eventsC: make(chan events.Event, 8),
	}
	if store != nil {
		token, err := store.Load()
		if err != nil {
			logger.Warn("[screencast] failed to load restore token: %v", err)
		}
		t.token = token
	}
	return t
}

// FromPortal adapts a portal client to the tracker's Client.
func FromPortal(c *portal.Client) Client {
	return portalClient{c}
}

type portalClient struct {
	*portal.Client
}

func (p portalClient) CreateScreencastSession(ctx context.Context, opts portal.ScreencastOptions) (Session, error) {
	s, err := p.Client.CreateScreencastSession(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Toggle opts in (on) or out of screen casting.
//
// Opting in while Active is a no-op and while Starting fails with
// ErrInProgress. Opting out while NotStarted or Closed is a no-op; while
// Starting it aborts the handshake, which closes whatever it created.
func (t *Tracker) Toggle(ctx context.Context, on bool) error {
	if on {
		return t.start(ctx)
	}
	t.stop()
	return nil
}

func (t *Tracker) start(ctx context.Context) error {
	t.mu.Lock()
	switch t.state {
	case Active:
		t.mu.Unlock()
		return nil
	case Starting:
		t.mu.Unlock()
		return ErrInProgress
	}

	t.generation++
	gen := t.generation
	startCtx, cancel := context.WithCancel(ctx)
	t.cancelStart = cancel
	t.state = Starting
	opts := t.opts
	opts.RestoreToken = t.token
	t.mu.Unlock()
	t.notify()

	logger.Info("[screencast] starting session (restore token: %v)", opts.RestoreToken != "")
	session, err := t.client.CreateScreencastSession(startCtx, opts)
	if err == nil {
		if err = session.Start(startCtx); err != nil {
			session.Close()
		}
	}
	cancel()

	t.mu.Lock()
	if t.generation != gen {
		t.mu.Unlock()
		if err == nil {
			session.Close()
		}
		logger.Info("[screencast] start aborted")
		return ErrAborted
	}
	t.cancelStart = nil

	if err != nil {
		t.clearLocked()
		t.mu.Unlock()
		t.notify()
		if errors.Is(err, portal.ErrCancelled) {
			logger.Info("[screencast] start cancelled by the user")
		} else {
			logger.Error("[screencast] failed to start session: %v", err)
		}
		return err
	}

	returned := session.RestoreToken()
	t.state = Active
	t.session = session
	t.streams = session.Streams()
	t.since = time.Now()
	if returned != "" {
		t.token = returned
	}
	t.summary = Summary(t.streams, returned)
	t.mu.Unlock()

	if returned != "" && t.store != nil {
		if err := t.store.Save(returned); err != nil {
			logger.Warn("[screencast] failed to persist restore token: %v", err)
		}
	}
	go t.watch(session, gen)

	logger.Info("[screencast] session active with %d stream(s)", len(t.Streams()))
	t.notify()
	return nil
}

func (t *Tracker) stop() {
	t.mu.Lock()
	switch t.state {
	case NotStarted, Closed:
		t.mu.Unlock()
		return
	case Starting:
		t.generation++
		if t.cancelStart != nil {
			t.cancelStart()
			t.cancelStart = nil
		}
		t.clearLocked()
		t.mu.Unlock()
		logger.Info("[screencast] aborting start")
		t.notify()
		return
	}

	t.generation++
	session := t.session
	t.clearLocked()
	t.mu.Unlock()

	session.Close()
	logger.Info("[screencast] session closed")
	t.notify()
}

// clearLocked moves to Closed and drops everything session-bound.
// The restore token is kept.
func (t *Tracker) clearLocked() {
	t.state = Closed
	t.session = nil
	t.streams = nil
	t.summary = ""
	t.since = time.Time{}
}

// watch reacts to the compositor closing the session on its own.
func (t *Tracker) watch(session Session, gen uint64) {
	select {
	case <-session.Closed():
	case <-t.ctx.Done():
		return
	}

	t.mu.Lock()
	if t.generation != gen || t.session != session {
		t.mu.Unlock()
		return
	}
	t.generation++
	t.clearLocked()
	t.mu.Unlock()

	logger.Info("[screencast] session closed by the portal")
	t.notify()
}

// Close ends any session, used on shutdown.
func (t *Tracker) Close() {
	t.stop()
}

// Summary renders one line per stream and the returned restore token.
func Summary(streams []portal.Stream, token string) string {
	lines := make([]string, 0, len(streams)+1)
	for _, s := range streams {
		var x, y, w, h int32
		if s.Position != nil {
			x, y = s.Position.X, s.Position.Y
		}
		if s.Size != nil {
			w, h = s.Size.Width, s.Size.Height
		}
		lines = append(lines, fmt.Sprintf("Stream %d: %dx%d @ %d,%d", s.ID, w, h, x, y))
	}
	if token != "" {
		lines = append(lines, "Restore token: "+token)
	}
	return strings.Join(lines, "\n")
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) Summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}

func (t *Tracker) Streams() []portal.Stream {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]portal.Stream, len(t.streams))
	copy(out, t.streams)
	return out
}

func (t *Tracker) RestoreToken() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token
}

// SetRestoreToken adopts a token written by someone else.
func (t *Tracker) SetRestoreToken(token string) {
	t.mu.Lock()
	changed := t.token != token
	t.token = token
	t.mu.Unlock()
	if changed {
		logger.Info("[screencast] restore token replaced externally")
		t.notify()
	}
}

// ForgetRestoreToken drops the in-memory token only.
func (t *Tracker) ForgetRestoreToken() {
	t.mu.Lock()
	had := t.token != ""
	t.token = ""
	t.mu.Unlock()
	if had {
		logger.Info("[screencast] restore token forgotten")
		t.notify()
	}
}

// InvalidateRestoreToken forgets the token and removes its persisted copy.
// The next session will show the source picker again.
func (t *Tracker) InvalidateRestoreToken() error {
	t.ForgetRestoreToken()
	if t.store == nil {
		return nil
	}
	return t.store.Clear()
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := Status{
		State:           t.state.String(),
		Active:          t.state == Active,
		Streams:         make([]portal.Stream, len(t.streams)),
		Summary:         t.summary,
		HasRestoreToken: t.token != "",
	}
	copy(st.Streams, t.streams)
	if !t.since.IsZero() {
		st.Since = humanize.Time(t.since)
	}
	return st
}

func (t *Tracker) Events() <-chan events.Event {
	return t.eventsC
}

func (t *Tracker) notify() {
	e := events.Event{Type: events.TypeScreencastUpdated, Data: t.Status()}
	select {
	case t.eventsC <- e:
	default:
		logger.Debug("[screencast] event channel full, dropping %s event", e.Type)
	}
}
