package screencast

import (
	"context"
	"sync"
	"time"

	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/events"
)

type State int

const (
	NotStarted State = iota
	Starting
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Starting:
		return "starting"
	case Active:
		return "active"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Session is the part of a portal screencast session the tracker drives.
type Session interface {
	Start(ctx context.Context) error
	Streams() []portal.Stream
	RestoreToken() string
	Close()
	Closed() <-chan struct{}
}

type Client interface {
	CreateScreencastSession(ctx context.Context, opts portal.ScreencastOptions) (Session, error)
}

// TokenStore persists the restore token across restarts.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

type Tracker struct {
	ctx    context.Context
	client Client
	store  TokenStore
	opts   portal.ScreencastOptions

	mu          sync.Mutex
	state       State
	session     Session
	streams     []portal.Stream
	token       string
	summary     string
	since       time.Time
	cancelStart context.CancelFunc
	// generation changes on every transition initiated by Toggle, so a
	// handshake or a close watcher can tell it has been superseded.
	generation uint64

	eventsC chan events.Event
}

// Status is the JSON view of the tracker.
type Status struct {
	State           string          `json:"state"`
	Active          bool            `json:"active"`
	Streams         []portal.Stream `json:"streams"`
	Summary         string          `json:"summary"`
	HasRestoreToken bool            `json:"has_restore_token"`
	Since           string          `json:"since,omitempty"`
}
