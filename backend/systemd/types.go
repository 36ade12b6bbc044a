package systemd

import (
	"context"
	"errors"
	"sync"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/b0bbywan/go-portal-test/cache"
	"github.com/b0bbywan/go-portal-test/events"
)

const cacheKey = "units"

var ErrUnknownUnit = errors.New("systemd: unknown unit")

// Backend follows the user units running the portal frontend and its
// backends. Only watched units can be restarted.
type Backend struct {
	conn    *dbus.Conn
	ctx     context.Context
	units   []string
	watched map[string]bool

	// $XDG_RUNTIME_DIR, where systemd drops invocation links
	runtimeDir string

	// permanent cache (no expiration)
	cache *cache.Cache[[]Unit]

	listener *listener
	eventsC  chan events.Event
}

type listener struct {
	ctx     context.Context
	cancel  context.CancelFunc
	watched map[string]bool
	refresh func(ctx context.Context, name string) (*Unit, error)
	notify  func(Unit)

	// last known substate per unit, signals repeat on every property change
	lastState   map[string]string
	lastStateMu sync.Mutex

	// units with a stable state wait in flight
	pending sync.Map
}

type Unit struct {
	Name        string `json:"name"`
	ActiveState string `json:"active_state,omitempty"`
	SubState    string `json:"sub_state,omitempty"`
	Running     bool   `json:"running"`
	Enabled     bool   `json:"enabled"`
	Exists      bool   `json:"exists"`
	Description string `json:"description,omitempty"`
}

type PermissionError struct {
	Unit string
}

func (e *PermissionError) Error() string {
	return "cannot act on unwatched unit: " + e.Unit
}

// JobError is returned when systemd finishes a job with a result other than "done".
type JobError struct {
	Unit   string
	Result string
}

func (e *JobError) Error() string {
	return "job for " + e.Unit + " finished with result " + e.Result
}
