package updates

import (
	"context"
	"sync"

	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/events"
)

type Monitor interface {
	Update(ctx context.Context) error
	Close()
}

type Client interface {
	CreateUpdateMonitor(ctx context.Context) (Monitor, error)
	Spawn(ctx context.Context, cwd string, argv []string) (uint32, error)
}

type Backend struct {
	ctx     context.Context
	client  Client
	marker  string
	restart []string

	mu        sync.Mutex
	monitor   Monitor
	available *portal.UpdateAvailableData

	eventsC chan events.Event
}

type Status struct {
	Monitoring bool                        `json:"monitoring"`
	Available  bool                        `json:"available"`
	Update     *portal.UpdateAvailableData `json:"update,omitempty"`
}
