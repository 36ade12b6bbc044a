package systemd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/b0bbywan/go-portal-test/cache"
	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/events"
	"github.com/b0bbywan/go-portal-test/logger"
)

func New(ctx context.Context, cfg *config.SystemdConfig) (*Backend, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if len(cfg.Units) == 0 {
		logger.Debug("[systemd] no unit configured, disabling backend")
		return nil, nil
	}

	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return nil, err
	}

	b := newBackend(ctx, conn, cfg.Units)
	b.runtimeDir = cfg.XDGRuntimeDir
	return b, nil
}

func newBackend(ctx context.Context, conn *dbus.Conn, units []string) *Backend {
	watched := make(map[string]bool, len(units))
	for _, name := range units {
		watched[name] = true
	}
	return &Backend{
		conn:    conn,
		ctx:     ctx,
		units:   units,
		watched: watched,
		cache:   cache.New[[]Unit](0),
		eventsC: make(chan events.Event, 8),
	}
}

// Start loads the initial cache and starts the listener
func (s *Backend) Start() error {
	if _, err := s.ListUnits(); err != nil {
		return err
	}

	s.listener = newListener(s)
	if err := s.listener.start(s.conn); err != nil {
		return err
	}
	if s.runtimeDir != "" {
		if err := s.listener.startFSNotifier(filepath.Join(s.runtimeDir, "systemd", "units")); err != nil {
			logger.Warn("[systemd] fsnotify listener disabled: %v", err)
		}
	}

	logger.Info("[systemd] watching %d units", len(s.units))
	return nil
}

func (s *Backend) Close() {
	if s.listener != nil {
		s.listener.stop(s.conn)
		s.listener = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *Backend) Events() <-chan events.Event {
	return s.eventsC
}

func (s *Backend) notify(u Unit) {
	e := events.Event{Type: events.TypeUnitUpdated, Data: u}
	select {
	case s.eventsC <- e:
	default:
		logger.Warn("[systemd] event channel full, dropping %s event", e.Type)
	}
}

func (s *Backend) canExecute(name string) error {
	if !s.watched[name] {
		return &PermissionError{Unit: name}
	}
	return nil
}

// ListUnits returns the watched units, from cache when possible.
func (s *Backend) ListUnits() ([]Unit, error) {
	if units, ok := s.cache.Get(cacheKey); ok {
		logger.Debug("[systemd] returning %d units from cache", len(units))
		return units, nil
	}

	logger.Debug("[systemd] cache miss, loading units")
	start := time.Now()
	units, err := s.listUnits(s.ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("[systemd] loaded %d units in %s", len(units), time.Since(start))

	s.cache.Set(cacheKey, units)
	return units, nil
}

func (s *Backend) listUnits(ctx context.Context) ([]Unit, error) {
	statuses, err := s.conn.ListUnitsByNamesContext(ctx, s.units)
	if err != nil {
		return nil, err
	}

	units := make([]Unit, 0, len(statuses))
	for _, status := range statuses {
		u := Unit{
			Name:        status.Name,
			ActiveState: status.ActiveState,
			SubState:    status.SubState,
			Running:     status.SubState == "running",
			Exists:      status.LoadState == "loaded",
			Description: status.Description,
		}
		if u.Exists {
			state, err := s.conn.GetUnitPropertyContext(ctx, status.Name, "UnitFileState")
			if err != nil {
				logger.Warn("[systemd] failed to get %s UnitFileState: %v", status.Name, err)
			} else if v, ok := state.Value.Value().(string); ok {
				u.Enabled = v == "enabled" || v == "static"
			}
		}
		units = append(units, u)
	}
	return units, nil
}

func (s *Backend) GetUnit(name string) (*Unit, bool) {
	units, ok := s.cache.Get(cacheKey)
	if !ok {
		return nil, false
	}
	for _, u := range units {
		if u.Name == name {
			return &u, true
		}
	}
	return nil, false
}

// updateUnit replaces (or adds) one unit in the cache.
func (s *Backend) updateUnit(updated Unit) error {
	units, ok := s.cache.Get(cacheKey)
	if !ok {
		_, err := s.ListUnits()
		return err
	}

	next := make([]Unit, 0, len(units)+1)
	found := false
	for _, u := range units {
		if u.Name == updated.Name {
			u = updated
			found = true
		}
		next = append(next, u)
	}
	if !found {
		next = append(next, updated)
	}

	s.cache.Set(cacheKey, next)
	return nil
}

// RefreshUnit reloads a unit from systemd and updates the cache.
func (s *Backend) RefreshUnit(ctx context.Context, name string) (*Unit, error) {
	props, err := s.conn.GetUnitPropertiesContext(ctx, name)
	if err != nil {
		logger.Debug("[systemd] failed to get %s unit properties: %v", name, err)
		props = nil
	}

	u := unitFromProps(name, props)
	if err := s.updateUnit(u); err != nil {
		return nil, err
	}
	return &u, nil
}

// RestartUnit restarts a watched unit and waits for the job to finish.
func (s *Backend) RestartUnit(ctx context.Context, name string) (*Unit, error) {
	if err := s.canExecute(name); err != nil {
		return nil, err
	}

	logger.Info("[systemd] restarting %s", name)
	if err := restartUnit(ctx, s.conn, name); err != nil {
		return nil, err
	}

	u, err := s.RefreshUnit(ctx, name)
	if err != nil {
		return nil, err
	}
	s.notify(*u)
	return u, nil
}

// CacheUpdatedAt returns the last time the unit cache was written to.
func (s *Backend) CacheUpdatedAt() time.Time {
	return s.cache.UpdatedAt()
}

// InvalidateCache forces the next ListUnits to reload from systemd.
func (s *Backend) InvalidateCache() {
	s.cache.Delete(cacheKey)
}
