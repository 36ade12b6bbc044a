package login1

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/logger"
)

func New(ctx context.Context, cfg *config.Login1Config) (*Backend, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, err
	}

	logger.Info("[login1] backend initialized")
	return &Backend{conn: conn, ctx: ctx}, nil
}

func (l *Backend) Close() {
	if l.conn != nil {
		if err := l.conn.Close(); err != nil {
			logger.Error("[login1] failed to close D-Bus connection: %v", err)
		}
		l.conn = nil
	}
}

func (l *Backend) getObj() dbus.BusObject {
	return l.conn.Object(LOGIN1_PREFIX, LOGIN1_PATH)
}

// Inhibitors lists every inhibitor logind currently knows about.
func (l *Backend) Inhibitors(ctx context.Context) ([]Inhibitor, error) {
	var out []Inhibitor
	if err := idbus.Call(ctx, l.getObj(), LOGIN1_METHOD_LIST_INHIBITORS).Store(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", LOGIN1_METHOD_LIST_INHIBITORS, err)
	}
	return out, nil
}

func (l *Backend) inhibited(ctx context.Context, prop string) []string {
	v, err := idbus.GetProperty(ctx, l.getObj(), LOGIN1_INTERFACE, prop)
	if err != nil {
		logger.Debug("[login1] failed to read %s: %v", prop, err)
		return nil
	}
	s, _ := v.Value().(string)
	return splitWhat(s)
}

// Check reports what logind blocks right now and which inhibitors carry reason.
func (l *Backend) Check(ctx context.Context, reason string) (Report, error) {
	all, err := l.Inhibitors(ctx)
	if err != nil {
		return Report{}, err
	}
	report := Report{
		BlockInhibited: l.inhibited(ctx, LOGIN1_PROP_BLOCK_INHIBITED),
		DelayInhibited: l.inhibited(ctx, LOGIN1_PROP_DELAY_INHIBITED),
		Inhibitors:     withReason(all, reason),
	}
	logger.Debug("[login1] %d of %d inhibitors match %q", len(report.Inhibitors), len(all), reason)
	return report, nil
}

func withReason(all []Inhibitor, reason string) []Inhibitor {
	out := []Inhibitor{}
	for _, in := range all {
		if in.Why == reason {
			out = append(out, in)
		}
	}
	return out
}

// splitWhat splits logind's colon separated lock list.
func splitWhat(s string) []string {
	out := []string{}
	for _, what := range strings.Split(s, ":") {
		if what != "" {
			out = append(out, what)
		}
	}
	return out
}
