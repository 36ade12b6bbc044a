package portal

import (
	"slices"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
	"github.com/b0bbywan/go-portal-test/logger"
)

type subscriptionKey struct {
	path dbus.ObjectPath
	name string // interface.member
}

// Subscription delivers the signals matching one (path, interface, member)
// triple. It must be closed once the caller is done with it; closing
// removes both the routing entry and the bus match rule.
type Subscription struct {
	client *Client
	key    subscriptionKey
	opts   []dbus.MatchOption
	C      chan *dbus.Signal
}

func newSubscription(c *Client, path dbus.ObjectPath, iface, member string) *Subscription {
	return &Subscription{
		client: c,
		key:    subscriptionKey{path: path, name: iface + "." + member},
		opts: []dbus.MatchOption{
			dbus.WithMatchObjectPath(path),
			dbus.WithMatchInterface(iface),
			dbus.WithMatchMember(member),
		},
		C: make(chan *dbus.Signal, 4),
	}
}

// Subscribe registers the route before adding the match rule so that a
// signal emitted right after the rule is installed cannot be missed.
func (c *Client) Subscribe(path dbus.ObjectPath, iface, member string) (*Subscription, error) {
	sub := newSubscription(c, path, iface, member)
	if !c.register(sub) {
		return nil, ErrClosed
	}
	if err := c.conn.AddMatchSignal(sub.opts...); err != nil {
		c.unregister(sub)
		return nil, err
	}
	logger.Debug("[portal] subscribed to %s on %s", sub.key.name, path)
	return sub, nil
}

// Close is idempotent.
func (s *Subscription) Close() {
	if s == nil || !s.client.unregister(s) {
		return
	}
	if s.client.conn == nil {
		return
	}
	if err := s.client.conn.RemoveMatchSignal(s.opts...); err != nil {
		logger.Debug("[portal] failed to remove match for %s on %s: %v", s.key.name, s.key.path, err)
	}
}

func (c *Client) register(sub *Subscription) bool {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if c.subs == nil {
		return false
	}
	c.subs[sub.key] = append(c.subs[sub.key], sub)
	return true
}

func (c *Client) unregister(sub *Subscription) bool {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	list := c.subs[sub.key]
	i := slices.Index(list, sub)
	if i < 0 {
		return false
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(c.subs, sub.key)
	} else {
		c.subs[sub.key] = list
	}
	return true
}

func (c *Client) subscriptions() int {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	n := 0
	for _, list := range c.subs {
		n += len(list)
	}
	return n
}

// route hands sig to every matching subscriber without blocking the
// dispatcher.
func (c *Client) route(sig *dbus.Signal) {
	if sig == nil {
		return
	}
	c.subsMu.Lock()
	targets := slices.Clone(c.subs[subscriptionKey{path: sig.Path, name: sig.Name}])
	c.subsMu.Unlock()

	for _, sub := range targets {
		select {
		case sub.C <- sig:
		default:
			logger.Warn("[portal] subscriber queue full, dropping %s on %s", sig.Name, sig.Path)
		}
	}
}

func (c *Client) dispatch() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case sig, ok := <-c.signals:
			if !ok {
				return
			}
			c.route(sig)
		}
	}
}

// parseResponse decodes a Request.Response body: (u code, a{sv} results).
func parseResponse(sig *dbus.Signal) (uint32, map[string]dbus.Variant, error) {
	if sig == nil {
		return 0, nil, &idbus.SignalError{Signal: SIGNAL_RESPONSE, Reason: "channel closed"}
	}
	if len(sig.Body) < 2 {
		return 0, nil, &idbus.SignalError{Signal: SIGNAL_RESPONSE, Reason: "body too short"}
	}
	code, ok := sig.Body[0].(uint32)
	if !ok {
		return 0, nil, &idbus.SignalError{Signal: SIGNAL_RESPONSE, Reason: "body[0] is not uint32"}
	}
	results, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return 0, nil, &idbus.SignalError{Signal: SIGNAL_RESPONSE, Reason: "body[1] is not map[string]Variant"}
	}
	return code, results, nil
}
