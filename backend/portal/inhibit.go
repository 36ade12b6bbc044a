package portal

import (
	"context"
	"strings"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
	"github.com/b0bbywan/go-portal-test/logger"
)

func (f InhibitFlags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, flag := range []struct {
		bit  InhibitFlags
		name string
	}{
		{InhibitLogout, "logout"},
		{InhibitUserSwitch, "user-switch"},
		{InhibitSuspend, "suspend"},
		{InhibitIdle, "idle"},
	} {
		if f&flag.bit != 0 {
			parts = append(parts, flag.name)
		}
	}
	return strings.Join(parts, ", ")
}

// Inhibit asks the session not to log out, switch user, suspend or idle.
// The inhibition lasts until Release, so the request handle is kept
// instead of waiting on its Response.
func (c *Client) Inhibit(ctx context.Context, flags InhibitFlags, reason string) (*Inhibition, error) {
	sub, handle, err := c.send(ctx, c.desktop(), INHIBIT_METHOD, c.parent, uint32(flags), map[string]dbus.Variant{
		"reason": dbus.MakeVariant(reason),
	})
	if err != nil {
		return nil, err
	}

	in := &Inhibition{
		client: c,
		handle: handle,
		Flags:  flags,
		done:   make(chan struct{}),
	}
	go in.watch(sub)
	logger.Info("[portal] inhibiting %s", flags)
	return in, nil
}

func (in *Inhibition) watch(sub *Subscription) {
	defer sub.Close()
	select {
	case sig := <-sub.C:
		code, _, err := parseResponse(sig)
		if err != nil {
			logger.Warn("[portal] inhibit: %v", err)
			return
		}
		if err := responseError(INHIBIT_METHOD, code); err != nil {
			logger.Warn("[portal] inhibit %s refused: %v", in.Flags, err)
			in.once.Do(func() { close(in.done) })
		}
	case <-in.done:
	case <-in.client.ctx.Done():
	}
}

// Done is closed once the inhibition is released or refused.
func (in *Inhibition) Done() <-chan struct{} {
	return in.done
}

// Release closes the request handle, which ends the inhibition.
func (in *Inhibition) Release() {
	in.once.Do(func() {
		close(in.done)
		if conn := in.client.conn; conn != nil {
			obj := conn.Object(PORTAL_DEST, in.handle)
			if err := idbus.CallMethod(context.Background(), obj, REQUEST_CLOSE); err != nil {
				logger.Warn("[portal] failed to release inhibition %s: %v", in.handle, err)
			}
		}
		logger.Info("[portal] released inhibition of %s", in.Flags)
	})
}
