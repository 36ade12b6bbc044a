package portal

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/oklog/ulid/v2"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
	"github.com/b0bbywan/go-portal-test/logger"
)

type response struct {
	handle  dbus.ObjectPath
	results map[string]dbus.Variant
}

// newToken returns a handle token usable as an object path element.
func newToken() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	return "portal_test_" + strings.ToLower(id.String())
}

func requestPath(sender, token string) dbus.ObjectPath {
	return dbus.ObjectPath(REQUEST_PATH_PREFIX + sender + "/" + token)
}

// options returns the a{sv} dict expected as the last argument of every
// request-style portal method.
func options(args []interface{}) (map[string]dbus.Variant, bool) {
	if len(args) == 0 {
		return nil, false
	}
	opts, ok := args[len(args)-1].(map[string]dbus.Variant)
	return opts, ok && opts != nil
}

// request performs a portal method returning a Request handle and waits
// for its Response. The subscription is installed on the predicted path
// before the call and removed when request returns.
func (c *Client) request(ctx context.Context, obj dbus.BusObject, method string, args ...interface{}) (*response, error) {
	sub, handle, err := c.send(ctx, obj, method, args...)
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	return c.wait(ctx, method, handle, sub)
}

// send issues the call and returns the live Response subscription.
func (c *Client) send(ctx context.Context, obj dbus.BusObject, method string, args ...interface{}) (*Subscription, dbus.ObjectPath, error) {
	opts, ok := options(args)
	if !ok {
		return nil, "", fmt.Errorf("%s: missing options dict", method)
	}
	token := newToken()
	opts["handle_token"] = dbus.MakeVariant(token)
	expected := requestPath(c.sender, token)

	sub, err := c.Subscribe(expected, REQUEST_IFACE, SIGNAL_RESPONSE)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", method, err)
	}

	logger.Debug("[portal] calling %s (token %s)", method, token)
	var handle dbus.ObjectPath
	if err := idbus.Call(ctx, obj, method, args...).Store(&handle); err != nil {
		sub.Close()
		return nil, "", fmt.Errorf("%s: %w", method, err)
	}

	if handle != expected {
		// portals older than 0.9 ignore handle_token
		logger.Debug("[portal] %s returned handle %s, expected %s", method, handle, expected)
		sub.Close()
		if sub, err = c.Subscribe(handle, REQUEST_IFACE, SIGNAL_RESPONSE); err != nil {
			return nil, "", fmt.Errorf("%s: %w", method, err)
		}
	}
	return sub, handle, nil
}

func (c *Client) wait(ctx context.Context, method string, handle dbus.ObjectPath, sub *Subscription) (*response, error) {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case sig := <-sub.C:
		code, results, err := parseResponse(sig)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}
		if err := responseError(method, code); err != nil {
			return nil, err
		}
		logger.Debug("[portal] %s answered with %v", method, idbus.Keys(results))
		return &response{handle: handle, results: results}, nil
	case <-timer.C:
		c.closeRequest(handle)
		return nil, &ResponseTimeoutError{Method: method}
	case <-ctx.Done():
		c.closeRequest(handle)
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, ErrClosed
	}
}

// closeRequest dismisses a pending dialog. Errors are expected when the
// request already completed.
func (c *Client) closeRequest(handle dbus.ObjectPath) {
	if c.conn == nil {
		return
	}
	obj := c.conn.Object(PORTAL_DEST, handle)
	if err := idbus.CallMethod(context.Background(), obj, REQUEST_CLOSE); err != nil {
		logger.Debug("[portal] closing request %s: %v", handle, err)
	}
}
