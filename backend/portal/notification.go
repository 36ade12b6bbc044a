package portal

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
)

func notificationDict(n Notification) map[string]dbus.Variant {
	dict := map[string]dbus.Variant{
		"title": dbus.MakeVariant(n.Title),
		"body":  dbus.MakeVariant(n.Body),
	}
	if n.Priority != "" {
		dict["priority"] = dbus.MakeVariant(n.Priority)
	}
	if n.DefaultAction != "" {
		dict["default-action"] = dbus.MakeVariant(n.DefaultAction)
	}
	if len(n.Buttons) > 0 {
		buttons := make([]map[string]dbus.Variant, 0, len(n.Buttons))
		for _, b := range n.Buttons {
			buttons = append(buttons, map[string]dbus.Variant{
				"label":  dbus.MakeVariant(b.Label),
				"action": dbus.MakeVariant(b.Action),
			})
		}
		dict["buttons"] = dbus.MakeVariant(buttons)
	}
	return dict
}

// AddNotification is a plain call: the Notification portal has no request.
func (c *Client) AddNotification(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return fmt.Errorf("%s: empty notification id", NOTIFICATION_ADD)
	}
	if err := idbus.CallMethod(ctx, c.desktop(), NOTIFICATION_ADD, n.ID, notificationDict(n)); err != nil {
		return fmt.Errorf("%s: %w", NOTIFICATION_ADD, err)
	}
	return nil
}

func (c *Client) RemoveNotification(ctx context.Context, id string) error {
	if err := idbus.CallMethod(ctx, c.desktop(), NOTIFICATION_REMOVE, id); err != nil {
		return fmt.Errorf("%s: %w", NOTIFICATION_REMOVE, err)
	}
	return nil
}
