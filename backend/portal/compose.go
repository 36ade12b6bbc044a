package portal

import (
	"context"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
)

func (c *Client) ComposeEmail(ctx context.Context, opts EmailOptions) error {
	dict := map[string]dbus.Variant{}
	if len(opts.Addresses) > 0 {
		dict["addresses"] = dbus.MakeVariant(opts.Addresses)
	}
	if len(opts.Cc) > 0 {
		dict["cc"] = dbus.MakeVariant(opts.Cc)
	}
	if len(opts.Bcc) > 0 {
		dict["bcc"] = dbus.MakeVariant(opts.Bcc)
	}
	if opts.Subject != "" {
		dict["subject"] = dbus.MakeVariant(opts.Subject)
	}
	if opts.Body != "" {
		dict["body"] = dbus.MakeVariant(opts.Body)
	}
	_, err := c.request(ctx, c.desktop(), EMAIL_COMPOSE, c.parent, dict)
	return err
}

func (c *Client) RequestBackground(ctx context.Context, opts BackgroundOptions) (BackgroundResult, error) {
	dict := map[string]dbus.Variant{
		"autostart":        dbus.MakeVariant(opts.Autostart),
		"dbus-activatable": dbus.MakeVariant(opts.DBusActivatable),
	}
	if opts.Reason != "" {
		dict["reason"] = dbus.MakeVariant(opts.Reason)
	}
	if len(opts.Commandline) > 0 {
		dict["commandline"] = dbus.MakeVariant(opts.Commandline)
	}

	resp, err := c.request(ctx, c.desktop(), BACKGROUND_REQUEST, c.parent, dict)
	if err != nil {
		return BackgroundResult{}, err
	}
	return BackgroundResult{
		Background: idbus.MapBool(resp.results, "background"),
		Autostart:  idbus.MapBool(resp.results, "autostart"),
	}, nil
}

func (c *Client) GetUserInformation(ctx context.Context, reason string) (UserInformation, error) {
	resp, err := c.request(ctx, c.desktop(), ACCOUNT_GET_USER_INFO, c.parent, map[string]dbus.Variant{
		"reason": dbus.MakeVariant(reason),
	})
	if err != nil {
		return UserInformation{}, err
	}
	return UserInformation{
		ID:    idbus.MapString(resp.results, "id"),
		Name:  idbus.MapString(resp.results, "name"),
		Image: idbus.MapString(resp.results, "image"),
	}, nil
}
