package portal

import (
	"context"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
)

// Screenshot returns the URI of the captured image.
func (c *Client) Screenshot(ctx context.Context, interactive bool) (string, error) {
	resp, err := c.request(ctx, c.desktop(), SCREENSHOT_METHOD, c.parent, map[string]dbus.Variant{
		"interactive": dbus.MakeVariant(interactive),
		"modal":       dbus.MakeVariant(true),
	})
	if err != nil {
		return "", err
	}
	uri := idbus.MapString(resp.results, "uri")
	if uri == "" {
		return "", &RequestError{Method: SCREENSHOT_METHOD, Code: ResponseFailed}
	}
	return uri, nil
}

func (c *Client) SetWallpaper(ctx context.Context, opts WallpaperOptions) error {
	target := opts.SetOn
	if target == "" {
		target = WallpaperBoth
	}
	_, err := c.request(ctx, c.desktop(), WALLPAPER_SET_URI, c.parent, opts.URI, map[string]dbus.Variant{
		"show-preview": dbus.MakeVariant(opts.ShowPreview),
		"set-on":       dbus.MakeVariant(string(target)),
	})
	return err
}
