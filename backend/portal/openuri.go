package portal

import (
	"context"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
)

func (c *Client) OpenURI(ctx context.Context, uri string, ask bool) error {
	_, err := c.request(ctx, c.desktop(), OPENURI_OPEN_URI, c.parent, uri, map[string]dbus.Variant{
		"ask": dbus.MakeVariant(ask),
	})
	return err
}

// OpenFile hands path to the default handler, or to the file manager
// showing its parent when directory is set.
func (c *Client) OpenFile(ctx context.Context, path string, directory, ask bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	method := OPENURI_OPEN_FILE
	dict := map[string]dbus.Variant{"ask": dbus.MakeVariant(ask)}
	if directory {
		method = OPENURI_OPEN_DIRECTORY
		dict = map[string]dbus.Variant{}
	}
	_, err = c.request(ctx, c.desktop(), method, c.parent, dbus.UnixFD(f.Fd()), dict)
	return err
}
