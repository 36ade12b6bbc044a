package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
)

type Connectivity uint32

const (
	ConnectivityLocal   Connectivity = 1
	ConnectivityLimited Connectivity = 2
	ConnectivityPortal  Connectivity = 3
	ConnectivityFull    Connectivity = 4
)

func (c Connectivity) String() string {
	switch c {
	case ConnectivityLocal:
		return "local"
	case ConnectivityLimited:
		return "limited"
	case ConnectivityPortal:
		return "portal"
	case ConnectivityFull:
		return "full"
	default:
		return "unknown"
	}
}

type NetworkStatus struct {
	Available    bool         `json:"available"`
	Metered      bool         `json:"metered"`
	Connectivity Connectivity `json:"connectivity"`
}

// String renders the status as "available, metered, connectivity=full",
// leaving out the flags that are not set.
func (s NetworkStatus) String() string {
	var parts []string
	if s.Available {
		parts = append(parts, "available")
	}
	if s.Metered {
		parts = append(parts, "metered")
	}
	parts = append(parts, "connectivity="+s.Connectivity.String())
	return strings.Join(parts, ", ")
}

// NetworkStatus queries the NetworkMonitor portal. Version 3 has a single
// GetStatus call; older versions need one call per property.
func (c *Client) NetworkStatus(ctx context.Context) (NetworkStatus, error) {
	obj := c.desktop()
	if c.Version(NETWORK_IFACE) >= 3 {
		var dict map[string]dbus.Variant
		if err := idbus.Call(ctx, obj, NETWORK_GET_STATUS).Store(&dict); err != nil {
			return NetworkStatus{}, fmt.Errorf("%s: %w", NETWORK_GET_STATUS, err)
		}
		status := NetworkStatus{
			Available: idbus.MapBool(dict, "available"),
			Metered:   idbus.MapBool(dict, "metered"),
		}
		if conn, ok := idbus.MapUint32(dict, "connectivity"); ok {
			status.Connectivity = Connectivity(conn)
		}
		return status, nil
	}

	var status NetworkStatus
	var conn uint32
	if err := idbus.Call(ctx, obj, NETWORK_GET_AVAILABLE).Store(&status.Available); err != nil {
		return NetworkStatus{}, fmt.Errorf("%s: %w", NETWORK_GET_AVAILABLE, err)
	}
	if err := idbus.Call(ctx, obj, NETWORK_GET_METERED).Store(&status.Metered); err != nil {
		return NetworkStatus{}, fmt.Errorf("%s: %w", NETWORK_GET_METERED, err)
	}
	if err := idbus.Call(ctx, obj, NETWORK_GET_CONNECTIVITY).Store(&conn); err != nil {
		return NetworkStatus{}, fmt.Errorf("%s: %w", NETWORK_GET_CONNECTIVITY, err)
	}
	status.Connectivity = Connectivity(conn)
	return status, nil
}

// LookupProxy returns the proxies to use for uri, "direct://" meaning none.
func (c *Client) LookupProxy(ctx context.Context, uri string) ([]string, error) {
	var proxies []string
	if err := idbus.Call(ctx, c.desktop(), PROXY_LOOKUP, uri).Store(&proxies); err != nil {
		return nil, fmt.Errorf("%s: %w", PROXY_LOOKUP, err)
	}
	return proxies, nil
}
