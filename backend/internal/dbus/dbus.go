package dbus

import (
	"context"
	"errors"
	"time"

	"github.com/godbus/dbus/v5"
)

// DefaultTimeout bounds plain method calls. Portal requests waiting for a
// user dialog use their own, much longer, timeout.
var DefaultTimeout = 5 * time.Second

// Call executes method on obj, bounded by ctx and DefaultTimeout.
func Call(ctx context.Context, obj dbus.BusObject, method string, args ...interface{}) *dbus.Call {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	call := obj.CallWithContext(ctx, method, 0, args...)
	if errors.Is(call.Err, context.DeadlineExceeded) {
		call.Err = &TimeoutError{Method: method}
	}
	return call
}

// CallMethod calls method and discards the reply.
func CallMethod(ctx context.Context, obj dbus.BusObject, method string, args ...interface{}) error {
	return Call(ctx, obj, method, args...).Err
}

// GetProperty retrieves a single property from a D-Bus object.
func GetProperty(ctx context.Context, obj dbus.BusObject, iface, prop string) (dbus.Variant, error) {
	var v dbus.Variant
	if err := Call(ctx, obj, PROP_GET, iface, prop).Store(&v); err != nil {
		return dbus.Variant{}, err
	}
	return v, nil
}

// NameHasOwner reports whether a well-known name is currently owned.
func NameHasOwner(ctx context.Context, conn *dbus.Conn, name string) (bool, error) {
	var owned bool
	err := Call(ctx, conn.BusObject(), BUS_NAME_HAS_OWNER, name).Store(&owned)
	return owned, err
}

// --- Variant map helpers (a{sv} results) ---

func MapString(props map[string]dbus.Variant, key string) string {
	if v, ok := props[key]; ok {
		s, _ := v.Value().(string)
		return s
	}
	return ""
}

func MapBool(props map[string]dbus.Variant, key string) bool {
	b, _ := MapBoolOK(props, key)
	return b
}

// MapBoolOK extracts a bool with existence check.
func MapBoolOK(props map[string]dbus.Variant, key string) (bool, bool) {
	if v, ok := props[key]; ok {
		b, ok := v.Value().(bool)
		return b, ok
	}
	return false, false
}

func MapUint32(props map[string]dbus.Variant, key string) (uint32, bool) {
	if v, ok := props[key]; ok {
		u, ok := v.Value().(uint32)
		return u, ok
	}
	return 0, false
}

func MapStrings(props map[string]dbus.Variant, key string) []string {
	if v, ok := props[key]; ok {
		s, _ := v.Value().([]string)
		return s
	}
	return nil
}

// MapObjectPath extracts an object path. Some portal versions send
// handles as plain strings, both forms are accepted.
func MapObjectPath(props map[string]dbus.Variant, key string) (dbus.ObjectPath, bool) {
	v, ok := props[key]
	if !ok {
		return "", false
	}
	switch p := v.Value().(type) {
	case dbus.ObjectPath:
		return p, p.IsValid()
	case string:
		path := dbus.ObjectPath(p)
		return path, path.IsValid()
	}
	return "", false
}

// Keys returns the keys of a props map (useful for debug logging).
func Keys(props map[string]dbus.Variant) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	return keys
}
