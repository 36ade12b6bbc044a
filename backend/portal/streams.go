package portal

import (
	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
	"github.com/b0bbywan/go-portal-test/logger"
)

// parseStreams decodes the "streams" result of ScreenCast.Start, a(ua{sv}).
// godbus hands structs back as []interface{}; malformed entries are skipped.
func parseStreams(v dbus.Variant) []Stream {
	var entries [][]interface{}
	switch raw := v.Value().(type) {
	case [][]interface{}:
		entries = raw
	case []interface{}:
		for _, e := range raw {
			if fields, ok := e.([]interface{}); ok {
				entries = append(entries, fields)
			}
		}
	default:
		logger.Warn("[portal] unexpected streams signature %s", v.Signature())
		return nil
	}

	streams := make([]Stream, 0, len(entries))
	for _, fields := range entries {
		if len(fields) < 2 {
			continue
		}
		id, ok := fields[0].(uint32)
		if !ok {
			continue
		}
		props, _ := fields[1].(map[string]dbus.Variant)
		streams = append(streams, streamFromProps(id, props))
	}
	return streams
}

func streamFromProps(id uint32, props map[string]dbus.Variant) Stream {
	s := Stream{ID: id}
	if x, y, ok := intPair(props, "position"); ok {
		s.Position = &Point{X: x, Y: y}
	}
	if w, h, ok := intPair(props, "size"); ok {
		s.Size = &Size{Width: w, Height: h}
	}
	if t, ok := idbus.MapUint32(props, "source_type"); ok {
		s.SourceType = SourceType(t)
	}
	s.MappingID = idbus.MapString(props, "mapping_id")
	return s
}

// intPair reads an (ii) struct property.
func intPair(props map[string]dbus.Variant, key string) (int32, int32, bool) {
	v, ok := props[key]
	if !ok {
		return 0, 0, false
	}
	pair, ok := v.Value().([]interface{})
	if !ok || len(pair) != 2 {
		return 0, 0, false
	}
	a, okA := pair[0].(int32)
	b, okB := pair[1].(int32)
	return a, b, okA && okB
}
