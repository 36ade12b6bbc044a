package events

import "slices"

const (
	TypeServerInfo         = "server.info"
	TypeScreencastUpdated  = "screencast.updated"
	TypePortalFailed       = "portal.failed"
	TypeNotificationAction = "notification.action"
	TypeUpdateAvailable    = "update.available"
	TypeUpdateProgress     = "update.progress"
	TypeWindowUpdated      = "window.updated"
	TypeUnitUpdated        = "unit.updated"
)

// BackendTypes maps a backend name (as used in ?backend=) to the event types it emits.
var BackendTypes = map[string][]string{
	"screencast": {TypeScreencastUpdated},
	"portal":     {TypePortalFailed, TypeNotificationAction},
	"updates":    {TypeUpdateAvailable, TypeUpdateProgress},
	"window":     {TypeWindowUpdated},
	"systemd":    {TypeUnitUpdated},
}

type Event struct {
	Type string
	Data any
}

// FailureData is the payload of a portal.failed event.
type FailureData struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}

// FilterTypes returns a filter passing only the given types, or nil (pass-all) when types is empty.
func FilterTypes(types []string) func(Event) bool {
	if len(types) == 0 {
		return nil
	}
	return func(e Event) bool {
		return slices.Contains(types, e.Type)
	}
}

// FilterBackend returns a filter passing the event types of the named backends.
// Unknown names are ignored; nil is returned when nothing is known.
func FilterBackend(names []string) func(Event) bool {
	var types []string
	for _, name := range names {
		types = append(types, BackendTypes[name]...)
	}
	return FilterTypes(types)
}

// NewFilter combines an include list and an exclude list.
// An empty include list means every type not excluded passes.
func NewFilter(include, exclude []string) func(Event) bool {
	if len(include) == 0 && len(exclude) == 0 {
		return nil
	}
	return func(e Event) bool {
		if slices.Contains(exclude, e.Type) {
			return false
		}
		return len(include) == 0 || slices.Contains(include, e.Type)
	}
}
