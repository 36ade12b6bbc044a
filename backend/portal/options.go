package portal

import (
	"fmt"
	"strings"

	"github.com/b0bbywan/go-portal-test/config"
)

// ParseSources folds source names ("monitor", "window", "virtual") into a mask.
func ParseSources(names []string) (SourceType, error) {
	var mask SourceType
	for _, name := range names {
		switch strings.ToLower(name) {
		case "monitor":
			mask |= SourceMonitor
		case "window":
			mask |= SourceWindow
		case "virtual":
			mask |= SourceVirtual
		default:
			return 0, fmt.Errorf("unknown source type %q", name)
		}
	}
	return mask, nil
}

func ParseCursorMode(name string) (CursorMode, error) {
	switch strings.ToLower(name) {
	case "hidden":
		return CursorHidden, nil
	case "embedded":
		return CursorEmbedded, nil
	case "metadata":
		return CursorMetadata, nil
	}
	return 0, fmt.Errorf("unknown cursor mode %q", name)
}

func ParsePersistMode(name string) (PersistMode, error) {
	switch strings.ToLower(name) {
	case "none":
		return PersistNone, nil
	case "transient":
		return PersistTransient, nil
	case "persistent":
		return PersistPersistent, nil
	}
	return 0, fmt.Errorf("unknown persist mode %q", name)
}

// ScreencastOptionsFromConfig converts the validated configuration.
func ScreencastOptionsFromConfig(cfg *config.ScreencastConfig) (ScreencastOptions, error) {
	sources, err := ParseSources(cfg.Sources)
	if err != nil {
		return ScreencastOptions{}, err
	}
	cursor, err := ParseCursorMode(cfg.Cursor)
	if err != nil {
		return ScreencastOptions{}, err
	}
	persist, err := ParsePersistMode(cfg.Persist)
	if err != nil {
		return ScreencastOptions{}, err
	}
	return ScreencastOptions{
		Sources:  sources,
		Multiple: cfg.Multiple,
		Cursor:   cursor,
		Persist:  persist,
	}, nil
}

func (p PersistMode) String() string {
	switch p {
	case PersistNone:
		return "none"
	case PersistTransient:
		return "transient"
	case PersistPersistent:
		return "persistent"
	}
	return fmt.Sprintf("persist(%d)", uint32(p))
}
