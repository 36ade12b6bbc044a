package systemd

import (
	"context"

	"github.com/coreos/go-systemd/v22/dbus"
)

const JOB_DONE = "done"

func unitFromProps(name string, props map[string]interface{}) Unit {
	u := Unit{Name: name}

	loadState, _ := props["LoadState"].(string)
	if props == nil || loadState != "loaded" {
		return u
	}

	u.Exists = true
	fileState, _ := props["UnitFileState"].(string)
	u.Enabled = fileState == "enabled" || fileState == "static"
	u.ActiveState, _ = props["ActiveState"].(string)
	u.SubState, _ = props["SubState"].(string)
	u.Running = u.ActiveState == "active" && u.SubState == "running"
	u.Description, _ = props["Description"].(string)

	return u
}

func restartUnit(ctx context.Context, conn *dbus.Conn, name string) error {
	return doUnitJob(ctx, name, func(ch chan<- string) (int, error) {
		return conn.RestartUnitContext(ctx, name, "replace", ch)
	})
}

func doUnitJob(ctx context.Context, name string, f func(chan<- string) (int, error)) error {
	ch := make(chan string, 1)

	if _, err := f(ch); err != nil {
		return err
	}

	select {
	case result := <-ch:
		if result != JOB_DONE {
			return &JobError{Unit: name, Result: result}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
