package app

import (
	"errors"
	"fmt"
)

var ErrUnknownAction = errors.New("app: unknown action")

// AlreadyRunningError is returned when another process owns the bus name
// and --replace was not given.
type AlreadyRunningError struct {
	Name string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("%s is already running, use --replace to take over", e.Name)
}

// ReplaceTimeoutError is returned when the running instance did not give
// up its name in time.
type ReplaceTimeoutError struct {
	Name string
}

func (e *ReplaceTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %s to quit", e.Name)
}
