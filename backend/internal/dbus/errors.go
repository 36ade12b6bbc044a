package dbus

import "fmt"

// TimeoutError is returned when a D-Bus call exceeds its deadline.
type TimeoutError struct {
	Method string
}

func (e *TimeoutError) Error() string {
	if e.Method == "" {
		return "dbus: call timed out"
	}
	return fmt.Sprintf("dbus: %s timed out", e.Method)
}

// SignalError is returned when a D-Bus signal body is malformed.
type SignalError struct {
	Signal string
	Reason string
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("dbus: bad %s signal: %s", e.Signal, e.Reason)
}
