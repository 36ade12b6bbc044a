package window

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned by actions whose backend is disabled.
var ErrUnavailable = errors.New("window: backend unavailable")

// IOError wraps a local file failure around a portal result.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("window: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
