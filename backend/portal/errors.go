package portal

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when the user dismissed the portal dialog.
var ErrCancelled = errors.New("portal: request cancelled by user")

// ErrClosed is returned by operations on a closed session or client.
var ErrClosed = errors.New("portal: closed")

// RequestError is returned when a request ended with a failure response code.
type RequestError struct {
	Method string
	Code   uint32
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("portal: %s failed (response %d)", e.Method, e.Code)
}

// ResponseTimeoutError is returned when no Response signal arrived in time.
type ResponseTimeoutError struct {
	Method string
}

func (e *ResponseTimeoutError) Error() string {
	return fmt.Sprintf("portal: no response to %s", e.Method)
}

// responseError maps a Request.Response code to an error.
func responseError(method string, code uint32) error {
	switch code {
	case ResponseSuccess:
		return nil
	case ResponseCancelled:
		return ErrCancelled
	default:
		return &RequestError{Method: method, Code: code}
	}
}
