package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/backend/screencast"
	"github.com/b0bbywan/go-portal-test/backend/sound"
	"github.com/b0bbywan/go-portal-test/backend/systemd"
	"github.com/b0bbywan/go-portal-test/backend/updates"
	"github.com/b0bbywan/go-portal-test/window"
)

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}

// statusFor maps an action error to the HTTP status reported for it.
// A dismissed dialog is not an error: it yields 204 with no body.
func statusFor(err error) int {
	var (
		requestErr *portal.RequestError
		timeoutErr *portal.ResponseTimeoutError
		ioErr      *window.IOError
		invalidErr *validationError
		permErr    *systemd.PermissionError
		jobErr     *systemd.JobError
	)
	switch {
	case errors.Is(err, portal.ErrCancelled), errors.Is(err, context.Canceled):
		return http.StatusNoContent
	case errors.Is(err, screencast.ErrInProgress),
		errors.Is(err, screencast.ErrAborted),
		errors.Is(err, sound.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, window.ErrUnavailable),
		errors.Is(err, updates.ErrNoMonitor),
		errors.Is(err, systemd.ErrUnknownUnit):
		return http.StatusNotFound
	case errors.As(err, &permErr):
		return http.StatusForbidden
	case errors.As(err, &invalidErr):
		return http.StatusBadRequest
	case errors.As(err, &requestErr), errors.As(err, &jobErr):
		return http.StatusBadGateway
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &ioErr):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	http.Error(w, err.Error(), status)
}

func JSONHandler(h func(http.ResponseWriter, *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := h(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, data)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// withBody parses and validates the JSON body, then calls next.
// An empty body decodes as the zero request.
func withBody[T any](
	validate func(*T) error,
	next func(w http.ResponseWriter, r *http.Request, req *T),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		var req T
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid JSON payload", http.StatusBadRequest)
			return
		}

		if validate != nil {
			if err := validate(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		next(w, r, &req)
	}
}
