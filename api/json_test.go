package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/backend/screencast"
	"github.com/b0bbywan/go-portal-test/backend/sound"
	"github.com/b0bbywan/go-portal-test/backend/systemd"
	"github.com/b0bbywan/go-portal-test/window"
)

func TestJSONHandler(t *testing.T) {
	handler := JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
		return map[string]string{"status": "ok"}, nil
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want 200", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", w.Header().Get("Content-Type"))
	}
	var result map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("status = %s, want ok", result["status"])
	}
}

func TestJSONHandlerCancelled(t *testing.T) {
	handler := JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
		return nil, fmt.Errorf("screenshot: %w", portal.ErrCancelled)
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/screenshot", nil))

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("cancelled = (%d, %q), want empty 204", w.Code, w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{portal.ErrCancelled, http.StatusNoContent},
		{context.Canceled, http.StatusNoContent},
		{screencast.ErrInProgress, http.StatusConflict},
		{screencast.ErrAborted, http.StatusConflict},
		{sound.ErrBusy, http.StatusConflict},
		{window.ErrUnavailable, http.StatusNotFound},
		{&validationError{"bad"}, http.StatusBadRequest},
		{&portal.RequestError{Method: "Screenshot", Code: 2}, http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", &portal.RequestError{Method: "SaveFile", Code: 2}), http.StatusBadGateway},
		{&portal.ResponseTimeoutError{Method: "Inhibit"}, http.StatusGatewayTimeout},
		{&window.IOError{Op: "write", Path: "/x", Err: errors.New("denied")}, http.StatusInternalServerError},
		{systemd.ErrUnknownUnit, http.StatusNotFound},
		{&systemd.PermissionError{Unit: "gnome-shell.service"}, http.StatusForbidden},
		{&systemd.JobError{Unit: "xdg-desktop-portal.service", Result: "failed"}, http.StatusBadGateway},
		{errors.New("dbus went away"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func BenchmarkJSONHandler(b *testing.B) {
	handler := JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
		return map[string]string{"test": "data"}, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		handler(w, req)
	}
}
