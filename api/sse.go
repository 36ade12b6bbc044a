package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/b0bbywan/go-portal-test/backend"
	"github.com/b0bbywan/go-portal-test/events"
	"github.com/b0bbywan/go-portal-test/logger"
)

const (
	SSE_DEFAULT_KEEPALIVE = 30 * time.Second
	SSE_MIN_KEEPALIVE     = 10
	SSE_MAX_KEEPALIVE     = 120
)

// sseHandler streams broadcaster events. snapshot, when set, provides the
// events replayed right after "connected" so a client starts from the
// current state instead of waiting for the next change.
func sseHandler(b *backend.Broadcaster, snapshot func() []events.Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		keepAliveDuration, err := parseKeepAlive(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		// subscribe before the snapshot so no change falls in between
		ch := b.SubscribeFunc(filter)
		defer b.Unsubscribe(ch)

		if err := sendServerInfo(flusher, w, "connected"); err != nil {
			return
		}
		if snapshot != nil {
			for _, e := range snapshot() {
				if filter != nil && !filter(e) {
					continue
				}
				if err := sendToFlusher(flusher, w, e); err != nil {
					return
				}
			}
		}

		keepAlive := time.NewTimer(keepAliveDuration)
		defer keepAlive.Stop()

		for {
			select {
			case <-r.Context().Done():
				if err := sendServerInfo(flusher, w, "bye"); err != nil {
					logger.Debug("[sse] failed to close events connection: %v", err)
				}
				return
			case <-keepAlive.C:
				if err := sendServerInfo(flusher, w, "love"); err != nil {
					logger.Warn("[sse] failed to send keepalive, closing: %v", err)
					return
				}
				keepAlive.Reset(keepAliveDuration)
			case e, ok := <-ch:
				if !ok {
					return
				}
				if err := sendToFlusher(flusher, w, e); err != nil {
					return
				}
				keepAlive.Reset(keepAliveDuration)
			}
		}
	}
}

func sendServerInfo(flusher http.Flusher, w http.ResponseWriter, message string) error {
	return sendToFlusher(
		flusher,
		w,
		events.Event{Type: events.TypeServerInfo, Data: message},
	)
}

// sendToFlusher writes one event. Every event carries a fresh ULID so
// clients can order and deduplicate what they received.
func sendToFlusher(flusher http.Flusher, w http.ResponseWriter, e events.Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		logger.Warn("[sse] failed to marshal %s event: %v", e.Type, err)
		return err
	}
	if _, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ulid.Make(), e.Type, data); err != nil {
		logger.Debug("[sse] failed to write to client: %v", err)
		return err
	}
	flusher.Flush()
	return nil
}

// parseKeepAlive reads the optional ?keepalive=<seconds> query parameter.
func parseKeepAlive(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("keepalive")
	if raw == "" {
		return SSE_DEFAULT_KEEPALIVE, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("keepalive must be an integer (seconds)")
	}
	if secs < SSE_MIN_KEEPALIVE || secs > SSE_MAX_KEEPALIVE {
		return 0, fmt.Errorf("keepalive must be between %d and %d seconds", SSE_MIN_KEEPALIVE, SSE_MAX_KEEPALIVE)
	}
	return time.Duration(secs) * time.Second, nil
}

// parseFilter builds an event filter from the request's query parameters:
//   - ?types=screencast.updated,update.progress: event types to include
//   - ?backend=screencast,updates: backends whose events to include (see events.BackendTypes)
//   - ?exclude=window.updated: event types to exclude
//
// server.info always passes. Excluding it is an error.
func parseFilter(r *http.Request) (func(events.Event) bool, error) {
	q := r.URL.Query()

	var include []string
	for _, t := range strings.Split(q.Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			include = append(include, t)
		}
	}
	for _, name := range strings.Split(q.Get("backend"), ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		types, ok := events.BackendTypes[name]
		if !ok {
			return nil, fmt.Errorf("unknown backend %q", name)
		}
		include = append(include, types...)
	}
	if len(include) > 0 && !slices.Contains(include, events.TypeServerInfo) {
		include = append(include, events.TypeServerInfo)
	}

	var exclude []string
	for _, t := range strings.Split(q.Get("exclude"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			if t == events.TypeServerInfo {
				return nil, errors.New("server.info cannot be excluded")
			}
			exclude = append(exclude, t)
		}
	}

	return events.NewFilter(include, exclude), nil
}
