package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/b0bbywan/go-portal-test/backend"
	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/events"
	"github.com/b0bbywan/go-portal-test/logger"
	"github.com/b0bbywan/go-portal-test/window"
)

type Server struct {
	mux         *http.ServeMux
	config      *config.ApiConfig
	ui          bool
	broadcaster *backend.Broadcaster
}

// NewServer builds the HTTP control surface. Routes of disabled parts are
// not registered. broadcaster may be nil, in which case /events is absent.
func NewServer(cfg *config.ApiConfig, b *backend.Backend, w *window.Controller, broadcaster *backend.Broadcaster) *Server {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	server := &Server{
		mux:         http.NewServeMux(),
		config:      cfg,
		ui:          cfg.UI,
		broadcaster: broadcaster,
	}
	server.register(b, w)
	return server
}

func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	if s.config.CORS != nil {
		handler = corsMiddleware(s.config.CORS)(handler)
	}
	return handler
}

func (s *Server) Run(ctx context.Context) error {
	handler := s.Handler()

	servers := make([]*http.Server, len(s.config.Listens))
	for i, addr := range s.config.Listens {
		servers[i] = &http.Server{
			Addr:    addr,
			Handler: handler,
			// request contexts end with ctx, so SSE streams close on shutdown
			BaseContext: func(_ net.Listener) context.Context { return ctx },
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Info("[api] server %s shutdown error: %v", srv.Addr, err)
			}
		}
	}()

	errCh := make(chan error, len(servers))
	var wg sync.WaitGroup
	for _, srv := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			logger.Info("[api] http server running on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	wg.Wait()
	close(errCh)
	return <-errCh
}

func (s *Server) register(b *backend.Backend, w *window.Controller) {
	// 404 on root and every unmatched path
	s.mux.HandleFunc("/", http.NotFound)

	if b != nil {
		s.registerServerRoutes(b)
		if b.Systemd != nil {
			s.registerUnitRoutes(b.Systemd)
		}
		if b.Login1 != nil {
			s.registerInhibitorRoutes(b.Login1)
		}
	}
	if s.broadcaster != nil {
		s.mux.HandleFunc("GET /events", sseHandler(s.broadcaster, snapshot(w)))
		logger.Info("[api] SSE route registered at /events")
	}
	if w == nil {
		return
	}

	s.registerWindowRoutes(w)
	if w.Tracker != nil {
		s.registerScreencastRoutes(w)
	}
	if b != nil && b.Sound != nil {
		s.mux.HandleFunc("POST /sound", soundHandler(w))
	}
	if b != nil && b.Updates != nil {
		s.mux.HandleFunc("POST /update/install", actionHandler(w, w.InstallUpdate))
		s.mux.HandleFunc("POST /update/restart", actionHandler(w, w.Restart))
	}
	if s.ui {
		s.registerUIRoutes()
	}
}

// snapshot replays the current window and screencast state to new SSE clients.
func snapshot(w *window.Controller) func() []events.Event {
	if w == nil {
		return nil
	}
	return func() []events.Event {
		view := w.View()
		return []events.Event{
			{Type: events.TypeScreencastUpdated, Data: view.Screencast},
			{Type: events.TypeWindowUpdated, Data: view},
		}
	}
}

func corsMiddleware(cfg *config.CORSConfig) func(http.Handler) http.Handler {
	wildcard := slices.Contains(cfg.Origins, "*")
	logger.Info("[api] CORS enabled, origins: %v", cfg.Origins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if wildcard {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else if slices.Contains(cfg.Origins, origin) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
