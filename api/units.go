package api

import (
	"net/http"

	"github.com/b0bbywan/go-portal-test/backend/login1"
	"github.com/b0bbywan/go-portal-test/backend/systemd"
	"github.com/b0bbywan/go-portal-test/logger"
	"github.com/b0bbywan/go-portal-test/window"
)

func (s *Server) registerUnitRoutes(sd *systemd.Backend) {
	s.mux.HandleFunc(
		"GET /units",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return sd.ListUnits()
		}),
	)
	s.mux.HandleFunc(
		"GET /units/{name}",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			u, ok := sd.GetUnit(r.PathValue("name"))
			if !ok {
				return nil, systemd.ErrUnknownUnit
			}
			return u, nil
		}),
	)
	s.mux.HandleFunc(
		"POST /units/{name}/restart",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return sd.RestartUnit(r.Context(), r.PathValue("name"))
		}),
	)
	logger.Debug("[api] unit routes registered")
}

func (s *Server) registerInhibitorRoutes(l *login1.Backend) {
	s.mux.HandleFunc(
		"GET /inhibit",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return l.Check(r.Context(), window.INHIBIT_REASON)
		}),
	)
}
