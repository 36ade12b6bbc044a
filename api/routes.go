package api

import (
	"net/http"

	"github.com/b0bbywan/go-portal-test/backend"
	"github.com/b0bbywan/go-portal-test/logger"
	"github.com/b0bbywan/go-portal-test/ui"
	"github.com/b0bbywan/go-portal-test/window"
)

func (s *Server) registerServerRoutes(b *backend.Backend) {
	s.mux.HandleFunc(
		"GET /server",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return b.GetServerDeviceInfo()
		}),
	)
}

func (s *Server) registerUIRoutes() {
	uiHandler := ui.NewHandler(s.config.Port)
	uiHandler.RegisterRoutes(s.mux)
	logger.Info("[api] UI routes registered at /ui")
}

func (s *Server) registerWindowRoutes(c *window.Controller) {
	s.mux.HandleFunc(
		"GET /window",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return c.View(), nil
		}),
	)
	s.mux.HandleFunc("POST /window/refresh", actionHandler(c, c.Refresh))

	s.mux.HandleFunc("POST /screenshot", screenshotHandler(c))
	s.mux.HandleFunc("POST /wallpaper", wallpaperHandler(c))
	s.mux.HandleFunc(
		"POST /email",
		actionHandler(c, c.ComposeEmail),
	)
	s.mux.HandleFunc(
		"POST /background",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return c.RequestBackground(r.Context())
		}),
	)
	s.mux.HandleFunc(
		"POST /account",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return c.GetUserInformation(r.Context())
		}),
	)
	s.mux.HandleFunc("POST /open", openHandler(c))
	s.mux.HandleFunc("POST /save", saveHandler(c))
	s.mux.HandleFunc("POST /inhibit", inhibitHandler(c))
	s.mux.HandleFunc("POST /notification", actionHandler(c, c.Notify))
	s.mux.HandleFunc(
		"POST /notification/ack",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			c.Ack()
			return c.View(), nil
		}),
	)
}

func (s *Server) registerScreencastRoutes(c *window.Controller) {
	s.mux.HandleFunc(
		"GET /screencast",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return c.Tracker.Status(), nil
		}),
	)
	s.mux.HandleFunc("POST /screencast/toggle", toggleHandler(c))
	s.mux.HandleFunc(
		"DELETE /screencast/token",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			if err := c.InvalidateRestoreToken(); err != nil {
				return nil, err
			}
			return c.Tracker.Status(), nil
		}),
	)
}
