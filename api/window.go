package api

import (
	"context"
	"net/http"

	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/window"
)

type toggleRequest struct {
	Active bool `json:"active"`
}

type screenshotRequest struct {
	Interactive bool `json:"interactive"`
}

type wallpaperRequest struct {
	URI string `json:"uri"`
}

type openRequest struct {
	URI       string `json:"uri"`
	Directory bool   `json:"directory"`
	Ask       bool   `json:"ask"`
}

type saveRequest struct {
	Method window.SaveMethod `json:"method"`
}

type inhibitRequest struct {
	Logout     bool `json:"logout"`
	UserSwitch bool `json:"user_switch"`
	Suspend    bool `json:"suspend"`
	Idle       bool `json:"idle"`
}

func (req *inhibitRequest) flags() portal.InhibitFlags {
	var f portal.InhibitFlags
	if req.Logout {
		f |= portal.InhibitLogout
	}
	if req.UserSwitch {
		f |= portal.InhibitUserSwitch
	}
	if req.Suspend {
		f |= portal.InhibitSuspend
	}
	if req.Idle {
		f |= portal.InhibitIdle
	}
	return f
}

func validateSave(req *saveRequest) error {
	switch req.Method {
	case "":
		req.Method = window.SaveAtomically
	case window.SaveAtomically, window.SaveDirect, window.SaveNone:
	default:
		return &validationError{"method must be one of atomically, direct, none"}
	}
	return nil
}

func validateOpen(req *openRequest) error {
	if req.URI != "" && req.Directory {
		return &validationError{"directory only applies to the local test file"}
	}
	return nil
}

// respond writes the controller view after a successful action.
func respond(w http.ResponseWriter, c *window.Controller, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, c.View())
}

// actionHandler runs a body-less action and answers with the view.
func actionHandler(c *window.Controller, action func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, c, action(r.Context()))
	}
}

func toggleHandler(c *window.Controller) http.HandlerFunc {
	return withBody(nil, func(w http.ResponseWriter, r *http.Request, req *toggleRequest) {
		if err := c.ToggleScreencast(r.Context(), req.Active); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, c.Tracker.Status())
	})
}

func screenshotHandler(c *window.Controller) http.HandlerFunc {
	return withBody(nil, func(w http.ResponseWriter, r *http.Request, req *screenshotRequest) {
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return c.TakeScreenshot(r.Context(), req.Interactive)
		})(w, r)
	})
}

func wallpaperHandler(c *window.Controller) http.HandlerFunc {
	return withBody(nil, func(w http.ResponseWriter, r *http.Request, req *wallpaperRequest) {
		respond(w, c, c.SetWallpaper(r.Context(), req.URI))
	})
}

func openHandler(c *window.Controller) http.HandlerFunc {
	return withBody(validateOpen, func(w http.ResponseWriter, r *http.Request, req *openRequest) {
		if req.URI != "" {
			respond(w, c, c.OpenURI(r.Context(), req.URI, req.Ask))
			return
		}
		respond(w, c, c.OpenLocal(r.Context(), req.Directory, req.Ask))
	})
}

func saveHandler(c *window.Controller) http.HandlerFunc {
	return withBody(validateSave, func(w http.ResponseWriter, r *http.Request, req *saveRequest) {
		respond(w, c, c.Save(r.Context(), req.Method))
	})
}

func inhibitHandler(c *window.Controller) http.HandlerFunc {
	return withBody(nil, func(w http.ResponseWriter, r *http.Request, req *inhibitRequest) {
		respond(w, c, c.SetInhibit(r.Context(), req.flags()))
	})
}

func soundHandler(c *window.Controller) http.HandlerFunc {
	return JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
		return c.PlaySound(r.Context())
	})
}
