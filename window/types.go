package window

import (
	"context"
	"sync"
	"time"

	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/backend/screencast"
	"github.com/b0bbywan/go-portal-test/backend/sound"
	"github.com/b0bbywan/go-portal-test/backend/updates"
	"github.com/b0bbywan/go-portal-test/cache"
	"github.com/b0bbywan/go-portal-test/events"
)

// Portal is the subset of the portal client the window buttons use.
type Portal interface {
	Screenshot(ctx context.Context, interactive bool) (string, error)
	SetWallpaper(ctx context.Context, opts portal.WallpaperOptions) error
	ComposeEmail(ctx context.Context, opts portal.EmailOptions) error
	RequestBackground(ctx context.Context, opts portal.BackgroundOptions) (portal.BackgroundResult, error)
	GetUserInformation(ctx context.Context, reason string) (portal.UserInformation, error)
	OpenURI(ctx context.Context, uri string, ask bool) error
	OpenFile(ctx context.Context, path string, directory, ask bool) error
	SaveFile(ctx context.Context, opts portal.SaveOptions) (portal.SaveResult, error)
	Inhibit(ctx context.Context, flags portal.InhibitFlags, reason string) (Inhibition, error)
	AddNotification(ctx context.Context, n portal.Notification) error
	RemoveNotification(ctx context.Context, id string) error
	NetworkStatus(ctx context.Context) (portal.NetworkStatus, error)
	LookupProxy(ctx context.Context, uri string) ([]string, error)
}

type Inhibition interface {
	Done() <-chan struct{}
	Release()
}

type Sound interface {
	Play(ctx context.Context) (sound.Report, error)
}

type Updates interface {
	Install(ctx context.Context) error
	Restart(ctx context.Context) (uint32, error)
	MarkAvailable(data portal.UpdateAvailableData)
	Status() updates.Status
}

type SaveMethod string

const (
	SaveAtomically SaveMethod = "atomically"
	SaveDirect     SaveMethod = "direct"
	SaveNone       SaveMethod = "none"
)

// Label keys of the view.
const (
	LabelSandbox    = "sandbox_status"
	LabelNetwork    = "network_status"
	LabelMonitor    = "monitor_name"
	LabelResolver   = "resolver_name"
	LabelProxies    = "proxies"
	LabelEncoding   = "encoding"
	LabelScreencast = "screencast"
	LabelUsername   = "username"
	LabelRealname   = "realname"
	LabelUpdate     = "update"
)

type Controller struct {
	ctx     context.Context
	portal  Portal
	Tracker *screencast.Tracker
	sound   Sound
	updates Updates
	dataDir string

	labels *cache.Cache[string]

	mu           sync.Mutex
	inhibitFlags portal.InhibitFlags
	inhibition   Inhibition
	acked        bool
	screenshot   *Image
	photo        *Image
	progress     uint32
	soundReport  *sound.Report
	lastError    *events.FailureData

	eventsC chan events.Event
}

// Image is a picture returned by a portal, as a file URI.
type Image struct {
	URI    string `json:"uri"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type InhibitView struct {
	Flags  portal.InhibitFlags `json:"flags"`
	Label  string              `json:"label"`
	Active bool                `json:"active"`
}

type UpdateView struct {
	Label      string `json:"label"`
	Progress   uint32 `json:"progress"`
	Available  bool   `json:"available"`
	Monitoring bool   `json:"monitoring"`
}

// View is everything the window shows.
type View struct {
	SandboxStatus   string              `json:"sandbox_status"`
	NetworkStatus   string              `json:"network_status"`
	MonitorName     string              `json:"monitor_name"`
	ResolverName    string              `json:"resolver_name"`
	Proxies         string              `json:"proxies"`
	Encoding        string              `json:"encoding"`
	Screencast      screencast.Status   `json:"screencast"`
	ScreencastLabel string              `json:"screencast_label"`
	Screenshot      *Image              `json:"screenshot,omitempty"`
	Username        string              `json:"username"`
	Realname        string              `json:"realname"`
	Photo           *Image              `json:"photo,omitempty"`
	Inhibit         InhibitView         `json:"inhibit"`
	Acked           bool                `json:"acked"`
	Update          *UpdateView         `json:"update,omitempty"`
	Sound           *sound.Report       `json:"sound,omitempty"`
	LastError       *events.FailureData `json:"last_error,omitempty"`
	UpdatedAt       time.Time           `json:"updated_at"`
}
