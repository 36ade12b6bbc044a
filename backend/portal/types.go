package portal

import (
	"context"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/b0bbywan/go-portal-test/cache"
	"github.com/b0bbywan/go-portal-test/events"
)

type Client struct {
	conn     *dbus.Conn
	ctx      context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
	parent   string
	sender   string
	versions *cache.Cache[uint32]

	signals chan *dbus.Signal
	subsMu  sync.Mutex
	subs    map[subscriptionKey][]*Subscription

	eventsC chan events.Event
	wg      sync.WaitGroup
}

// SourceType is a bitmask of the screencast source kinds.
type SourceType uint32

const (
	SourceMonitor SourceType = 1
	SourceWindow  SourceType = 2
	SourceVirtual SourceType = 4
)

type CursorMode uint32

const (
	CursorHidden   CursorMode = 1
	CursorEmbedded CursorMode = 2
	CursorMetadata CursorMode = 4
)

type PersistMode uint32

const (
	PersistNone       PersistMode = 0
	PersistTransient  PersistMode = 1
	PersistPersistent PersistMode = 2
)

// Response codes of org.freedesktop.portal.Request.Response
const (
	ResponseSuccess   uint32 = 0
	ResponseCancelled uint32 = 1
	ResponseFailed    uint32 = 2
)

type ScreencastOptions struct {
	Sources      SourceType
	Multiple     bool
	Cursor       CursorMode
	Persist      PersistMode
	RestoreToken string
}

type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

type Size struct {
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

// Stream is one PipeWire node granted by a screencast Start.
type Stream struct {
	ID         uint32     `json:"id"`
	Position   *Point     `json:"position,omitempty"`
	Size       *Size      `json:"size,omitempty"`
	SourceType SourceType `json:"source_type,omitempty"`
	MappingID  string     `json:"mapping_id,omitempty"`
}

// Session is a screencast session handle owned by the portal.
type Session struct {
	client *Client
	handle dbus.ObjectPath

	mu           sync.Mutex
	streams      []Stream
	restoreToken string
	persistMode  PersistMode

	closedSub *Subscription
	closed    chan struct{}
	closeOnce sync.Once
}

type WallpaperTarget string

const (
	WallpaperBackground WallpaperTarget = "background"
	WallpaperLockscreen WallpaperTarget = "lockscreen"
	WallpaperBoth       WallpaperTarget = "both"
)

type WallpaperOptions struct {
	URI         string
	ShowPreview bool
	SetOn       WallpaperTarget
}

type EmailOptions struct {
	Addresses []string
	Cc        []string
	Bcc       []string
	Subject   string
	Body      string
}

type BackgroundOptions struct {
	Reason          string
	Autostart       bool
	DBusActivatable bool
	Commandline     []string
}

type BackgroundResult struct {
	Background bool `json:"background"`
	Autostart  bool `json:"autostart"`
}

type UserInformation struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Choice is a FileChooser extra widget: a combo when Options is set,
// a checkbox otherwise.
type Choice struct {
	ID      string
	Label   string
	Options [][2]string
	Default string
}

type SaveOptions struct {
	Title       string
	CurrentName string
	Choices     []Choice
}

type SaveResult struct {
	URIs    []string          `json:"uris"`
	Choices map[string]string `json:"choices,omitempty"`
}

// InhibitFlags is a bitmask of what an inhibition blocks.
type InhibitFlags uint32

const (
	InhibitLogout     InhibitFlags = 1
	InhibitUserSwitch InhibitFlags = 2
	InhibitSuspend    InhibitFlags = 4
	InhibitIdle       InhibitFlags = 8
)

// Inhibition is an active inhibit request, released by Release.
type Inhibition struct {
	client *Client
	handle dbus.ObjectPath
	Flags  InhibitFlags
	done   chan struct{}
	once   sync.Once
}

type NotificationButton struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

type Notification struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	Body          string               `json:"body"`
	Priority      string               `json:"priority,omitempty"`
	DefaultAction string               `json:"default_action,omitempty"`
	Buttons       []NotificationButton `json:"buttons,omitempty"`
}

// ActionInvokedData is the payload of a notification.action event.
type ActionInvokedData struct {
	ID        string        `json:"id"`
	Action    string        `json:"action"`
	Parameter []interface{} `json:"parameter,omitempty"`
}

type UpdateStatus uint32

const (
	UpdateRunning UpdateStatus = 0
	UpdateEmpty   UpdateStatus = 1
	UpdateDone    UpdateStatus = 2
	UpdateFailed  UpdateStatus = 3
)

// UpdateAvailableData is the payload of an update.available event.
type UpdateAvailableData struct {
	RunningCommit string `json:"running_commit"`
	LocalCommit   string `json:"local_commit"`
	RemoteCommit  string `json:"remote_commit"`
	Source        string `json:"source"`
}

// UpdateProgressData is the payload of an update.progress event.
type UpdateProgressData struct {
	NOps         uint32       `json:"n_ops"`
	Op           uint32       `json:"op"`
	Progress     uint32       `json:"progress"`
	Status       UpdateStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// UpdateMonitor wraps an org.freedesktop.portal.Flatpak.UpdateMonitor object.
type UpdateMonitor struct {
	client *Client
	handle dbus.ObjectPath
	subs   []*Subscription
	done   chan struct{}
	once   sync.Once
}
