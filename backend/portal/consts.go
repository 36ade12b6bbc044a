package portal

const (
	PORTAL_PREFIX = "org.freedesktop.portal"
	PORTAL_DEST   = PORTAL_PREFIX + ".Desktop"
	PORTAL_PATH   = "/org/freedesktop/portal/desktop"

	REQUEST_PATH_PREFIX = PORTAL_PATH + "/request/"

	REQUEST_IFACE = PORTAL_PREFIX + ".Request"
	SESSION_IFACE = PORTAL_PREFIX + ".Session"

	SCREENCAST_IFACE   = PORTAL_PREFIX + ".ScreenCast"
	SCREENSHOT_IFACE   = PORTAL_PREFIX + ".Screenshot"
	WALLPAPER_IFACE    = PORTAL_PREFIX + ".Wallpaper"
	EMAIL_IFACE        = PORTAL_PREFIX + ".Email"
	BACKGROUND_IFACE   = PORTAL_PREFIX + ".Background"
	ACCOUNT_IFACE      = PORTAL_PREFIX + ".Account"
	OPENURI_IFACE      = PORTAL_PREFIX + ".OpenURI"
	FILECHOOSER_IFACE  = PORTAL_PREFIX + ".FileChooser"
	INHIBIT_IFACE      = PORTAL_PREFIX + ".Inhibit"
	NOTIFICATION_IFACE = PORTAL_PREFIX + ".Notification"
	NETWORK_IFACE      = PORTAL_PREFIX + ".NetworkMonitor"
	PROXY_IFACE        = PORTAL_PREFIX + ".ProxyResolver"

	FLATPAK_DEST                 = PORTAL_PREFIX + ".Flatpak"
	FLATPAK_PATH                 = "/org/freedesktop/portal/Flatpak"
	FLATPAK_IFACE                = FLATPAK_DEST
	UPDATE_MONITOR_IFACE         = FLATPAK_IFACE + ".UpdateMonitor"
	UPDATE_MONITOR_PATH_PREFIX   = FLATPAK_PATH + "/update_monitor/"
	FLATPAK_SPAWN_LATEST_VERSION = 2

	// Methods
	REQUEST_CLOSE = REQUEST_IFACE + ".Close"
	SESSION_CLOSE = SESSION_IFACE + ".Close"

	SCREENCAST_CREATE_SESSION = SCREENCAST_IFACE + ".CreateSession"
	SCREENCAST_SELECT_SOURCES = SCREENCAST_IFACE + ".SelectSources"
	SCREENCAST_START          = SCREENCAST_IFACE + ".Start"

	SCREENSHOT_METHOD        = SCREENSHOT_IFACE + ".Screenshot"
	WALLPAPER_SET_URI        = WALLPAPER_IFACE + ".SetWallpaperURI"
	EMAIL_COMPOSE            = EMAIL_IFACE + ".ComposeEmail"
	BACKGROUND_REQUEST       = BACKGROUND_IFACE + ".RequestBackground"
	ACCOUNT_GET_USER_INFO    = ACCOUNT_IFACE + ".GetUserInformation"
	OPENURI_OPEN_URI         = OPENURI_IFACE + ".OpenURI"
	OPENURI_OPEN_FILE        = OPENURI_IFACE + ".OpenFile"
	OPENURI_OPEN_DIRECTORY   = OPENURI_IFACE + ".OpenDirectory"
	FILECHOOSER_SAVE_FILE    = FILECHOOSER_IFACE + ".SaveFile"
	INHIBIT_METHOD           = INHIBIT_IFACE + ".Inhibit"
	NOTIFICATION_ADD         = NOTIFICATION_IFACE + ".AddNotification"
	NOTIFICATION_REMOVE      = NOTIFICATION_IFACE + ".RemoveNotification"
	NETWORK_GET_STATUS       = NETWORK_IFACE + ".GetStatus"
	NETWORK_GET_AVAILABLE    = NETWORK_IFACE + ".GetAvailable"
	NETWORK_GET_METERED      = NETWORK_IFACE + ".GetMetered"
	NETWORK_GET_CONNECTIVITY = NETWORK_IFACE + ".GetConnectivity"
	PROXY_LOOKUP             = PROXY_IFACE + ".Lookup"
	FLATPAK_SPAWN            = FLATPAK_IFACE + ".Spawn"
	FLATPAK_CREATE_MONITOR   = FLATPAK_IFACE + ".CreateUpdateMonitor"
	UPDATE_MONITOR_UPDATE    = UPDATE_MONITOR_IFACE + ".Update"
	UPDATE_MONITOR_CLOSE     = UPDATE_MONITOR_IFACE + ".Close"

	// Signals
	SIGNAL_RESPONSE         = "Response"
	SIGNAL_CLOSED           = "Closed"
	SIGNAL_ACTION_INVOKED   = "ActionInvoked"
	SIGNAL_UPDATE_AVAILABLE = "UpdateAvailable"
	SIGNAL_PROGRESS         = "Progress"

	PROP_VERSION = "version"
)
