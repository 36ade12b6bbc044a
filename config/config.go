package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/b0bbywan/go-portal-test/logger"
)

const (
	AppName    = "portal-test"
	AppVersion = "0.1.0"
	// AppID is the well-known bus name claimed by the running instance.
	AppID       = "org.gnome.PortalTest.Go"
	envPrefix   = "PORTAL_TEST"
	serviceType = "_http._tcp"
	domain      = "local."
)

var (
	validSources = []string{"monitor", "window", "virtual"}
	validCursors = []string{"hidden", "embedded", "metadata"}
	validPersist = []string{"none", "transient", "persistent"}

	defaultUnits = []string{
		"xdg-desktop-portal.service",
		"xdg-desktop-portal-gnome.service",
		"xdg-desktop-portal-gtk.service",
		"xdg-document-portal.service",
		"xdg-permission-store.service",
	}
)

type Config struct {
	Api        *ApiConfig
	Portal     *PortalConfig
	Screencast *ScreencastConfig
	Token      *TokenConfig
	Sound      *SoundConfig
	Updates    *UpdatesConfig
	Zeroconf   *ZeroConfig
	Systemd    *SystemdConfig
	Login1     *Login1Config
	Instance   *InstanceConfig
	LogLevel   logger.Level
	LogLevels  map[string]logger.Level
}

type ApiConfig struct {
	Enabled bool
	Port    int
	Listens []string
	UI      bool
	CORS    *CORSConfig
}

// CORSConfig lists the origins allowed to call the API from a browser.
// "*" allows any origin.
type CORSConfig struct {
	Origins []string
}

type PortalConfig struct {
	// Timeout bounds the wait for a Request.Response signal. Requests
	// usually involve a user dialog, so this is much longer than a plain call.
	Timeout      time.Duration
	ParentWindow string
}

type ScreencastConfig struct {
	Sources  []string
	Multiple bool
	Cursor   string
	Persist  string
}

type TokenConfig struct {
	File  string
	Watch bool
}

type SoundConfig struct {
	Enabled       bool
	Frequency     float64
	Duration      time.Duration
	XDGRuntimeDir string
}

type UpdatesConfig struct {
	Enabled bool
	// Marker is created inside the sandbox once a newer version is installed.
	Marker string
}

type ZeroConfig struct {
	Enabled      bool
	InstanceName string
	ServiceType  string
	Domain       string
	Port         int
	TxtRecords   []string
	Listen       []net.Interface
}

// SystemdConfig lists the user units backing the portals.
type SystemdConfig struct {
	Enabled       bool
	Units         []string
	XDGRuntimeDir string
}

type Login1Config struct {
	Enabled bool
}

type InstanceConfig struct {
	Replace        bool
	ReplaceTimeout time.Duration
}

func interfaceForIP(ip string) (*net.Interface, error) {
	if ip == "127.0.0.1" || ip == "localhost" {
		return nil, nil
	}
	listenIP := net.ParseIP(ip)
	if listenIP == nil {
		return nil, fmt.Errorf("invalid bind: %s", ip)
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		addrs, _ := iface.Addrs()
		for _, addr := range addrs {
			var ifaceIP net.IP

			switch v := addr.(type) {
			case *net.IPNet:
				ifaceIP = v.IP
			case *net.IPAddr:
				ifaceIP = v.IP
			}

			if ifaceIP != nil && ifaceIP.Equal(listenIP) {
				return &iface, nil
			}
		}
	}

	return nil, fmt.Errorf("no interface found for IP %s", ip)
}

func xdgRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return fmt.Sprintf("/run/user/%d", os.Getuid())
}

// stateDir returns $XDG_STATE_HOME/portal-test, falling back to ~/.local/state.
func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", AppName)
	}
	return filepath.Join(os.TempDir(), AppName)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8088)
	v.SetDefault("api.listen", []string{"127.0.0.1"})
	v.SetDefault("api.ui", true)
	v.SetDefault("api.cors.origins", []string{})

	v.SetDefault("portal.timeout", "2m")
	v.SetDefault("portal.parent_window", "")

	v.SetDefault("screencast.sources", []string{"monitor", "window"})
	v.SetDefault("screencast.multiple", false)
	v.SetDefault("screencast.cursor", "hidden")
	v.SetDefault("screencast.persist", "transient")

	v.SetDefault("token.file", filepath.Join(stateDir(), "restore-token"))
	v.SetDefault("token.watch", true)

	v.SetDefault("sound.enabled", true)
	v.SetDefault("sound.frequency", 440.0)
	v.SetDefault("sound.duration", "500ms")

	v.SetDefault("updates.enabled", true)
	v.SetDefault("updates.marker", "/app/.updated")
	v.SetDefault("zeroconf.enabled", false)

	v.SetDefault("systemd.enabled", true)
	v.SetDefault("systemd.units", defaultUnits)
	v.SetDefault("login1.enabled", true)

	v.SetDefault("instance.replace", false)
	v.SetDefault("instance.replace_timeout", "5s")

	v.SetDefault("loglevel", "WARN")
	v.SetDefault("loglevels", map[string]string{})
}

// New loads the configuration from the global viper instance, which main
// has already bound to the command line flags.
func New(configFile string) (*Config, error) {
	return load(viper.GetViper(), configFile)
}

func load(v *viper.Viper, configFile string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join("/etc", AppName))
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional unless explicitly given
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	port := v.GetInt("api.port")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", port)
	}

	binds := v.GetStringSlice("api.listen")
	if len(binds) == 0 {
		binds = []string{"127.0.0.1"}
	}
	listens := make([]string, 0, len(binds))
	var interfaces []net.Interface
	for _, bind := range binds {
		listens = append(listens, net.JoinHostPort(bind, fmt.Sprint(port)))
		inet, err := interfaceForIP(bind)
		if err != nil {
			logger.Warn("[config] %v", err)
			continue
		}
		if inet != nil {
			interfaces = append(interfaces, *inet)
		}
	}

	timeout := v.GetDuration("portal.timeout")
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	screencast, err := screencastConfig(v)
	if err != nil {
		return nil, err
	}

	soundDuration := v.GetDuration("sound.duration")
	if soundDuration <= 0 {
		soundDuration = 500 * time.Millisecond
	}
	frequency := v.GetFloat64("sound.frequency")
	if frequency <= 0 {
		return nil, fmt.Errorf("invalid sound frequency: %v", frequency)
	}

	replaceTimeout := v.GetDuration("instance.replace_timeout")
	if replaceTimeout <= 0 {
		replaceTimeout = 5 * time.Second
	}

	cfg := Config{
		Api: &ApiConfig{
			Enabled: v.GetBool("api.enabled"),
			Port:    port,
			Listens: listens,
			UI:      v.GetBool("api.ui"),
			CORS:    corsConfig(v),
		},
		Portal: &PortalConfig{
			Timeout:      timeout,
			ParentWindow: v.GetString("portal.parent_window"),
		},
		Screencast: screencast,
		Token: &TokenConfig{
			File:  v.GetString("token.file"),
			Watch: v.GetBool("token.watch"),
		},
		Sound: &SoundConfig{
			Enabled:       v.GetBool("sound.enabled"),
			Frequency:     frequency,
			Duration:      soundDuration,
			XDGRuntimeDir: xdgRuntimeDir(),
		},
		Updates: &UpdatesConfig{
			Enabled: v.GetBool("updates.enabled"),
			Marker:  v.GetString("updates.marker"),
		},
		Zeroconf: &ZeroConfig{
			Enabled:      v.GetBool("zeroconf.enabled"),
			InstanceName: AppName,
			ServiceType:  serviceType,
			Domain:       domain,
			Port:         port,
			TxtRecords:   []string{"version=" + AppVersion, "path=/ui"},
			Listen:       interfaces,
		},
		Systemd: &SystemdConfig{
			Enabled:       v.GetBool("systemd.enabled"),
			Units:         unitNames(v.GetStringSlice("systemd.units")),
			XDGRuntimeDir: xdgRuntimeDir(),
		},
		Login1: &Login1Config{
			Enabled: v.GetBool("login1.enabled"),
		},
		Instance: &InstanceConfig{
			Replace:        v.GetBool("instance.replace"),
			ReplaceTimeout: replaceTimeout,
		},
		LogLevel:  logger.ParseLevel(v.GetString("loglevel")),
		LogLevels: parseLogLevels(v.GetStringMapString("loglevels")),
	}

	return &cfg, nil
}

func corsConfig(v *viper.Viper) *CORSConfig {
	var origins []string
	for _, o := range v.GetStringSlice("api.cors.origins") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return nil
	}
	return &CORSConfig{Origins: origins}
}

// unitNames drops blanks and duplicates, appending ".service" to bare names.
func unitNames(raw []string) []string {
	var units []string
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !strings.Contains(name, ".") {
			name += ".service"
		}
		if !slices.Contains(units, name) {
			units = append(units, name)
		}
	}
	return units
}

func screencastConfig(v *viper.Viper) (*ScreencastConfig, error) {
	sources := slices.Clone(v.GetStringSlice("screencast.sources"))
	if len(sources) == 0 {
		return nil, fmt.Errorf("screencast.sources: at least one source type is required")
	}
	for i, s := range sources {
		sources[i] = strings.ToLower(strings.TrimSpace(s))
		if !slices.Contains(validSources, sources[i]) {
			return nil, fmt.Errorf("screencast.sources: unknown source type %q", s)
		}
	}

	cursor := strings.ToLower(v.GetString("screencast.cursor"))
	if !slices.Contains(validCursors, cursor) {
		return nil, fmt.Errorf("screencast.cursor: unknown cursor mode %q", cursor)
	}

	persist := strings.ToLower(v.GetString("screencast.persist"))
	if !slices.Contains(validPersist, persist) {
		return nil, fmt.Errorf("screencast.persist: unknown persist mode %q", persist)
	}

	return &ScreencastConfig{
		Sources:  sources,
		Multiple: v.GetBool("screencast.multiple"),
		Cursor:   cursor,
		Persist:  persist,
	}, nil
}

func parseLogLevels(raw map[string]string) map[string]logger.Level {
	levels := make(map[string]logger.Level, len(raw))
	for component, level := range raw {
		levels[strings.ToLower(component)] = logger.ParseLevel(level)
	}
	return levels
}
