package backend

import (
	"bufio"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/b0bbywan/go-portal-test/backend/systemd"
	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/logger"
)

const (
	UNKNOWN           = "unknown"
	OS_RELEASE_FILE   = "/etc/os-release"
	FLATPAK_INFO_FILE = "/.flatpak-info"
)

var (
	osVersion string
	sandbox   Sandbox
)

type ServerDeviceInfo struct {
	Hostname   string            `json:"hostname"`
	OSPlatform string            `json:"os_platform"`
	OSVersion  string            `json:"os_version"`
	APISW      string            `json:"api_sw"`
	APIVersion string            `json:"api_version"`
	Sandbox    Sandbox           `json:"sandbox"`
	Portals    map[string]uint32 `json:"portals,omitempty"`
	Units      []systemd.Unit    `json:"units,omitempty"`
	Backends   Backends          `json:"backends"`
}

// Sandbox describes the Flatpak sandbox the process runs in, if any.
type Sandbox struct {
	Flatpak bool   `json:"flatpak"`
	AppID   string `json:"app_id,omitempty"`
	Runtime string `json:"runtime,omitempty"`
}

type Backends struct {
	Portal     bool `json:"portal"`
	Screencast bool `json:"screencast"`
	Token      bool `json:"token"`
	Sound      bool `json:"sound"`
	Updates    bool `json:"updates"`
	Zeroconf   bool `json:"zeroconf"`
	Systemd    bool `json:"systemd"`
	Login1     bool `json:"login1"`
}

func init() {
	osVersion = readOSRelease()
	sandbox = readFlatpakInfo(FLATPAK_INFO_FILE)
}

func parseKeyValue(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		out[key] = strings.Trim(value, `"`)
	}

	return out, scanner.Err()
}

func readKeyValueFile(path string) map[string]string {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Warn("[backend] failed to close %s: %v", path, err)
		}
	}()

	content, err := parseKeyValue(file)
	if err != nil {
		logger.Debug("[backend] failed to parse %s: %v", path, err)
	}
	return content
}

func readOSRelease() string {
	content := readKeyValueFile(OS_RELEASE_FILE)
	switch {
	case content["PRETTY_NAME"] != "":
		return content["PRETTY_NAME"]
	case content["NAME"] != "":
		return content["NAME"]
	default:
		return UNKNOWN
	}
}

// readFlatpakInfo reads the keyfile Flatpak mounts at the root of every
// sandbox. Section headers carry no '=' and are skipped by parseKeyValue.
func readFlatpakInfo(path string) Sandbox {
	if _, err := os.Stat(path); err != nil {
		return Sandbox{}
	}
	content := readKeyValueFile(path)
	return Sandbox{
		Flatpak: true,
		AppID:   content["name"],
		Runtime: content["runtime"],
	}
}

// SandboxStatus renders the sandbox line shown in the window view.
func SandboxStatus() string {
	if sandbox.Flatpak {
		return "confined"
	}
	return "unconfined"
}

func (b *Backend) GetServerDeviceInfo() (ServerDeviceInfo, error) {
	hostname, err := os.Hostname()
	if err != nil {
		logger.Debug("[backend] failed to get hostname: %v", err)
		hostname = UNKNOWN
	}

	platform := runtime.GOOS + "/" + runtime.GOARCH

	info := ServerDeviceInfo{
		Hostname:   hostname,
		OSPlatform: platform,
		OSVersion:  osVersion,
		APISW:      config.AppName,
		APIVersion: config.AppVersion,
		Sandbox:    sandbox,
		Backends: Backends{
			Portal:     b.Portal != nil,
			Screencast: b.Screencast != nil,
			Token:      b.Token != nil,
			Sound:      b.Sound != nil,
			Updates:    b.Updates != nil,
			Zeroconf:   b.Zeroconf != nil,
			Systemd:    b.Systemd != nil,
			Login1:     b.Login1 != nil,
		},
	}
	if b.Portal != nil {
		info.Portals = b.Portal.Versions()
	}
	if b.Systemd != nil {
		units, err := b.Systemd.ListUnits()
		if err != nil {
			logger.Warn("[backend] failed to list portal units: %v", err)
		}
		info.Units = units
	}
	return info, nil
}
