package sound

import (
	"context"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

type ServerKind string

const (
	ServerPulse    ServerKind = "pulseaudio"
	ServerPipeWire ServerKind = "pipewire"
)

const sampleRate = beep.SampleRate(44100)

type Backend struct {
	ctx       context.Context
	address   string
	frequency float64
	duration  time.Duration

	mu          sync.Mutex
	initialized bool
	playing     bool

	// speaker hooks, replaced in tests
	initSpeaker func(sr beep.SampleRate, bufferSize int) error
	play        func(s ...beep.Streamer)
	clear       func()
}

type ServerInfo struct {
	Kind        ServerKind `json:"kind"`
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	User        string     `json:"user"`
	Hostname    string     `json:"hostname"`
	DefaultSink string     `json:"default_sink"`
	Volume      float32    `json:"volume"`
}

// Report describes one sound check.
type Report struct {
	Server      *ServerInfo `json:"server,omitempty"`
	ServerError string      `json:"server_error,omitempty"`
	Frequency   float64     `json:"frequency"`
	Duration    string      `json:"duration"`
	Played      bool        `json:"played"`
}
