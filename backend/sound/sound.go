package sound

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/the-jonsey/pulseaudio"

	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/logger"
)

// ErrBusy is returned when a tone is already playing.
var ErrBusy = errors.New("sound: already playing")

func New(ctx context.Context, cfg *config.SoundConfig) (*Backend, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.Frequency <= 0 {
		return nil, fmt.Errorf("sound: invalid frequency %v", cfg.Frequency)
	}

	b := &Backend{
		ctx:         ctx,
		address:     filepath.Join(cfg.XDGRuntimeDir, "pulse", "native"),
		frequency:   cfg.Frequency,
		duration:    cfg.Duration,
		initSpeaker: speaker.Init,
		play:        speaker.Play,
		clear:       speaker.Clear,
	}
	logger.Info("[sound] backend initialized (%.0f Hz, %s)", b.frequency, b.duration)
	return b, nil
}

func detectServerKind(s *pulseaudio.Server) ServerKind {
	if strings.Contains(strings.ToLower(s.PackageName), "pipewire") {
		return ServerPipeWire
	}
	return ServerPulse
}

// ServerInfo asks the native PulseAudio (or pipewire-pulse) server who it is.
func (b *Backend) ServerInfo() (*ServerInfo, error) {
	client, err := pulseaudio.NewClient(b.address)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	server, err := client.ServerInfo()
	if err != nil {
		return nil, err
	}
	volume, err := client.Volume()
	if err != nil {
		logger.Debug("[sound] failed to get master volume: %v", err)
	}

	return &ServerInfo{
		Kind:        detectServerKind(server),
		Name:        server.PackageName,
		Version:     server.PackageVersion,
		User:        server.User,
		Hostname:    server.Hostname,
		DefaultSink: server.DefaultSink,
		Volume:      volume,
	}, nil
}

// tone is a sine at the configured frequency, cut to the configured
// duration and attenuated to half amplitude.
func (b *Backend) tone() (beep.Streamer, error) {
	sine, err := generators.SineTone(sampleRate, b.frequency)
	if err != nil {
		return nil, err
	}
	return &effects.Volume{
		Streamer: beep.Take(sampleRate.N(b.duration), sine),
		Base:     2,
		Volume:   -1,
	}, nil
}

func (b *Backend) ensureInitialized() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}
	if err := b.initSpeaker(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	b.initialized = true
	logger.Debug("[sound] speaker initialized at %d Hz", sampleRate)
	return nil
}

// Play reports the audio server and plays the test tone, returning once
// it has finished.
func (b *Backend) Play(ctx context.Context) (Report, error) {
	report := Report{Frequency: b.frequency, Duration: b.duration.String()}

	if info, err := b.ServerInfo(); err != nil {
		logger.Warn("[sound] audio server unavailable: %v", err)
		report.ServerError = err.Error()
	} else {
		report.Server = info
	}

	b.mu.Lock()
	if b.playing {
		b.mu.Unlock()
		return report, ErrBusy
	}
	b.playing = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.playing = false
		b.mu.Unlock()
	}()

	if err := b.ensureInitialized(); err != nil {
		return report, err
	}
	tone, err := b.tone()
	if err != nil {
		return report, err
	}

	done := make(chan struct{})
	b.play(beep.Seq(tone, beep.Callback(func() { close(done) })))
	logger.Info("[sound] playing %.0f Hz for %s", b.frequency, b.duration)

	select {
	case <-done:
		report.Played = true
		return report, nil
	case <-ctx.Done():
		b.clear()
		return report, ctx.Err()
	case <-b.ctx.Done():
		b.clear()
		return report, b.ctx.Err()
	}
}

func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		b.clear()
	}
}
