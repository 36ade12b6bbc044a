package backend

import (
	"context"

	"github.com/b0bbywan/go-portal-test/backend/login1"
	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/backend/screencast"
	"github.com/b0bbywan/go-portal-test/backend/sound"
	"github.com/b0bbywan/go-portal-test/backend/systemd"
	"github.com/b0bbywan/go-portal-test/backend/token"
	"github.com/b0bbywan/go-portal-test/backend/updates"
	"github.com/b0bbywan/go-portal-test/backend/zeroconf"
	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/logger"
)

type Backend struct {
	Portal     *portal.Client
	Screencast *screencast.Tracker
	Token      *token.Store
	Sound      *sound.Backend
	Updates    *updates.Backend
	Zeroconf   *zeroconf.ZeroConfBackend
	Systemd    *systemd.Backend
	Login1     *login1.Backend

	ctx        context.Context
	watchToken bool
}

// New connects to the portal and builds every enabled backend on top of it.
func New(ctx context.Context, cfg *config.Config) (*Backend, error) {
	p, err := portal.New(ctx, cfg.Portal)
	if err != nil {
		return nil, err
	}

	b, err := build(ctx, cfg, screencast.FromPortal(p), updates.FromPortal(p))
	if err != nil {
		p.Close()
		return nil, err
	}
	b.Portal = p
	return b, nil
}

func build(ctx context.Context, cfg *config.Config, sc screencast.Client, uc updates.Client) (*Backend, error) {
	b := Backend{ctx: ctx}

	opts, err := portal.ScreencastOptionsFromConfig(cfg.Screencast)
	if err != nil {
		return nil, err
	}

	store, err := token.New(cfg.Token)
	if err != nil {
		logger.Warn("[backend] restore token will not be persisted: %v", err)
	} else {
		b.Token = store
		b.watchToken = cfg.Token.Watch
	}

	var ts screencast.TokenStore
	if b.Token != nil {
		ts = b.Token
	}
	b.Screencast = screencast.New(ctx, sc, ts, opts)

	s, err := sound.New(ctx, cfg.Sound)
	if err != nil {
		return nil, err
	}
	b.Sound = s

	u, err := updates.New(ctx, uc, cfg.Updates)
	if err != nil {
		return nil, err
	}
	b.Updates = u

	z, err := zeroconf.New(ctx, cfg.Zeroconf)
	if err != nil {
		return nil, err
	}
	b.Zeroconf = z

	// both are diagnostics, the harness runs without a user manager or logind
	sd, err := systemd.New(ctx, cfg.Systemd)
	if err != nil {
		logger.Warn("[backend] portal units will not be monitored: %v", err)
	}
	b.Systemd = sd

	l, err := login1.New(ctx, cfg.Login1)
	if err != nil {
		logger.Warn("[backend] logind inhibitors will not be checked: %v", err)
	}
	b.Login1 = l

	return &b, nil
}

func (b *Backend) Start() error {
	if b.Portal != nil {
		if err := b.Portal.Start(); err != nil {
			return err
		}
	}

	if b.Token != nil && b.watchToken {
		if err := b.Token.Watch(b.ctx, b.Screencast); err != nil {
			logger.Warn("[backend] not watching the restore token: %v", err)
		}
	}

	if b.Updates != nil {
		if err := b.Updates.Start(); err != nil {
			return err
		}
	}

	if b.Zeroconf != nil {
		if err := b.Zeroconf.Start(); err != nil {
			logger.Warn("[backend] service discovery failed: %v", err)
		}
	}

	if b.Systemd != nil {
		if err := b.Systemd.Start(); err != nil {
			logger.Warn("[backend] not watching portal units: %v", err)
			b.Systemd.Close()
			b.Systemd = nil
		}
	}

	return nil
}

func (b *Backend) Close() {
	if b.Zeroconf != nil {
		b.Zeroconf.Close()
	}
	if b.Systemd != nil {
		b.Systemd.Close()
	}
	if b.Login1 != nil {
		b.Login1.Close()
	}
	if b.Screencast != nil {
		b.Screencast.Close()
	}
	if b.Updates != nil {
		b.Updates.Close()
	}
	if b.Sound != nil {
		b.Sound.Close()
	}
	if b.Portal != nil {
		b.Portal.Close()
	}
}
