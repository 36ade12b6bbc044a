package zeroconf

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/logger"
)

// ZeroConfBackend publishes the control API over mDNS.
type ZeroConfBackend struct {
	Config *config.ZeroConfig

	server *zeroconf.Server
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex

	// replaced in tests
	register func(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (*zeroconf.Server, error)
}

var errAlreadyPublished = errors.New("zeroconf: service already published")

// New returns nil when discovery is disabled or no routable interface was
// found for the API listen addresses.
func New(ctx context.Context, cfg *config.ZeroConfig) (*ZeroConfBackend, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if len(cfg.Listen) == 0 {
		logger.Warn("[discovery] API only listens on loopback, nothing to publish")
		return nil, nil
	}

	subCtx, cancel := context.WithCancel(ctx)

	return &ZeroConfBackend{
		Config:   cfg,
		ctx:      subCtx,
		cancel:   cancel,
		register: zeroconf.Register,
	}, nil
}

func (z *ZeroConfBackend) Start() error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.server != nil {
		return errAlreadyPublished
	}

	server, err := z.register(
		z.Config.InstanceName,
		z.Config.ServiceType,
		z.Config.Domain,
		z.Config.Port,
		z.Config.TxtRecords,
		z.Config.Listen,
	)
	if err != nil {
		return err
	}

	z.server = server
	logger.Info("[discovery] service '%s' published (type: %s, port: %d)",
		z.Config.InstanceName, z.Config.ServiceType, z.Config.Port)

	ctx := z.ctx
	go func() {
		<-ctx.Done()
		z.Close()
	}()

	return nil
}

// Close withdraws the service. Safe to call more than once.
func (z *ZeroConfBackend) Close() {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.server != nil {
		z.server.Shutdown()
		z.server = nil
		logger.Debug("[discovery] service '%s' withdrawn", z.Config.InstanceName)
	}

	if z.cancel != nil {
		z.cancel()
		z.cancel = nil
	}
}
