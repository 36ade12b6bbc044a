package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/b0bbywan/go-portal-test/api"
	"github.com/b0bbywan/go-portal-test/app"
	"github.com/b0bbywan/go-portal-test/backend"
	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/logger"
	"github.com/b0bbywan/go-portal-test/window"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:     config.AppName,
	Short:   "Exercise the XDG desktop portals from a headless harness",
	Version: config.AppVersion,
	Args:    cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		for key, flag := range map[string]string{
			"instance.replace": "replace",
			"loglevel":         "log-level",
			"api.port":         "port",
		} {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return err
			}
		}
		return nil
	},
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().Bool("replace", false, "replace the running instance")
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (default: /etc/portal-test/config.yaml, ~/.config/portal-test/config.yaml)")
	rootCmd.Flags().String("log-level", "WARN", "log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.Flags().IntP("port", "p", 8088, "HTTP API port")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("[%s] %v", config.AppName, err)
		os.Exit(1)
	}
}

// dataDir returns $XDG_DATA_HOME/portal-test, falling back to ~/.local/share.
func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, config.AppName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", config.AppName)
	}
	return filepath.Join(os.TempDir(), config.AppName)
}

func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("[%s] sd_notify %s failed: %v", config.AppName, state, err)
		return
	}
	if sent {
		logger.Debug("[%s] sd_notify %s", config.AppName, state)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.New(configFile)
	if err != nil {
		return err
	}

	logger.SetLevel(cfg.LogLevel)
	logger.SetPackageLevels(cfg.LogLevels)

	// Global context for the entire application
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfg.Instance)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Claim(ctx, cfg.Instance.Replace); err != nil {
		var running *app.AlreadyRunningError
		if errors.As(err, &running) {
			logger.Error("[%s] %s is already running, pass --replace to take over", config.AppName, running.Name)
		}
		return err
	}

	b, err := backend.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Start(); err != nil {
		return err
	}

	// typed nil pointers must not leak into the controller's interfaces
	var snd window.Sound
	if b.Sound != nil {
		snd = b.Sound
	}
	var upd window.Updates
	if b.Updates != nil {
		upd = b.Updates
	}

	ctrl := window.New(ctx, window.FromPortal(b.Portal), b.Screencast, snd, upd, dataDir())
	defer ctrl.Close()

	broadcaster := b.NewBroadcaster(ctx, ctrl.Events())
	go ctrl.Run(ctx, broadcaster.Subscribe())

	if err := ctrl.Refresh(ctx); err != nil {
		logger.Warn("[%s] initial refresh failed: %v", config.AppName, err)
	}

	a.AddAction(app.ACTION_ACK, ctrl.Ack)
	a.AddAction(app.ACTION_RESTART, func() {
		if err := ctrl.Restart(ctx); err != nil {
			logger.Error("[%s] restart failed: %v", config.AppName, err)
		}
	})

	server := api.NewServer(cfg.Api, b, ctrl, broadcaster)
	serverErr := make(chan error, 1)
	if server != nil {
		go func() {
			serverErr <- server.Run(ctx)
		}()
	}

	notifySystemd(daemon.SdNotifyReady)
	logger.Info("[%s] started", config.AppName)

	select {
	case <-ctx.Done():
		logger.Info("[%s] shutdown signal received", config.AppName)
	case <-a.Done():
		logger.Info("[%s] asked to quit", config.AppName)
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("[%s] http server error: %v", config.AppName, err)
		}
	}

	notifySystemd(daemon.SdNotifyStopping)
	cancel()
	logger.Info("[%s] stopped", config.AppName)
	return nil
}
