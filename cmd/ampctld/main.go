// Command ampctl is the Ampctl multi-zone audio system daemon.
// Run with --mock to use simulated hardware (no I2C device required).
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"strconv"
	"strings"

	"github.com/stagehand-audio/ampctld/internal/api"
	"github.com/stagehand-audio/ampctld/internal/auth"
	"github.com/stagehand-audio/ampctld/internal/config"
	"github.com/stagehand-audio/ampctld/internal/controller"
	"github.com/stagehand-audio/ampctld/internal/events"
	"github.com/stagehand-audio/ampctld/internal/hardware"
	"github.com/stagehand-audio/ampctld/internal/maintenance"
	"github.com/stagehand-audio/ampctld/internal/models"
	"github.com/stagehand-audio/ampctld/internal/streams"
	"github.com/stagehand-audio/ampctld/internal/zeroconf"
)

func main() {
	var (
		mock      = flag.Bool("mock", false, "use mock hardware driver (no I2C device required)")
		addr      = flag.String("addr", ":80", "HTTP listen address")
		cfgDir    = flag.String("config-dir", "", "config directory (default: ~/.config/ampctl)")
		debug     = flag.Bool("debug", false, "enable debug logging")
		syncSaves = flag.Bool("sync-saves", false, "write config synchronously on every change instead of debouncing")
	)
	flag.Parse()

	// Configure logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Resolve config directory
	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "ampctl")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Hardware driver
	var hw hardware.Driver
	if *mock {
		slog.Info("using mock hardware driver")
		hw = hardware.NewMock()
	} else {
		slog.Info("using real I2C hardware driver")
		hw = hardware.NewI2C()
	}
	if err := hw.Init(ctx); err != nil {
		if !*mock {
			slog.Error("hardware initialization failed", "err", err)
			os.Exit(1)
		}
	}

	// Hardware profile detection
	profile, err := hardware.Detect(ctx, hw)
	if err != nil {
		slog.Warn("hardware detection failed, using mock defaults", "err", err)
		profile = hardware.MockProfile()
	}
	slog.Info("hardware profile",
		"units", len(profile.Units),
		"zones", profile.TotalZones,
		"sources", profile.TotalSources,
		"fan_mode", profile.FanMode,
		"display", profile.Display,
		"firmware", profile.FirmwareVersion,
	)
	slog.Info("stream capabilities", "available", profile.AvailableStreamTypes())

	// Config store
	store := config.NewJSONStoreWithOptions(*cfgDir, !*syncSaves)

	// Event bus
	bus := events.NewBus()

	// Stream manager
	// configDir for streams is ~/.config/ampctl/srcs/
	streamsConfigDir := filepath.Join(*cfgDir, "srcs")
	if err := os.MkdirAll(streamsConfigDir, 0755); err != nil {
		slog.Error("cannot create streams config directory", "path", streamsConfigDir, "err", err)
		os.Exit(1)
	}

	// ctrlRef is used by the stream metadata callback to forward updates.
	// It is set after controller creation; callbacks only fire during stream
	// activity which happens after initialization.
	var ctrlRef *controller.Controller
	streamMgr := streams.NewManager(streamsConfigDir, func(id int, info models.StreamInfo) {
		if ctrlRef != nil {
			ctrlRef.UpdateStreamInfo(id, info)
		}
	})

	// Controller
	ctrl, err := controller.New(hw, profile, store, bus, streamMgr, nil)
	if err != nil {
		slog.Error("controller initialization failed", "err", err)
		os.Exit(1)
	}
	ctrlRef = ctrl // safe: controller is initialized before any stream callbacks fire

	// Watch the config file for edits made outside the daemon (e.g. factory
	// tooling writing house.json directly) and reload when they happen.
	if err := store.Watch(func() {
		if _, appErr := ctrl.ReloadFromStore(ctx); appErr != nil {
			slog.Warn("config: reload after external edit failed", "err", appErr)
		}
	}); err != nil {
		slog.Warn("config: could not watch config directory", "err", err)
	}
	defer store.StopWatching()

	// Auth service
	authSvc, err := auth.NewService(*cfgDir)
	if err != nil {
		slog.Error("auth service initialization failed", "err", err)
		os.Exit(1)
	}
	defer authSvc.Close()

	// Maintenance goroutines (online check, release check, config backups)
	maint := maintenance.New(*cfgDir,
		func(online bool) {
			slog.Info("online status changed", "online", online)
		},
		func(release string) {
			slog.Info("new release available", "version", release)
		},
	)
	go maint.Start(ctx)

	// Zeroconf mDNS registration
	hostname, _ := os.Hostname()
	port := 80
	if parts := strings.SplitN(*addr, ":", 2); len(parts) == 2 && parts[1] != "" {
		if p, err := strconv.Atoi(parts[1]); err == nil {
			port = p
		}
	}
	zc := zeroconf.New(hostname, port)
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("zeroconf failed", "err", err)
		}
	}()

	// Background goroutines
	go hardware.RunPiTempSender(ctx, hw)

	// HTTP server
	router := api.NewRouter(ctrl, authSvc, bus)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Ampctl listening", "addr", *addr, "mock", *mock, "config", *cfgDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Shutdown stream manager
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	if err := streamMgr.Shutdown(shutCtx); err != nil {
		slog.Warn("stream manager shutdown error", "err", err)
	}

	// Flush pending config writes
	if err := store.Flush(); err != nil {
		slog.Warn("failed to flush config", "err", err)
	}

	// Graceful HTTP shutdown
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}
