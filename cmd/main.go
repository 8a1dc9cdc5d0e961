package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"clocktimer/internal/core/command"
	"clocktimer/internal/core/model"
	"clocktimer/internal/lifecycle"
	"clocktimer/internal/logging"
	"clocktimer/internal/metrics"
	"clocktimer/internal/platform"
	"clocktimer/internal/sound"
	"clocktimer/internal/storage"
	"clocktimer/internal/ui/overlay"
	"clocktimer/internal/ui/preferences"
	"clocktimer/internal/ui/tray"
	"clocktimer/resources"
)

const (
	appName        = "ClockTimer"
	appID          = "com.clocktimer.app"
	forwardTimeout = 3 * time.Second
)

func main() {
	durationFlag := flag.Duration("duration", 0, "start a countdown of this length")
	actionFlag := flag.String("action", "", "forward start, pause, reset or cancel to the running instance")
	configFlag := flag.String("config", "", "settings file (defaults to the user config dir)")
	flag.Parse()

	settings, settingsErr := loadSettings(*configFlag)
	logger := logging.NewLogger(
		logging.WithLevel(settings.LogLevel),
		logging.WithJSON(settings.LogJSON),
		logging.WithSource(settings.LogLevel == "debug"),
	)
	if settingsErr != nil {
		logger.Warn("using default settings", slog.Any("error", settingsErr))
	}

	guard, err := platform.AcquireSingleInstance(appName, logger)
	if err != nil {
		if errors.Is(err, platform.ErrAlreadyRunning) {
			if err := forward(*actionFlag, *durationFlag); err != nil {
				logger.Error("forward command", slog.Any("error", err))
				os.Exit(1)
			}
			return
		}
		logger.Error("single instance", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		_ = guard.Release()
	}()
	if *actionFlag != "" {
		logger.Error("no running instance to receive the command", slog.String("action", *actionFlag))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(logging.ContextWithLogger(context.Background(), logger), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(registry)
	if settings.MetricsAddress != "" {
		startMetricsServer(ctx, settings.MetricsAddress, registry, logger)
	}

	chime := sound.New(sound.Config{Enabled: settings.SoundEnabled, Volume: settings.Volume})
	if err := chime.Initialize(); err != nil {
		logger.Warn("completion sound unavailable", slog.Any("error", err))
	}
	defer chime.Close()

	fyneApp := app.NewWithID(appID)
	fyneApp.SetIcon(resources.AppIcon())
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		logger.Error("system tray unsupported on this platform")
		return
	}

	trayWindow := fyneApp.NewWindow(appName)
	trayWindow.SetContent(widget.NewLabel("ClockTimer is running in the system tray."))
	trayWindow.SetCloseIntercept(func() {
		trayWindow.Hide()
	})
	trayWindow.Hide()
	desktopApp.SetSystemTrayWindow(trayWindow)

	alert := overlay.New(fyneApp, overlay.Config{Opacity: 220, AutoHide: 30 * time.Second})

	manager := &sessions{
		ctx:      ctx,
		metrics:  recorder,
		sound:    chime,
		settings: settings,
	}

	var prefsWindow *preferences.Window
	trayManager := tray.New(desktopApp, tray.Callbacks{
		OnPreferences: func() {
			prefsWindow.Show()
		},
		OnStartIdle: func() {
			go startCountdown(ctx, manager, logger)
		},
		OnQuit: func() {
			fyneApp.Quit()
		},
		OnStateChange: func(state model.State) {
			desktopApp.SetSystemTrayIcon(resources.Icon(state))
		},
	}, logger)

	manager.display = trayManager
	manager.sources = []lifecycle.CommandSource{trayManager, guard}
	manager.listeners = []lifecycle.TickListener{trayManager, alert}
	guard.SetFallback(manager.submit)

	prefsWindow = preferences.New(fyneApp, settings,
		func(updated preferences.Settings) {
			manager.update(updated)
			trayManager.SetDuration(updated.Duration)
			chime.Update(sound.Config{Enabled: updated.SoundEnabled, Volume: updated.Volume})
			if err := chime.Initialize(); err != nil {
				logger.Warn("completion sound unavailable", slog.Any("error", err))
			}
			if err := saveSettings(*configFlag, updated); err != nil {
				logger.Error("save settings", slog.Any("error", err))
			}
		},
		func(preferences.Settings) {
			go startCountdown(ctx, manager, logger)
		},
	)

	desktopApp.SetSystemTrayIcon(resources.Icon(model.StateIdle))

	go func() {
		if err := guard.Serve(ctx); err != nil {
			logger.Error("command socket", slog.Any("error", err))
		}
	}()
	go func() {
		<-ctx.Done()
		fyne.Do(fyneApp.Quit)
	}()

	if *durationFlag > 0 {
		go func() {
			cmd := command.Command{Action: command.ActionStart, ConfiguredTime: durationFlag.Milliseconds()}
			if err := manager.submit(ctx, cmd); err != nil {
				logger.Error("start countdown", slog.Any("error", err))
			}
		}()
	}

	logger.Info("clocktimer started", slog.String("address", guard.Address()))
	fyneApp.Run()

	trayManager.Detach()
	stop()
	if err := manager.stop(); err != nil {
		logger.Error("stop session", slog.Any("error", err))
	}
	logger.Info("clocktimer stopped")
}

func startCountdown(ctx context.Context, manager *sessions, logger *slog.Logger) {
	if err := manager.startCountdown(ctx); err != nil {
		logger.Error("start countdown", slog.Any("error", err))
	}
}

// forward sends the flags of this invocation to the running instance.
func forward(action string, duration time.Duration) error {
	cmd := command.Command{Action: command.Action(action), ConfiguredTime: duration.Milliseconds()}
	if cmd.Action == command.ActionNone && duration > 0 {
		cmd.Action = command.ActionStart
	}
	if cmd.Action == command.ActionNone {
		return fmt.Errorf("%w: nothing to forward, use -action or -duration", platform.ErrAlreadyRunning)
	}
	if err := cmd.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
	defer cancel()
	return platform.SendCommand(ctx, appName, cmd)
}

func startMetricsServer(ctx context.Context, address string, registry *prometheus.Registry, logger *slog.Logger) {
	server, err := metrics.NewServer(address, registry)
	if err != nil {
		logger.Error("metrics server", slog.Any("error", err))
		return
	}
	go func() {
		if err := server.Run(ctx); err != nil {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()
	logger.Info("metrics enabled", slog.String("address", address))
}

func loadSettings(path string) (preferences.Settings, error) {
	if path != "" {
		return storage.LoadSettingsFile(path)
	}
	return storage.LoadSettings(appName)
}

func saveSettings(path string, settings preferences.Settings) error {
	if path != "" {
		return storage.SaveSettingsFile(path, settings)
	}
	return storage.SaveSettings(appName, settings)
}
