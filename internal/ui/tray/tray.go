// Package tray shows the countdown in the system tray and turns menu
// actions into timer commands.
package tray

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"clocktimer/internal/core/command"
	"clocktimer/internal/core/model"
	"clocktimer/internal/core/throttle"
	"clocktimer/internal/core/timer"
	"clocktimer/internal/lifecycle"
)

const submitTimeout = 200 * time.Millisecond

// Callbacks defines tray action handlers that are not timer commands.
type Callbacks struct {
	OnPreferences func()
	// OnStartIdle starts a countdown when Start is chosen with nothing to resume.
	OnStartIdle func()
	OnQuit      func()
	// OnStateChange observes state changes, for example to swap the icon.
	OnStateChange func(model.State)
}

// Manager handles system tray state. It is the status display, a command
// source and a tick listener for the current session.
type Manager struct {
	app       desktop.App
	callbacks Callbacks
	logger    *slog.Logger
	run       func(func())
	detached  atomic.Bool

	mu     sync.Mutex
	submit lifecycle.SubmitFunc

	statusItem *fyne.MenuItem
	startItem  *fyne.MenuItem
	pauseItem  *fyne.MenuItem
	resetItem  *fyne.MenuItem
	cancelItem *fyne.MenuItem
	timeLabel  string
	state      model.State
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	manager := &Manager{
		app:       app,
		callbacks: callbacks,
		logger:    logger,
		run:       fyne.Do,
		state:     model.StateIdle,
	}

	manager.statusItem = fyne.NewMenuItem("", nil)
	manager.statusItem.Disabled = true
	manager.startItem = fyne.NewMenuItem("Start", manager.handleStart)
	manager.pauseItem = fyne.NewMenuItem("Pause", func() { manager.send(command.Pause()) })
	manager.resetItem = fyne.NewMenuItem("Reset", func() { manager.send(command.Reset()) })
	manager.cancelItem = fyne.NewMenuItem("Cancel", func() { manager.send(command.Cancel()) })

	manager.refreshItems()
	manager.refreshMenu()
	return manager
}

// Register implements lifecycle.CommandSource.
func (manager *Manager) Register(submit lifecycle.SubmitFunc) error {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.submit = submit
	return nil
}

// Unregister implements lifecycle.CommandSource.
func (manager *Manager) Unregister() error {
	manager.mu.Lock()
	manager.submit = nil
	manager.mu.Unlock()

	manager.dispatch(func() {
		manager.state = model.StateIdle
		manager.timeLabel = ""
		manager.refreshItems()
		manager.refreshMenu()
	})
	return nil
}

// UpdateDisplay implements throttle.Display.
func (manager *Manager) UpdateDisplay(update throttle.DisplayUpdate) error {
	manager.dispatch(func() {
		manager.timeLabel = update.FormattedTime
		manager.refreshItems()
		manager.refreshMenu()
	})
	return nil
}

// OnTick implements lifecycle.TickListener. Only state changes and the
// finish touch the menu; the time label is driven by the throttled display
// updates.
func (manager *Manager) OnTick(event timer.Event) {
	if event.Type == timer.EventTick {
		return
	}
	manager.dispatch(func() {
		manager.state = event.Status
		switch event.Status {
		case model.StateConfigured, model.StatePaused, model.StateFinished:
			manager.timeLabel = event.Time.Format(false)
		}
		manager.refreshItems()
		manager.refreshMenu()
		if manager.callbacks.OnStateChange != nil {
			manager.callbacks.OnStateChange(event.Status)
		}
	})
}

// Detach stops menu updates; later display and state events are dropped.
// Call it once the UI loop has exited.
func (manager *Manager) Detach() {
	manager.detached.Store(true)
}

func (manager *Manager) dispatch(f func()) {
	if manager.detached.Load() {
		return
	}
	manager.run(f)
}

// SetDuration submits a new duration to the running session, if any.
func (manager *Manager) SetDuration(duration time.Duration) bool {
	return manager.send(command.Configure(duration))
}

// handleStart resumes a configured or paused countdown; from idle it asks
// for a fresh countdown of the preferred duration instead.
func (manager *Manager) handleStart() {
	if manager.state != model.StateIdle && manager.send(command.Start()) {
		return
	}
	if manager.callbacks.OnStartIdle != nil {
		manager.callbacks.OnStartIdle()
	}
}

// send reports whether a session accepted the command.
func (manager *Manager) send(cmd command.Command) bool {
	manager.mu.Lock()
	submit := manager.submit
	manager.mu.Unlock()
	if submit == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := submit(ctx, cmd); err != nil {
		manager.logger.Warn("tray command dropped",
			slog.String("action", string(cmd.Action)),
			slog.Any("error", err),
		)
		return false
	}
	return true
}

func (manager *Manager) statusText() string {
	if manager.timeLabel == "" {
		return fmt.Sprintf("Status: %s", manager.state)
	}
	return fmt.Sprintf("Status: %s %s", manager.state, manager.timeLabel)
}

func (manager *Manager) refreshItems() {
	manager.statusItem.Label = manager.statusText()
	manager.startItem.Disabled = manager.state == model.StateRunning
	manager.pauseItem.Disabled = manager.state != model.StateRunning
	manager.resetItem.Disabled = manager.state == model.StateIdle
}

func (manager *Manager) refreshMenu() {
	if manager.app == nil {
		return
	}
	manager.app.SetSystemTrayMenu(fyne.NewMenu("ClockTimer",
		manager.statusItem,
		manager.startItem,
		manager.pauseItem,
		manager.resetItem,
		manager.cancelItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Preferences", func() {
			if manager.callbacks.OnPreferences != nil {
				manager.callbacks.OnPreferences()
			}
		}),
		fyne.NewMenuItem("Quit", func() {
			if manager.callbacks.OnQuit != nil {
				manager.callbacks.OnQuit()
			}
		}),
	))
}
