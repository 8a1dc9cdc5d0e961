// Package throttle limits expensive display refreshes driven by the tick
// stream to one per interval, on the leading edge of each window.
package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"clocktimer/internal/core/clock"
	"clocktimer/internal/core/model"
	"clocktimer/internal/core/timer"
)

// DisplayUpdate is the throttled "update display now" event.
type DisplayUpdate struct {
	FormattedTime string
	Time          model.Time
	Status        model.State
}

// Display renders display updates. Implementations may block briefly.
type Display interface {
	UpdateDisplay(update DisplayUpdate) error
}

// DisplayFunc adapts a function to the Display interface.
type DisplayFunc func(update DisplayUpdate) error

// UpdateDisplay implements Display.
func (f DisplayFunc) UpdateDisplay(update DisplayUpdate) error {
	return f(update)
}

// Config contains runtime options for Throttler.
type Config struct {
	Interval   time.Duration
	WithMillis bool
	Clock      clock.Clock
	Logger     *slog.Logger
	// OnRefresh, if set, observes the outcome of every refresh.
	OnRefresh func(err error)
}

// Throttler forwards at most one display update per interval.
type Throttler struct {
	config  Config
	display Display

	mu     sync.Mutex
	latest model.Time
}

// New creates a Throttler writing to display.
func New(config Config, display Display) *Throttler {
	if config.Interval <= 0 {
		config.Interval = model.DefaultDisplayInterval
	}
	config.Clock = clock.OrSystem(config.Clock)
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Throttler{config: config, display: display}
}

// Latest returns the most recent tick seen, refreshed or not.
func (throttler *Throttler) Latest() model.Time {
	throttler.mu.Lock()
	defer throttler.mu.Unlock()
	return throttler.latest
}

// Run consumes events until ctx is done or events is closed.
//
// The first tick of a window refreshes the display immediately and opens a
// cool-down; ticks during the cool-down only update Latest. Refreshes run on
// a separate goroutine behind a one-slot, newest-wins handoff, so a slow
// display never stalls the reader.
func (throttler *Throttler) Run(ctx context.Context, events <-chan timer.Event) error {
	slot := make(chan DisplayUpdate, 1)
	defer close(slot)
	go throttler.refresh(ctx, slot)

	windowDone := make(chan struct{}, 1)
	var window clock.Timer
	defer func() {
		if window != nil {
			window.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-windowDone:
			window = nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Type != timer.EventTick {
				continue
			}

			select {
			case <-windowDone:
				window = nil
			default:
			}

			throttler.mu.Lock()
			throttler.latest = event.Time
			throttler.mu.Unlock()

			if window != nil {
				continue
			}
			offer(slot, DisplayUpdate{
				FormattedTime: event.Time.Format(throttler.config.WithMillis),
				Time:          event.Time,
				Status:        event.Status,
			})
			window = throttler.config.Clock.AfterFunc(throttler.config.Interval, func() {
				select {
				case windowDone <- struct{}{}:
				default:
				}
			})
		}
	}
}

// refresh applies handed-off updates. Refresh starts stay at least Interval
// apart even when the display is slower than the window: an update dequeued
// too soon after the previous start is dropped, and Latest still has it.
func (throttler *Throttler) refresh(ctx context.Context, slot <-chan DisplayUpdate) {
	var (
		lastStart time.Time
		refreshed bool
	)
	for update := range slot {
		if ctx.Err() != nil {
			return
		}
		now := throttler.config.Clock.Now()
		if refreshed && now.Sub(lastStart) < throttler.config.Interval {
			throttler.config.Logger.Debug("display update dropped",
				slog.String("time", update.FormattedTime),
				slog.Duration("since_last", now.Sub(lastStart)),
			)
			continue
		}
		lastStart, refreshed = now, true

		err := throttler.apply(update)
		if throttler.config.OnRefresh != nil {
			throttler.config.OnRefresh(err)
		}
		if err != nil {
			throttler.config.Logger.Warn("display update failed",
				slog.Any("error", err),
				slog.String("time", update.FormattedTime),
			)
		}
	}
}

func (throttler *Throttler) apply(update DisplayUpdate) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("display panic: %v\n%s", r, string(debug.Stack()))
		}
	}()
	return throttler.display.UpdateDisplay(update)
}

func offer(slot chan DisplayUpdate, update DisplayUpdate) {
	select {
	case slot <- update:
		return
	default:
	}
	select {
	case <-slot:
	default:
	}
	select {
	case slot <- update:
	default:
	}
}
