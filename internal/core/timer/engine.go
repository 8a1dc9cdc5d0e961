package timer

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"clocktimer/internal/core/clock"
	"clocktimer/internal/core/model"
)

var (
	// ErrInvalidDuration indicates a non-positive duration was configured.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrInvalidTransition indicates a command that is not valid in the current state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Config contains runtime options for Engine.
type Config struct {
	TickInterval time.Duration
	Clock        clock.Clock
	Logger       *slog.Logger
}

// Engine is a countdown state machine that produces a live tick stream.
//
// All state lives behind mu. Commands and tick application take the lock,
// so subscribers only ever see immutable Event snapshots.
type Engine struct {
	mu           sync.Mutex
	options      Config
	clock        clock.Clock
	logger       *slog.Logger
	state        model.State
	configured   time.Duration
	remaining    time.Duration
	runningSince time.Time
	subscribers  map[*Subscription]struct{}
	ticking      chan struct{}
	cleared      bool
}

// New creates an idle Engine with the provided options.
func New(options Config) *Engine {
	if options.TickInterval <= 0 {
		options.TickInterval = model.DefaultTickInterval
	}
	options.Clock = clock.OrSystem(options.Clock)
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	return &Engine{
		options:     options,
		clock:       options.Clock,
		logger:      options.Logger,
		state:       model.StateIdle,
		subscribers: make(map[*Subscription]struct{}),
	}
}

// Configure sets the countdown duration. While running, the new duration
// becomes the remainder immediately without interrupting the countdown.
func (engine *Engine) Configure(duration time.Duration) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.cleared {
		return
	}
	if duration <= 0 {
		engine.logger.Debug("configure ignored",
			slog.Any("error", ErrInvalidDuration),
			slog.Duration("duration", duration),
		)
		return
	}

	now := engine.clock.Now()
	engine.configured = duration
	engine.remaining = duration
	if engine.state == model.StateRunning {
		engine.runningSince = now
		return
	}
	engine.runningSince = time.Time{}
	engine.setStateLocked(model.StateConfigured, now)
}

// Start begins or resumes the countdown. Starting a running engine is a no-op.
func (engine *Engine) Start() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.cleared {
		return
	}

	switch engine.state {
	case model.StateRunning:
		return
	case model.StateConfigured, model.StatePaused:
	default:
		engine.rejectLocked("start")
		return
	}

	now := engine.clock.Now()
	if engine.remaining <= 0 {
		engine.finishLocked(now)
		return
	}
	engine.runningSince = now
	engine.setStateLocked(model.StateRunning, now)
	engine.emitLocked(Event{
		Type:   EventTick,
		Time:   model.NewTime(engine.remaining),
		Status: model.StateRunning,
		At:     now,
	})
	engine.startTickingLocked()
}

// Pause freezes the countdown, retaining the remainder.
func (engine *Engine) Pause() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.cleared {
		return
	}
	if engine.state != model.StateRunning {
		engine.rejectLocked("pause")
		return
	}

	now := engine.clock.Now()
	engine.remaining = engine.remainingLocked(now)
	engine.runningSince = time.Time{}
	engine.stopTickingLocked()
	engine.setStateLocked(model.StatePaused, now)
}

// Reset cancels any countdown and returns the engine to idle with no
// remainder. A fresh Configure is required before the next Start.
func (engine *Engine) Reset() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.cleared {
		return
	}

	engine.stopTickingLocked()
	engine.configured = 0
	engine.remaining = 0
	engine.runningSince = time.Time{}
	if engine.state == model.StateIdle {
		return
	}
	engine.setStateLocked(model.StateIdle, engine.clock.Now())
}

// Clear stops tick production permanently and closes every subscription.
// The engine is unusable afterwards; further commands are ignored.
func (engine *Engine) Clear() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.cleared {
		return
	}

	engine.cleared = true
	engine.stopTickingLocked()
	for subscription := range engine.subscribers {
		subscription.end()
	}
	engine.subscribers = nil
}

// Subscribe opens a live view of the countdown. onFinished, when not nil, is
// invoked once per countdown that reaches zero, after the zero tick has been
// delivered on the subscription.
func (engine *Engine) Subscribe(onFinished func()) *Subscription {
	subscription := newSubscription(engine, onFinished)

	engine.mu.Lock()
	if engine.cleared {
		subscription.end()
	} else {
		engine.subscribers[subscription] = struct{}{}
	}
	engine.mu.Unlock()

	go subscription.pump()
	return subscription
}

// State returns the current state.
func (engine *Engine) State() model.State {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.state
}

// Remaining returns a snapshot of the remaining time.
func (engine *Engine) Remaining() model.Time {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return model.NewTime(engine.remainingLocked(engine.clock.Now()))
}

// Configured returns the duration set by the last Configure.
func (engine *Engine) Configured() time.Duration {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.configured
}

// Cleared reports whether Clear has been called.
func (engine *Engine) Cleared() bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.cleared
}

func (engine *Engine) unsubscribe(subscription *Subscription) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	delete(engine.subscribers, subscription)
}

func (engine *Engine) startTickingLocked() {
	if engine.ticking != nil {
		return
	}
	stop := make(chan struct{})
	engine.ticking = stop
	ticker := engine.clock.NewTicker(engine.options.TickInterval)
	go engine.run(stop, ticker)
}

func (engine *Engine) stopTickingLocked() {
	if engine.ticking == nil {
		return
	}
	close(engine.ticking)
	engine.ticking = nil
}

func (engine *Engine) run(stop chan struct{}, ticker clock.Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if !engine.tick(stop) {
				return
			}
		}
	}
}

// tick applies one wakeup of the loop owning stop. It reports whether the
// loop should keep running.
func (engine *Engine) tick(stop chan struct{}) bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.ticking != stop || engine.state != model.StateRunning {
		return false
	}

	now := engine.clock.Now()
	remaining := engine.remainingLocked(now)
	if remaining > 0 {
		engine.emitLocked(Event{
			Type:   EventTick,
			Time:   model.NewTime(remaining),
			Status: model.StateRunning,
			At:     now,
		})
		return true
	}

	engine.finishLocked(now)
	return false
}

func (engine *Engine) finishLocked(now time.Time) {
	engine.stopTickingLocked()
	engine.remaining = 0
	engine.runningSince = time.Time{}
	engine.state = model.StateFinished

	engine.emitLocked(Event{
		Type:   EventTick,
		Time:   model.Time{},
		Status: model.StateFinished,
		At:     now,
	})
	engine.emitLocked(Event{
		Type:   EventFinished,
		Status: model.StateFinished,
		At:     now,
	})
}

// remainingLocked derives the remainder from elapsed clock time since the
// last transition to running, never from a per-wakeup decrement.
func (engine *Engine) remainingLocked(now time.Time) time.Duration {
	if engine.state != model.StateRunning || engine.runningSince.IsZero() {
		return engine.remaining
	}
	remaining := engine.remaining - now.Sub(engine.runningSince)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (engine *Engine) setStateLocked(state model.State, now time.Time) {
	engine.state = state
	engine.emitLocked(Event{
		Type:   EventStateChange,
		Time:   model.NewTime(engine.remainingLocked(now)),
		Status: state,
		At:     now,
	})
}

func (engine *Engine) rejectLocked(command string) {
	engine.logger.Debug("command ignored",
		slog.Any("error", ErrInvalidTransition),
		slog.String("command", command),
		slog.String("state", string(engine.state)),
	)
}

func (engine *Engine) emitLocked(event Event) {
	for subscription := range engine.subscribers {
		subscription.push(event)
	}
}
