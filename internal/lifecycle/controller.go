// Package lifecycle owns one countdown session: the engine, the workers
// consuming its tick stream, and the command sources feeding it.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"clocktimer/internal/core/command"
	"clocktimer/internal/core/throttle"
	"clocktimer/internal/core/timer"
	"clocktimer/internal/metrics"
)

// ErrStopped indicates the controller has been torn down.
var ErrStopped = errors.New("controller stopped")

// Sound plays the completion side effect.
type Sound interface {
	Play() error
}

// TickListener receives every tick and state change of the session.
type TickListener interface {
	OnTick(event timer.Event)
}

// TickListenerFunc adapts a function to TickListener.
type TickListenerFunc func(event timer.Event)

// OnTick implements TickListener.
func (f TickListenerFunc) OnTick(event timer.Event) {
	f(event)
}

// SubmitFunc forwards a command into a session.
type SubmitFunc func(ctx context.Context, cmd command.Command) error

// CommandSource is an external producer of commands, such as a menu or a
// local socket. Unregister must tolerate being called after a failed Register.
type CommandSource interface {
	Register(submit SubmitFunc) error
	Unregister() error
}

// Options configures a Controller.
type Options struct {
	Engine        timer.Config
	Throttle      throttle.Config
	Display       throttle.Display
	Sound         Sound
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	CommandBuffer int
}

// Controller runs a single countdown session from Start until Stop.
type Controller struct {
	options  Options
	logger   *slog.Logger
	session  string
	engine   *timer.Engine
	commands *command.Channel

	mu            sync.Mutex
	started       bool
	stopped       bool
	sources       []CommandSource
	registered    []CommandSource
	listeners     []TickListener
	subscriptions []*timer.Subscription
	cancel        context.CancelFunc
	group         *errgroup.Group

	stopOnce sync.Once
	stopErr  error
	done     chan struct{}
}

// New creates a Controller with a fresh engine and session id.
func New(options Options) *Controller {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	session := uuid.NewString()
	logger := options.Logger.With(slog.String("session", session))

	if options.Engine.Logger == nil {
		options.Engine.Logger = logger
	}
	if options.Throttle.Logger == nil {
		options.Throttle.Logger = logger
	}

	return &Controller{
		options:  options,
		logger:   logger,
		session:  session,
		engine:   timer.New(options.Engine),
		commands: command.NewChannel(options.CommandBuffer, logger),
		done:     make(chan struct{}),
	}
}

// Session returns the session id used in log records.
func (controller *Controller) Session() string {
	return controller.session
}

// Engine returns the session engine.
func (controller *Controller) Engine() *timer.Engine {
	return controller.engine
}

// Done is closed once the session has been torn down.
func (controller *Controller) Done() <-chan struct{} {
	return controller.done
}

// AddListener registers a tick listener. Listeners added after Start are
// not attached.
func (controller *Controller) AddListener(listener TickListener) {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	controller.listeners = append(controller.listeners, listener)
}

// AddSource registers a command source. Sources added after Start are
// registered immediately.
func (controller *Controller) AddSource(source CommandSource) error {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	if controller.stopped {
		return ErrStopped
	}
	controller.sources = append(controller.sources, source)
	if controller.started {
		controller.registerLocked(source)
	}
	return nil
}

// Start begins the session. When initial is positive a start command carrying
// it is queued before any source is registered. Calling Start again is a no-op.
func (controller *Controller) Start(ctx context.Context, initial time.Duration) error {
	controller.mu.Lock()
	if controller.stopped {
		controller.mu.Unlock()
		return ErrStopped
	}
	if controller.started {
		controller.mu.Unlock()
		controller.logger.Debug("session already started")
		return nil
	}
	controller.started = true

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	controller.cancel = cancel
	controller.group = group

	ticks := controller.engine.Subscribe(controller.onFinished)
	controller.subscriptions = append(controller.subscriptions, ticks)
	listeners := append([]TickListener(nil), controller.listeners...)
	controller.goSafe(groupCtx, func(ctx context.Context) error {
		return controller.consumeTicks(ctx, ticks, listeners)
	})

	if controller.options.Display != nil {
		display := controller.engine.Subscribe(nil)
		controller.subscriptions = append(controller.subscriptions, display)
		throttler := throttle.New(controller.throttleConfig(), controller.options.Display)
		controller.goSafe(groupCtx, func(ctx context.Context) error {
			return throttler.Run(ctx, display.C())
		})
	}

	controller.goSafe(groupCtx, func(ctx context.Context) error {
		return controller.commands.Run(ctx, controller.engine, func() {
			controller.logger.Info("session cancelled")
			go controller.Stop()
		})
	})

	// The initial countdown is queued ahead of anything the sources send, so
	// it is ordered like every other command.
	var startErr error
	if initial > 0 {
		if err := controller.commands.Submit(ctx, initialCommand(initial)); err != nil {
			startErr = fmt.Errorf("queue initial countdown: %w", err)
		}
	}

	for _, source := range controller.sources {
		controller.registerLocked(source)
	}
	controller.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			controller.logger.Debug("parent context done", slog.Any("error", ctx.Err()))
			_ = controller.Stop()
		case <-controller.done:
		}
	}()

	controller.options.Metrics.SessionStarted()
	controller.logger.Info("session started", slog.Duration("initial", initial))
	return startErr
}

func initialCommand(initial time.Duration) command.Command {
	millis := initial.Milliseconds()
	if millis == 0 {
		millis = 1
	}
	return command.Command{Action: command.ActionStart, ConfiguredTime: millis}
}

// Submit queues a command for the session.
func (controller *Controller) Submit(ctx context.Context, cmd command.Command) error {
	if err := controller.commands.Submit(ctx, cmd); err != nil {
		if errors.Is(err, command.ErrClosed) {
			return fmt.Errorf("%w: %w", ErrStopped, err)
		}
		return err
	}
	controller.options.Metrics.CommandSubmitted(string(cmd.Action))
	return nil
}

// Stop tears the session down: command sources are unregistered, workers are
// cancelled and awaited, then the engine is cleared. Every step runs even if
// an earlier one fails. Stop is idempotent and returns the first call's error.
func (controller *Controller) Stop() error {
	controller.stopOnce.Do(func() {
		controller.stopErr = controller.teardown()
		close(controller.done)
	})
	return controller.stopErr
}

func (controller *Controller) teardown() error {
	controller.mu.Lock()
	controller.stopped = true
	started := controller.started
	registered := controller.registered
	controller.registered = nil
	cancel := controller.cancel
	group := controller.group
	subscriptions := controller.subscriptions
	controller.subscriptions = nil
	controller.mu.Unlock()

	var result *multierror.Error

	for i := len(registered) - 1; i >= 0; i-- {
		if err := unregister(registered[i]); err != nil {
			result = multierror.Append(result, fmt.Errorf("unregister command source: %w", err))
		}
	}

	controller.commands.Close()
	if cancel != nil {
		cancel()
	}
	if group != nil {
		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			result = multierror.Append(result, fmt.Errorf("session worker: %w", err))
		}
	}
	for _, subscription := range subscriptions {
		subscription.Close()
	}
	controller.engine.Clear()

	if started {
		controller.options.Metrics.SessionEnded()
	}

	err := result.ErrorOrNil()
	if err != nil {
		controller.logger.Error("session teardown", slog.Any("error", err))
	} else {
		controller.logger.Info("session stopped")
	}
	return err
}

// onFinished runs on the tick subscription before the finished event is
// delivered; the reaction happens on its own goroutine so Stop can wait for
// the session workers.
func (controller *Controller) onFinished() {
	controller.options.Metrics.Completed()
	go controller.finish()
}

func (controller *Controller) finish() {
	controller.logger.Info("countdown finished")
	controller.engine.Reset()

	if controller.options.Sound != nil {
		if err := play(controller.options.Sound); err != nil {
			controller.logger.Warn("completion sound failed", slog.Any("error", err))
		}
	}
	_ = controller.Stop()
}

func (controller *Controller) consumeTicks(ctx context.Context, subscription *timer.Subscription, listeners []TickListener) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-subscription.C():
			if !ok {
				return nil
			}
			controller.options.Metrics.OnTick(event)
			for _, listener := range listeners {
				controller.notify(listener, event)
			}
		}
	}
}

func (controller *Controller) notify(listener TickListener, event timer.Event) {
	defer func() {
		if r := recover(); r != nil {
			controller.logger.Warn("tick listener panic",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	listener.OnTick(event)
}

func (controller *Controller) throttleConfig() throttle.Config {
	config := controller.options.Throttle
	onRefresh := config.OnRefresh
	recorder := controller.options.Metrics
	config.OnRefresh = func(err error) {
		recorder.DisplayUpdated(err)
		if onRefresh != nil {
			onRefresh(err)
		}
	}
	return config
}

func (controller *Controller) registerLocked(source CommandSource) {
	if err := register(source, controller.Submit); err != nil {
		controller.logger.Warn("command source not registered", slog.Any("error", err))
		return
	}
	controller.registered = append(controller.registered, source)
}

// goSafe runs fn in the session group, turning panics into errors.
func (controller *Controller) goSafe(ctx context.Context, fn func(ctx context.Context) error) {
	controller.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				controller.logger.Error("session worker panic",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn(ctx)
	})
}

func register(source CommandSource, submit SubmitFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("register panic: %v", r)
		}
	}()
	return source.Register(submit)
}

func unregister(source CommandSource) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unregister panic: %v", r)
		}
	}()
	return source.Unregister()
}

func play(sound Sound) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sound panic: %v", r)
		}
	}()
	return sound.Play()
}
