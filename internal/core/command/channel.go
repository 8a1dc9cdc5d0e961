package command

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed indicates the channel no longer accepts commands.
var ErrClosed = errors.New("command channel closed")

const defaultBuffer = 16

// Target is the engine surface commands are applied to.
type Target interface {
	Configure(duration time.Duration)
	Start()
	Pause()
	Reset()
	Clear()
}

// Channel serializes commands from any goroutine into a single consumer
// that applies them one at a time, in arrival order.
type Channel struct {
	queue     chan Command
	closed    chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// NewChannel creates a Channel buffering up to buffer pending commands.
func NewChannel(buffer int, logger *slog.Logger) *Channel {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		queue:  make(chan Command, buffer),
		closed: make(chan struct{}),
		logger: logger,
	}
}

// Submit enqueues a command, blocking while the buffer is full.
func (channel *Channel) Submit(ctx context.Context, command Command) error {
	select {
	case <-channel.closed:
		return ErrClosed
	default:
	}

	select {
	case channel.queue <- command:
		return nil
	case <-channel.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting commands and ends Run. Pending commands are dropped.
func (channel *Channel) Close() {
	channel.closeOnce.Do(func() {
		close(channel.closed)
	})
}

// Run applies commands to target until ctx is done, the channel is closed,
// or a cancel command arrives. On cancel the target is reset and cleared,
// then onCancel is called.
func (channel *Channel) Run(ctx context.Context, target Target, onCancel func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-channel.closed:
			return nil
		case command := <-channel.queue:
			if ctx.Err() != nil {
				return nil
			}
			if !channel.apply(target, command) {
				channel.Close()
				if onCancel != nil {
					onCancel()
				}
				return nil
			}
		}
	}
}

// apply runs one command and reports whether the consumer should continue.
//
// A reset is applied before the command's duration and start/pause after
// it, so {reset, 5000} leaves the target configured and {start, 5000}
// leaves it running.
func (channel *Channel) apply(target Target, command Command) bool {
	if err := command.validateAction(); err != nil {
		channel.logger.Warn("command action ignored", slog.Any("error", err))
		command.Action = ActionNone
	}
	if err := command.validateTime(); err != nil {
		channel.logger.Warn("command time ignored", slog.Any("error", err))
		command.ConfiguredTime = 0
	}
	channel.logger.Debug("apply command",
		slog.String("action", string(command.Action)),
		slog.Int64("configured_time", command.ConfiguredTime),
	)

	switch command.Action {
	case ActionCancel:
		target.Reset()
		target.Clear()
		return false
	case ActionReset:
		target.Reset()
	}

	if command.ConfiguredTime > 0 {
		target.Configure(command.Duration())
	}

	switch command.Action {
	case ActionStart:
		target.Start()
	case ActionPause:
		target.Pause()
	}
	return true
}
