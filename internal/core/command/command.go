package command

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gopkg.in/yaml.v3"
)

// Action names an external timer command.
type Action string

const (
	ActionNone   Action = ""
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionReset  Action = "reset"
	ActionCancel Action = "cancel"
)

var (
	// ErrUnknownAction indicates a command document with an unsupported action.
	ErrUnknownAction = errors.New("unknown action")
	// ErrTimeOutOfRange indicates a configuredTime too large for a time.Duration.
	ErrTimeOutOfRange = errors.New("configured time out of range")
)

// MaxConfiguredTime is the largest configuredTime, in milliseconds, that
// converts to a time.Duration without overflow.
const MaxConfiguredTime = math.MaxInt64 / int64(time.Millisecond)

// Command is one inbound request. ConfiguredTime is in milliseconds; zero
// means the command carries no new duration.
type Command struct {
	Action         Action `yaml:"action,omitempty" json:"action,omitempty"`
	ConfiguredTime int64  `yaml:"configuredTime,omitempty" json:"configuredTime,omitempty"`
}

// Start returns a start command.
func Start() Command { return Command{Action: ActionStart} }

// Pause returns a pause command.
func Pause() Command { return Command{Action: ActionPause} }

// Reset returns a reset command.
func Reset() Command { return Command{Action: ActionReset} }

// Cancel returns a cancel command.
func Cancel() Command { return Command{Action: ActionCancel} }

// Configure returns a command carrying only a new duration.
func Configure(duration time.Duration) Command {
	return Command{ConfiguredTime: duration.Milliseconds()}
}

// Duration returns ConfiguredTime as a time.Duration. Out of range values
// yield zero.
func (command Command) Duration() time.Duration {
	if command.validateTime() != nil {
		return 0
	}
	return time.Duration(command.ConfiguredTime) * time.Millisecond
}

// Validate reports whether the action is supported and the configured time
// fits a time.Duration.
func (command Command) Validate() error {
	if err := command.validateAction(); err != nil {
		return err
	}
	return command.validateTime()
}

func (command Command) validateAction() error {
	switch command.Action {
	case ActionNone, ActionStart, ActionPause, ActionReset, ActionCancel:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, command.Action)
}

func (command Command) validateTime() error {
	if command.ConfiguredTime > MaxConfiguredTime {
		return fmt.Errorf("%w: %d ms", ErrTimeOutOfRange, command.ConfiguredTime)
	}
	return nil
}

// Decode parses a command document. JSON documents are accepted as well as
// YAML, since YAML is a superset of JSON.
func Decode(data []byte) (Command, error) {
	var command Command
	if err := yaml.Unmarshal(data, &command); err != nil {
		return Command{}, fmt.Errorf("parse command: %w", err)
	}
	if err := command.Validate(); err != nil {
		return command, err
	}
	return command, nil
}

// Encode renders a command as a single-line flow document.
func Encode(command Command) ([]byte, error) {
	node := &yaml.Node{}
	if err := node.Encode(command); err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}
	node.Style = yaml.FlowStyle
	data, err := yaml.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}
	return data, nil
}
