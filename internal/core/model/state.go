package model

// State represents the countdown state of a timer engine.
type State string

const (
	StateIdle       State = "idle"
	StateConfigured State = "configured"
	StateRunning    State = "running"
	StatePaused     State = "paused"
	StateFinished   State = "finished"
)

// Alive reports whether a countdown is in progress, running or paused.
func (state State) Alive() bool {
	return state == StateRunning || state == StatePaused
}

func (state State) String() string {
	return string(state)
}
