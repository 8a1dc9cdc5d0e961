package model

import "time"

// TimerSettings contains runtime settings for one countdown session.
type TimerSettings struct {
	Duration        time.Duration
	TickInterval    time.Duration
	DisplayInterval time.Duration
}

// Normalize fills unset or out-of-range intervals with defaults.
func (settings TimerSettings) Normalize() TimerSettings {
	if settings.TickInterval <= 0 || settings.TickInterval > time.Second {
		settings.TickInterval = DefaultTickInterval
	}
	if settings.DisplayInterval <= 0 {
		settings.DisplayInterval = DefaultDisplayInterval
	}
	if settings.Duration < 0 {
		settings.Duration = 0
	}
	return settings
}

const (
	// DefaultTickInterval is the tick stream resolution.
	DefaultTickInterval = 100 * time.Millisecond
	// DefaultDisplayInterval is the display throttling window.
	DefaultDisplayInterval = time.Second
)
