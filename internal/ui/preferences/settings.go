package preferences

import (
	"time"

	"clocktimer/internal/core/model"
)

// Settings defines editable user preferences.
type Settings struct {
	Duration        time.Duration
	TickInterval    time.Duration
	DisplayInterval time.Duration
	ShowMillis      bool

	SoundEnabled bool
	Volume       float64

	LogLevel       string
	LogJSON        bool
	MetricsAddress string
}

// DefaultSettings returns default settings for ClockTimer.
func DefaultSettings() Settings {
	return Settings{
		Duration:        5 * time.Minute,
		TickInterval:    model.DefaultTickInterval,
		DisplayInterval: model.DefaultDisplayInterval,
		SoundEnabled:    true,
		Volume:          0,
		LogLevel:        "info",
	}
}

// TimerSettings converts settings to the session settings.
func (settings Settings) TimerSettings() model.TimerSettings {
	return model.TimerSettings{
		Duration:        settings.Duration,
		TickInterval:    settings.TickInterval,
		DisplayInterval: settings.DisplayInterval,
	}.Normalize()
}
