package model

import (
	"testing"
	"time"
)

func TestNewTimeDecomposition(t *testing.T) {
	tests := []struct {
		name      string
		remaining time.Duration
		want      Time
	}{
		{"zero", 0, Time{}},
		{"negative clamps", -5 * time.Second, Time{}},
		{"millis only", 250 * time.Millisecond, Time{TimeInMillis: 250, Millis: 250}},
		{
			"mixed",
			time.Hour + 2*time.Minute + 3*time.Second + 45*time.Millisecond,
			Time{TimeInMillis: 3_723_045, Hours: 1, Minutes: 2, Seconds: 3, Millis: 45},
		},
		{"sub-millisecond truncates", 1500 * time.Microsecond, Time{TimeInMillis: 1, Millis: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewTime(tt.remaining); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestTimeFormat(t *testing.T) {
	tests := []struct {
		millis     int64
		withMillis bool
		want       string
	}{
		{0, false, "00:00"},
		{5_000, false, "00:05"},
		{59_999, false, "00:59"},
		{59_999, true, "00:59.99"},
		{61_230, true, "01:01.23"},
		{3_600_000, false, "01:00:00"},
		{36_000_000 + 61_000, false, "10:01:01"},
	}

	for _, tt := range tests {
		if got := TimeFromMillis(tt.millis).Format(tt.withMillis); got != tt.want {
			t.Errorf("Format(%d, %v): expected %q, got %q", tt.millis, tt.withMillis, tt.want, got)
		}
	}
}

func TestTimeDurationRoundTrip(t *testing.T) {
	value := TimeFromMillis(12_345)
	if value.Duration() != 12_345*time.Millisecond {
		t.Errorf("unexpected duration %v", value.Duration())
	}
	if value.IsZero() {
		t.Error("expected non-zero value")
	}
}

func TestTimerSettingsNormalize(t *testing.T) {
	settings := TimerSettings{Duration: -time.Second, TickInterval: 5 * time.Second}.Normalize()
	if settings.Duration != 0 {
		t.Errorf("expected negative duration to clamp, got %v", settings.Duration)
	}
	if settings.TickInterval != DefaultTickInterval {
		t.Errorf("expected default tick interval, got %v", settings.TickInterval)
	}
	if settings.DisplayInterval != DefaultDisplayInterval {
		t.Errorf("expected default display interval, got %v", settings.DisplayInterval)
	}
}

func TestStateAlive(t *testing.T) {
	for _, state := range []State{StateRunning, StatePaused} {
		if !state.Alive() {
			t.Errorf("expected %s to be alive", state)
		}
	}
	for _, state := range []State{StateIdle, StateConfigured, StateFinished} {
		if state.Alive() {
			t.Errorf("expected %s not to be alive", state)
		}
	}
}
