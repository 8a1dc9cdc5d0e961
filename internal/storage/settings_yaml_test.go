package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clocktimer/internal/ui/preferences"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	settings, err := LoadSettingsFile(filepath.Join(t.TempDir(), "missing", settingsFileName))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings != preferences.DefaultSettings() {
		t.Errorf("expected defaults, got %+v", settings)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clocktimer", settingsFileName)
	saved := preferences.Settings{
		Duration:        90 * time.Second,
		TickInterval:    50 * time.Millisecond,
		DisplayInterval: 500 * time.Millisecond,
		ShowMillis:      true,
		SoundEnabled:    false,
		Volume:          -2,
		LogLevel:        "debug",
		LogJSON:         true,
		MetricsAddress:  "127.0.0.1:9464",
	}

	if err := SaveSettingsFile(path, saved); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadSettingsFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != saved {
		t.Errorf("expected %+v, got %+v", saved, loaded)
	}
}

func TestOutOfRangeValuesKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), settingsFileName)
	data := []byte(`duration_seconds: -5
tick_interval_ms: 5000
display_interval_ms: 0
volume: 40
log_level: chatty
metrics_address: ":9100"
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	settings, err := LoadSettingsFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defaults := preferences.DefaultSettings()
	if settings.Duration != defaults.Duration {
		t.Errorf("expected default duration, got %v", settings.Duration)
	}
	if settings.TickInterval != defaults.TickInterval {
		t.Errorf("expected default tick interval, got %v", settings.TickInterval)
	}
	if settings.DisplayInterval != defaults.DisplayInterval {
		t.Errorf("expected default display interval, got %v", settings.DisplayInterval)
	}
	if settings.Volume != defaults.Volume {
		t.Errorf("expected default volume, got %v", settings.Volume)
	}
	if settings.LogLevel != defaults.LogLevel {
		t.Errorf("expected default log level, got %q", settings.LogLevel)
	}
	if !settings.SoundEnabled {
		t.Error("expected sound to stay enabled when unset")
	}
	if settings.MetricsAddress != ":9100" {
		t.Errorf("expected metrics address, got %q", settings.MetricsAddress)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), settingsFileName)
	if err := os.WriteFile(path, []byte("duration_seconds: [1, 2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	settings, err := LoadSettingsFile(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if settings != preferences.DefaultSettings() {
		t.Errorf("expected defaults alongside error, got %+v", settings)
	}
}
