package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"clocktimer/internal/logging"
	"clocktimer/internal/sound"
	"clocktimer/internal/ui/preferences"
)

const settingsFileName = "settings.yaml"

type yamlSettings struct {
	DurationSeconds   int     `yaml:"duration_seconds"`
	TickIntervalMs    int     `yaml:"tick_interval_ms"`
	DisplayIntervalMs int     `yaml:"display_interval_ms"`
	ShowMillis        bool    `yaml:"show_millis"`
	SoundEnabled      *bool   `yaml:"sound_enabled"`
	Volume            float64 `yaml:"volume"`
	LogLevel          string  `yaml:"log_level"`
	LogJSON           bool    `yaml:"log_json"`
	MetricsAddress    string  `yaml:"metrics_address"`
}

// LoadSettings reads user preferences from YAML.
// If the config file does not exist, default settings are returned.
func LoadSettings(appName string) (preferences.Settings, error) {
	configPath, err := ConfigPath(appName)
	if err != nil {
		return preferences.DefaultSettings(), err
	}
	return LoadSettingsFile(configPath)
}

// LoadSettingsFile reads user preferences from the file at configPath.
func LoadSettingsFile(configPath string) (preferences.Settings, error) {
	settings := preferences.DefaultSettings()

	rawData, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettings writes user preferences to YAML.
func SaveSettings(appName string, settings preferences.Settings) error {
	configPath, err := ConfigPath(appName)
	if err != nil {
		return err
	}
	return SaveSettingsFile(configPath, settings)
}

// SaveSettingsFile writes user preferences to the file at configPath.
func SaveSettingsFile(configPath string, settings preferences.Settings) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	soundEnabled := settings.SoundEnabled
	fileData := yamlSettings{
		DurationSeconds:   int(settings.Duration / time.Second),
		TickIntervalMs:    int(settings.TickInterval / time.Millisecond),
		DisplayIntervalMs: int(settings.DisplayInterval / time.Millisecond),
		ShowMillis:        settings.ShowMillis,
		SoundEnabled:      &soundEnabled,
		Volume:            settings.Volume,
		LogLevel:          settings.LogLevel,
		LogJSON:           settings.LogJSON,
		MetricsAddress:    settings.MetricsAddress,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(configPath, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

// ConfigPath returns the settings file location for appName.
func ConfigPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) {
	if fileData.DurationSeconds > 0 {
		settings.Duration = time.Duration(fileData.DurationSeconds) * time.Second
	}
	if fileData.TickIntervalMs > 0 && fileData.TickIntervalMs <= 1000 {
		settings.TickInterval = time.Duration(fileData.TickIntervalMs) * time.Millisecond
	}
	if fileData.DisplayIntervalMs > 0 {
		settings.DisplayInterval = time.Duration(fileData.DisplayIntervalMs) * time.Millisecond
	}
	if fileData.SoundEnabled != nil {
		settings.SoundEnabled = *fileData.SoundEnabled
	}
	if fileData.Volume >= sound.MinVolume && fileData.Volume <= sound.MaxVolume {
		settings.Volume = fileData.Volume
	}
	if logging.ValidLevel(fileData.LogLevel) {
		settings.LogLevel = fileData.LogLevel
	}

	settings.ShowMillis = fileData.ShowMillis
	settings.LogJSON = fileData.LogJSON
	settings.MetricsAddress = fileData.MetricsAddress
}
