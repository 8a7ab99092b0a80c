package panicctl

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings - параметры CLI тревожной кнопки
type Settings struct {
	ServerURL    string        `yaml:"server_url"`
	APIKey       string        `yaml:"api_key"`
	ReporterID   string        `yaml:"reporter_id"`
	ArmingWindow time.Duration `yaml:"arming_window"`
	Timeout      time.Duration `yaml:"timeout"`
	// Координаты необязательны; без них тревога уходит с пустым местоположением
	Latitude        *float64 `yaml:"latitude"`
	Longitude       *float64 `yaml:"longitude"`
	Address         string   `yaml:"address"`
	EmergencyNumber string   `yaml:"emergency_number"`
	LogLevel        string   `yaml:"log_level"`
}

const (
	DefaultSettingsFilename = "panicctl-settings.yaml"
	DefaultArmingWindow     = 3 * time.Second
	DefaultTimeout          = 10 * time.Second
	DefaultEmergencyNumber  = "112"
)

var (
	errServerURLRequired  = errors.New("server_url must be provided")
	errReporterIDRequired = errors.New("reporter_id must be provided")
	errPartialLocation    = errors.New("latitude and longitude must be set together")
)

// Load читает настройки из YAML-файла и проверяет их
func Load(path string) (*Settings, error) {
	if path == "" {
		path = DefaultSettingsFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var settings Settings
	if err := yaml.Unmarshal(contents, &settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate проверяет обязательные поля и подставляет значения по умолчанию
func Validate(settings *Settings) error {
	if settings.ServerURL == "" {
		return errServerURLRequired
	}
	if u, err := url.ParseRequestURI(settings.ServerURL); err != nil || u.Host == "" {
		return fmt.Errorf("invalid server_url %q", settings.ServerURL)
	}
	if settings.ReporterID == "" {
		return errReporterIDRequired
	}

	if (settings.Latitude == nil) != (settings.Longitude == nil) {
		return errPartialLocation
	}
	if settings.Latitude != nil {
		if *settings.Latitude < -90 || *settings.Latitude > 90 {
			return fmt.Errorf("latitude %v out of range", *settings.Latitude)
		}
		if *settings.Longitude < -180 || *settings.Longitude > 180 {
			return fmt.Errorf("longitude %v out of range", *settings.Longitude)
		}
	}

	if settings.ArmingWindow <= 0 {
		settings.ArmingWindow = DefaultArmingWindow
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	if settings.EmergencyNumber == "" {
		settings.EmergencyNumber = DefaultEmergencyNumber
	}
	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}
	return nil
}
