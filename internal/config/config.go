// Package config loads server configuration from YAML with defaults for
// every field.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Server holds all configuration for the game server.
type Server struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// Sessions
	SessionTimeoutSec int `yaml:"session_timeout_sec"`
	TimeWheelSlots    int `yaml:"time_wheel_slots"`
	TimeWheelTickMS   int `yaml:"time_wheel_tick_ms"`
	MaxPendingWrites  int `yaml:"max_pending_writes"`

	// Lobby
	LobbySnapshotSize int `yaml:"lobby_snapshot_size"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// SessionTimeout returns the idle timeout as a duration.
func (s Server) SessionTimeout() time.Duration {
	return time.Duration(s.SessionTimeoutSec) * time.Second
}

// TimeWheelTick returns the wheel tick as a duration.
func (s Server) TimeWheelTick() time.Duration {
	return time.Duration(s.TimeWheelTickMS) * time.Millisecond
}

// Default returns the server config with sensible defaults.
func Default() Server {
	return Server{
		BindAddress:       "0.0.0.0",
		Port:              8080,
		SessionTimeoutSec: 30,
		TimeWheelSlots:    60,
		TimeWheelTickMS:   1000,
		MaxPendingWrites:  64,
		LobbySnapshotSize: 10,
		LogLevel:          "info",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "gomoku",
			Password: "gomoku",
			DBName:   "gomoku",
			SSLMode:  "disable",
		},
	}
}

// Load reads server config from a YAML file, overlaying the defaults.
// A missing file returns the defaults.
func Load(path string) (Server, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
