// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Bridge transports.
const (
	TransportGRPC      = "grpc"
	TransportWebSocket = "websocket"
)

// Config holds all application configuration.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	FrontendURL string `env:"FRONTEND_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Bridge  BridgeConfig
	Session SessionConfig

	MetaDir string `env:"META_DIR" envDefault:"./data"`
}

// BridgeConfig selects and tunes the transport to the host.
type BridgeConfig struct {
	Transport      string        `env:"BRIDGE_TRANSPORT" envDefault:"grpc"`
	Addr           string        `env:"BRIDGE_ADDR" envDefault:"localhost:50051"`
	DialInterval   time.Duration `env:"BRIDGE_DIAL_INTERVAL" envDefault:"1s"`
	RequestTimeout time.Duration `env:"BRIDGE_REQUEST_TIMEOUT" envDefault:"0s"`
}

// SessionConfig controls where the login session is persisted.
type SessionConfig struct {
	DBPath string        `env:"SESSION_DB_PATH" envDefault:"./data/session.db"`
	TTL    time.Duration `env:"SESSION_TTL" envDefault:"12h"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return loadFrom(env.ToMap(os.Environ()))
}

func loadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.Bridge.Transport {
	case TransportGRPC, TransportWebSocket:
	default:
		return fmt.Errorf("BRIDGE_TRANSPORT must be %q or %q, got %q", TransportGRPC, TransportWebSocket, c.Bridge.Transport)
	}
	if c.Bridge.Addr == "" {
		return fmt.Errorf("BRIDGE_ADDR cannot be empty")
	}
	if c.Bridge.Transport == TransportWebSocket &&
		!strings.HasPrefix(c.Bridge.Addr, "ws://") && !strings.HasPrefix(c.Bridge.Addr, "wss://") {
		return fmt.Errorf("BRIDGE_ADDR must be a ws:// or wss:// URL for the websocket transport")
	}
	if c.Bridge.DialInterval <= 0 {
		return fmt.Errorf("BRIDGE_DIAL_INTERVAL must be > 0")
	}
	if c.Bridge.RequestTimeout < 0 {
		return fmt.Errorf("BRIDGE_REQUEST_TIMEOUT cannot be negative")
	}
	if c.Session.DBPath == "" {
		return fmt.Errorf("SESSION_DB_PATH cannot be empty")
	}
	if c.MetaDir == "" {
		return fmt.Errorf("META_DIR cannot be empty")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}
