// Package config defines the bridge configuration and loads it from
// files and environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the bridge.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Hooks     HooksConfig     `mapstructure:"hooks"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Scenario  ScenarioConfig  `mapstructure:"scenario"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodySize  int64         `mapstructure:"max_body_size"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

// Address returns the host:port to bind the HTTP listener to.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CORSConfig controls cross-origin headers on the HTTP endpoint.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// AllowedMethods returns the methods the bridge accepts cross-origin.
func (c *CORSConfig) AllowedMethods() []string {
	return []string{"GET", "POST", "OPTIONS"}
}

// AllowedHeaders returns the request headers allowed cross-origin.
func (c *CORSConfig) AllowedHeaders() []string {
	return []string{"Content-Type", "Authorization", "X-Request-ID"}
}

// WebSocketConfig holds the realtime listener settings.
type WebSocketConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	Path              string        `mapstructure:"path"`
	MaxConnections    int           `mapstructure:"max_connections"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	SendBuffer        int           `mapstructure:"send_buffer"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
}

// Address returns the host:port to bind the realtime listener to.
func (c *WebSocketConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HooksConfig controls the hook engine.
type HooksConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// AuthConfig holds optional bearer-token authentication settings.
// When Secret is empty the HTTP endpoint is open.
type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

// Enabled reports whether JWT verification is active.
func (c *AuthConfig) Enabled() bool {
	return c.Secret != ""
}

// ScenarioConfig points at the scenario definition on disk.
type ScenarioConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// SchedulerConfig lists cron-driven event triggers. An empty list disables
// the scheduler.
type SchedulerConfig struct {
	Triggers []TriggerConfig `mapstructure:"triggers"`
}

// TriggerConfig is a single scheduled event.
type TriggerConfig struct {
	Cron    string         `mapstructure:"cron"`
	Event   string         `mapstructure:"event"`
	Payload map[string]any `mapstructure:"payload"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Caller    bool   `mapstructure:"caller"`
	Timestamp bool   `mapstructure:"timestamp"`
}
