package config

import "time"

// Default configuration values.
const (
	// Server defaults.
	DefaultHost         = "localhost"
	DefaultPort         = 8080
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
	DefaultMaxBodySize  = 1024 * 1024 // 1MB

	// WebSocket defaults.
	DefaultWSPort            = 8765
	DefaultWSPath            = "/amica/jsonrpc"
	DefaultMaxConnections    = 64
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultSendBuffer        = 256
	DefaultMaxMessageSize    = 512 * 1024

	// Hooks defaults.
	DefaultHookTimeout = 5 * time.Second

	// Logging defaults.
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
			MaxBodySize:  DefaultMaxBodySize,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				MaxAge:         300,
			},
		},
		WebSocket: WebSocketConfig{
			Host:              DefaultHost,
			Port:              DefaultWSPort,
			Path:              DefaultWSPath,
			MaxConnections:    DefaultMaxConnections,
			HeartbeatInterval: DefaultHeartbeatInterval,
			SendBuffer:        DefaultSendBuffer,
			MaxMessageSize:    DefaultMaxMessageSize,
		},
		Hooks: HooksConfig{
			Enabled:        true,
			DefaultTimeout: DefaultHookTimeout,
		},
		Logging: LoggingConfig{
			Level:     DefaultLogLevel,
			Format:    DefaultLogFormat,
			Timestamp: true,
		},
	}
}
