package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/semperai/amica-bridge/internal/events"
)

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates all validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateWebSocket(&cfg.WebSocket)...)
	errs = append(errs, validateHooks(&cfg.Hooks)...)
	errs = append(errs, validateScheduler(&cfg.Scheduler)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateServer(cfg *ServerConfig) ValidationErrors {
	var errs ValidationErrors
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, ValidationError{"server.port", "must be between 1 and 65535"})
	}
	if cfg.MaxBodySize <= 0 {
		errs = append(errs, ValidationError{"server.max_body_size", "must be positive"})
	}
	return errs
}

func validateWebSocket(cfg *WebSocketConfig) ValidationErrors {
	var errs ValidationErrors
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, ValidationError{"websocket.port", "must be between 1 and 65535"})
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, ValidationError{"websocket.path", "must start with /"})
	}
	if cfg.MaxConnections < 1 {
		errs = append(errs, ValidationError{"websocket.max_connections", "must be at least 1"})
	}
	if cfg.SendBuffer < 1 {
		errs = append(errs, ValidationError{"websocket.send_buffer", "must be at least 1"})
	}
	if cfg.MaxMessageSize <= 0 {
		errs = append(errs, ValidationError{"websocket.max_message_size", "must be positive"})
	}
	return errs
}

func validateHooks(cfg *HooksConfig) ValidationErrors {
	var errs ValidationErrors
	if cfg.DefaultTimeout <= 0 {
		errs = append(errs, ValidationError{"hooks.default_timeout", "must be positive"})
	}
	return errs
}

func validateScheduler(cfg *SchedulerConfig) ValidationErrors {
	var errs ValidationErrors
	parser := cron.ParseStandard
	for i, t := range cfg.Triggers {
		field := fmt.Sprintf("scheduler.triggers[%d]", i)
		if _, err := parser(t.Cron); err != nil {
			errs = append(errs, ValidationError{field + ".cron", err.Error()})
		}
		if !events.Valid(events.Name(t.Event)) {
			errs = append(errs, ValidationError{field + ".event", fmt.Sprintf("unknown event %q", t.Event)})
		}
	}
	return errs
}

func validateLogging(cfg *LoggingConfig) ValidationErrors {
	var errs ValidationErrors
	switch cfg.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, ValidationError{"logging.level", fmt.Sprintf("unknown level %q", cfg.Level)})
	}
	switch cfg.Format {
	case "console", "json":
	default:
		errs = append(errs, ValidationError{"logging.format", fmt.Sprintf("unknown format %q", cfg.Format)})
	}
	return errs
}
