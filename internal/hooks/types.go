// Package hooks implements the avatar pipeline hook engine: registration and
// priority-ordered execution of callbacks bound to catalog events, with
// per-callback timeouts, error isolation, and execution metrics.
package hooks

import (
	"context"
	"time"

	"github.com/semperai/amica-bridge/internal/events"
)

// Context is the view of a trigger handed to a callback. Event, Timestamp and
// HookID are engine-owned routing metadata; the engine rebuilds the whole
// struct at every callback boundary, so a callback cannot corrupt them for
// the callbacks that follow. Only Payload flows through the pipeline.
type Context struct {
	Event     events.Name
	Timestamp time.Time
	HookID    string
	Payload   events.Payload
}

// Callback processes a Hook Context and returns the payload the next callback
// should see. Returning nil keeps the current payload. The ctx carries the
// callback's deadline; a callback that overruns it has its result discarded.
type Callback func(ctx context.Context, hc Context) (events.Payload, error)

// Condition gates a registration: when it returns false for the current
// context the callback is skipped for that trigger.
type Condition func(hc Context) bool

const (
	// DefaultPriority is used when a registration does not set one.
	// Lower priorities run earlier; ties run in registration order.
	DefaultPriority = 100

	// DefaultTimeout bounds a single callback invocation.
	DefaultTimeout = 5 * time.Second
)

// Option configures a registration.
type Option func(*registration)

// WithPriority sets the execution priority. Lower runs earlier.
func WithPriority(priority int) Option {
	return func(r *registration) {
		r.priority = priority
	}
}

// WithTimeout sets the per-invocation deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(r *registration) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithCondition attaches a predicate evaluated before each invocation.
func WithCondition(cond Condition) Option {
	return func(r *registration) {
		r.condition = cond
	}
}

// WithPinned marks a registration as part of the bridge's own wiring. Pinned
// registrations survive Clear and UnregisterAll and cannot be removed by id,
// so remote hook management cannot tear out the event forwarders or the
// input sanitizer.
func WithPinned() Option {
	return func(r *registration) {
		r.pinned = true
	}
}

// Info describes a registration for introspection APIs.
type Info struct {
	ID           string      `json:"id"`
	Event        events.Name `json:"event"`
	Priority     int         `json:"priority"`
	TimeoutMs    int64       `json:"timeout_ms"`
	HasCondition bool        `json:"has_condition"`
	Pinned       bool        `json:"pinned,omitempty"`
}

// MetricsSnapshot is a point-in-time copy of a registration's counters.
type MetricsSnapshot struct {
	Calls         int64         `json:"calls"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
	Errors        int64         `json:"errors"`
	LastError     string        `json:"last_error,omitempty"`
}

// EventMetrics aggregates the counters of every registration currently bound
// to one event. It is recomputed on demand, never stored.
type EventMetrics struct {
	Event         events.Name   `json:"event"`
	Hooks         int           `json:"hooks"`
	Calls         int64         `json:"calls"`
	Errors        int64         `json:"errors"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
}
