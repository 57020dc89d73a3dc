package hooks

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/semperai/amica-bridge/internal/events"
	"github.com/semperai/amica-bridge/internal/metrics"
)

// registration binds one callback to one catalog event.
type registration struct {
	id        string
	event     events.Name
	callback  Callback
	priority  int
	timeout   time.Duration
	condition Condition
	pinned    bool
	seq       uint64
	metrics   *hookMetrics
}

// hookMetrics holds per-registration counters. Concurrent triggers share the
// registration, so updates go through the mutex.
type hookMetrics struct {
	mu            sync.Mutex
	calls         int64
	totalDuration time.Duration
	errors        int64
	lastError     string
}

func (m *hookMetrics) recordSuccess(d time.Duration) {
	m.mu.Lock()
	m.calls++
	m.totalDuration += d
	m.mu.Unlock()
}

func (m *hookMetrics) recordError(msg string) {
	m.mu.Lock()
	m.errors++
	m.lastError = msg
	m.mu.Unlock()
}

func (m *hookMetrics) snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := MetricsSnapshot{
		Calls:         m.calls,
		TotalDuration: m.totalDuration,
		Errors:        m.errors,
		LastError:     m.lastError,
	}
	if m.calls > 0 {
		s.AvgDuration = m.totalDuration / time.Duration(m.calls)
	}
	return s
}

// Engine owns hook registration and sequential, priority-ordered execution.
// Callbacks for a single trigger never run concurrently with each other;
// independent triggers may run in parallel.
type Engine struct {
	mu            sync.RWMutex
	registrations map[events.Name][]*registration
	byID          map[string]*registration
	nextID        uint64
	enabled       atomic.Bool

	defaultTimeout time.Duration
}

// EngineOption configures a new Engine.
type EngineOption func(*Engine)

// WithDefaultTimeout overrides the timeout applied to registrations that do
// not set their own.
func WithDefaultTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.defaultTimeout = d
		}
	}
}

// NewEngine creates an enabled engine with no registrations.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		registrations:  make(map[events.Name][]*registration),
		byID:           make(map[string]*registration),
		defaultTimeout: DefaultTimeout,
	}
	e.enabled.Store(true)

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register binds a callback to an event and returns the registration id.
// Registration always succeeds; the list for the event stays sorted by
// priority with ties broken by registration order.
func (e *Engine) Register(event events.Name, cb Callback, opts ...Option) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	reg := &registration{
		id:       fmt.Sprintf("hook-%d", e.nextID),
		event:    event,
		callback: cb,
		priority: DefaultPriority,
		timeout:  e.defaultTimeout,
		seq:      e.nextID,
		metrics:  &hookMetrics{},
	}
	for _, opt := range opts {
		opt(reg)
	}

	regs := append(e.registrations[event], reg)
	slices.SortStableFunc(regs, func(a, b *registration) int {
		if a.priority != b.priority {
			return a.priority - b.priority
		}
		// Stable sort preserves insertion order on equal priorities, but the
		// explicit tiebreak keeps the invariant independent of how the slice
		// was built.
		return int(a.seq) - int(b.seq)
	})
	e.registrations[event] = regs
	e.byID[reg.id] = reg

	log.Debug().
		Str("id", reg.id).
		Str("event", string(event)).
		Int("priority", reg.priority).
		Dur("timeout", reg.timeout).
		Msg("Hook registered")

	return reg.id
}

// Unregister removes a registration and its metrics. Unknown ids and pinned
// registrations are a no-op returning false.
func (e *Engine) Unregister(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	reg, ok := e.byID[id]
	if !ok || reg.pinned {
		return false
	}

	delete(e.byID, id)
	e.registrations[reg.event] = slices.DeleteFunc(e.registrations[reg.event], func(r *registration) bool {
		return r.id == id
	})
	if len(e.registrations[reg.event]) == 0 {
		delete(e.registrations, reg.event)
	}

	log.Debug().Str("id", id).Str("event", string(reg.event)).Msg("Hook unregistered")
	return true
}

// UnregisterAll removes every registration bound to event except pinned ones.
func (e *Engine) UnregisterAll(event events.Name) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var kept []*registration
	for _, reg := range e.registrations[event] {
		if reg.pinned {
			kept = append(kept, reg)
			continue
		}
		delete(e.byID, reg.id)
	}
	if len(kept) == 0 {
		delete(e.registrations, event)
	} else {
		e.registrations[event] = kept
	}

	log.Debug().Str("event", string(event)).Msg("All hooks unregistered for event")
}

// Clear wipes all registrations and metrics except pinned ones, which carry
// the bridge's own wiring.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	regs := make(map[events.Name][]*registration)
	byID := make(map[string]*registration)
	for event, list := range e.registrations {
		for _, reg := range list {
			if reg.pinned {
				regs[event] = append(regs[event], reg)
				byID[reg.id] = reg
			}
		}
	}
	e.registrations = regs
	e.byID = byID

	log.Debug().Msg("Hook engine cleared")
}

// SetEnabled toggles the whole engine. While disabled, Trigger returns its
// payload unchanged and runs nothing.
func (e *Engine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
	log.Info().Bool("enabled", enabled).Msg("Hook engine toggled")
}

// Enabled reports whether the engine is running callbacks.
func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

// Trigger runs every registration bound to event in priority order, each
// callback seeing the previous callback's payload, and returns the final
// payload. Callback errors and timeouts are recorded in that registration's
// metrics and the pipeline continues with the prior payload; they never reach
// the caller.
func (e *Engine) Trigger(ctx context.Context, event events.Name, payload events.Payload) events.Payload {
	if !e.enabled.Load() {
		return payload
	}

	e.mu.RLock()
	regs := slices.Clone(e.registrations[event])
	e.mu.RUnlock()

	if len(regs) == 0 {
		return payload
	}

	created := time.Now()
	current := payload

	for _, reg := range regs {
		hc := Context{
			Event:     event,
			Timestamp: created,
			HookID:    reg.id,
			Payload:   current,
		}

		if reg.condition != nil && !reg.condition(hc) {
			continue
		}

		result, d, err := e.invoke(ctx, reg, hc)
		if err != nil {
			reg.metrics.recordError(err.Error())
			metrics.RecordHookExecution(string(event), "error", d)
			log.Warn().
				Err(err).
				Str("id", reg.id).
				Str("event", string(event)).
				Msg("Hook callback failed")
			continue
		}

		reg.metrics.recordSuccess(d)
		metrics.RecordHookExecution(string(event), "ok", d)
		if result != nil {
			current = result
		}
	}

	return current
}

type callbackResult struct {
	payload events.Payload
	err     error
}

// invoke runs one callback under its deadline. A timed-out callback keeps
// running in the background with a cancelled context; its eventual result is
// discarded, never merged.
func (e *Engine) invoke(ctx context.Context, reg *registration, hc Context) (events.Payload, time.Duration, error) {
	cctx, cancel := context.WithTimeout(ctx, reg.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan callbackResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callbackResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		p, err := reg.callback(cctx, hc)
		done <- callbackResult{payload: p, err: err}
	}()

	select {
	case res := <-done:
		return res.payload, time.Since(start), res.err
	case <-cctx.Done():
		if err := ctx.Err(); err != nil {
			// The trigger's own context ended, not the per-callback deadline.
			return nil, time.Since(start), fmt.Errorf("cancelled: %v", err)
		}
		return nil, time.Since(start), fmt.Errorf("timed out after %dms", reg.timeout.Milliseconds())
	}
}

// Metrics returns a snapshot of one registration's counters.
func (e *Engine) Metrics(id string) (MetricsSnapshot, bool) {
	e.mu.RLock()
	reg, ok := e.byID[id]
	e.mu.RUnlock()

	if !ok {
		return MetricsSnapshot{}, false
	}
	return reg.metrics.snapshot(), true
}

// EventMetricsFor aggregates counters across every registration currently
// bound to event.
func (e *Engine) EventMetricsFor(event events.Name) EventMetrics {
	e.mu.RLock()
	regs := slices.Clone(e.registrations[event])
	e.mu.RUnlock()

	agg := EventMetrics{Event: event, Hooks: len(regs)}
	for _, reg := range regs {
		s := reg.metrics.snapshot()
		agg.Calls += s.Calls
		agg.Errors += s.Errors
		agg.TotalDuration += s.TotalDuration
	}
	if agg.Calls > 0 {
		agg.AvgDuration = agg.TotalDuration / time.Duration(agg.Calls)
	}
	return agg
}

// Hooks lists registrations. With no arguments it lists every registration
// across all events; with an event it lists only that event's, in execution
// order.
func (e *Engine) Hooks(event ...events.Name) []Info {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var regs []*registration
	if len(event) > 0 {
		regs = e.registrations[event[0]]
	} else {
		for _, name := range events.All() {
			regs = append(regs, e.registrations[name]...)
		}
	}

	infos := make([]Info, 0, len(regs))
	for _, reg := range regs {
		infos = append(infos, Info{
			ID:           reg.id,
			Event:        reg.event,
			Priority:     reg.priority,
			TimeoutMs:    reg.timeout.Milliseconds(),
			HasCondition: reg.condition != nil,
			Pinned:       reg.pinned,
		})
	}
	return infos
}
