package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/semperai/amica-bridge/internal/events"
	"github.com/semperai/amica-bridge/internal/hooks"
)

// NotificationHookInvoked is sent to the connection owning an RPC-registered
// hook every time that hook fires.
const NotificationHookInvoked = "hook:invoked"

type registerHookParams struct {
	Event     string `json:"event"`
	Priority  *int   `json:"priority,omitempty"`
	TimeoutMs int64  `json:"timeoutMs,omitempty"`
	Condition string `json:"condition,omitempty"`
}

type hookIDParams struct {
	ID string `json:"id"`
}

type eventParams struct {
	Event string `json:"event"`
}

type triggerParams struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type hookInvokedParams struct {
	HookID  string         `json:"hook_id"`
	Event   string         `json:"event"`
	Payload events.Payload `json:"payload"`
}

func (d *Dispatcher) registerHookMethods() {
	d.RegisterHandler("hooks.register", d.hooksRegister)
	d.RegisterHandler("hooks.unregister", d.hooksUnregister)
	d.RegisterHandler("hooks.unregisterAll", d.hooksUnregisterAll)
	d.RegisterHandler("hooks.trigger", d.hooksTrigger)
	d.RegisterHandler("hooks.list", d.hooksList)
	d.RegisterHandler("hooks.getMetrics", d.hooksGetMetrics)
	d.RegisterHandler("hooks.getEventMetrics", d.hooksGetEventMetrics)
	d.RegisterHandler("hooks.enable", d.hooksEnable)
	d.RegisterHandler("hooks.disable", d.hooksDisable)
	d.RegisterHandler("hooks.clear", d.hooksClear)
}

// hooksRegister installs an observe-only hook for the calling connection:
// each time it fires, the owner receives a hook:invoked notification with the
// current context payload, and the pipeline continues unchanged. Remote
// callbacks cannot rewrite the payload; mutation stays in-process.
func (d *Dispatcher) hooksRegister(ctx context.Context, call *Call) (any, error) {
	if call.Caller == nil {
		return nil, NewError(CodeStateUnavailable, "hooks.register requires a websocket connection")
	}

	var p registerHookParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}

	name := events.Name(p.Event)
	if !events.Valid(name) {
		return nil, NewError(CodeInvalidParams, "unknown event: %s", p.Event)
	}

	opts := []hooks.Option{}
	if p.Priority != nil {
		opts = append(opts, hooks.WithPriority(*p.Priority))
	}
	if p.TimeoutMs > 0 {
		opts = append(opts, hooks.WithTimeout(time.Duration(p.TimeoutMs)*time.Millisecond))
	}
	if p.Condition != "" {
		cond, err := compileCondition(p.Condition)
		if err != nil {
			return nil, NewError(CodeHookRegistrationFailed, "%s", err.Error())
		}
		opts = append(opts, hooks.WithCondition(cond))
	}

	owner := call.Caller
	var hookID string
	cb := func(ctx context.Context, hc hooks.Context) (events.Payload, error) {
		err := owner.Notify(NotificationHookInvoked, &hookInvokedParams{
			HookID:  hc.HookID,
			Event:   string(hc.Event),
			Payload: hc.Payload,
		})
		return nil, err
	}

	hookID = d.deps.Hooks.Register(name, cb, opts...)
	d.trackOwnedHook(owner.ID(), hookID)

	return map[string]any{"id": hookID}, nil
}

func (d *Dispatcher) hooksUnregister(ctx context.Context, call *Call) (any, error) {
	var p hookIDParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}

	removed := d.deps.Hooks.Unregister(p.ID)
	if removed && call.Caller != nil {
		d.forgetOwnedHook(call.Caller.ID(), p.ID)
	}
	return map[string]any{"removed": removed}, nil
}

func (d *Dispatcher) hooksUnregisterAll(ctx context.Context, call *Call) (any, error) {
	var p eventParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}

	name := events.Name(p.Event)
	if !events.Valid(name) {
		return nil, NewError(CodeInvalidParams, "unknown event: %s", p.Event)
	}

	d.deps.Hooks.UnregisterAll(name)
	return map[string]any{"ok": true}, nil
}

func (d *Dispatcher) hooksTrigger(ctx context.Context, call *Call) (any, error) {
	var p triggerParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}

	name := events.Name(p.Event)
	if !events.Valid(name) {
		return nil, NewError(CodeInvalidParams, "unknown event: %s", p.Event)
	}

	payload, err := events.Decode(name, p.Payload)
	if err != nil {
		return nil, NewError(CodeInvalidParams, "%s", err.Error())
	}

	final := d.deps.Hooks.Trigger(ctx, name, payload)
	return map[string]any{"payload": final}, nil
}

func (d *Dispatcher) hooksList(ctx context.Context, call *Call) (any, error) {
	var p eventParams
	if len(call.Params) > 0 {
		if err := unmarshalParams(call.Params, &p); err != nil {
			return nil, err
		}
	}

	if p.Event == "" {
		return d.deps.Hooks.Hooks(), nil
	}

	name := events.Name(p.Event)
	if !events.Valid(name) {
		return nil, NewError(CodeInvalidParams, "unknown event: %s", p.Event)
	}
	return d.deps.Hooks.Hooks(name), nil
}

func (d *Dispatcher) hooksGetMetrics(ctx context.Context, call *Call) (any, error) {
	var p hookIDParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}

	snapshot, ok := d.deps.Hooks.Metrics(p.ID)
	if !ok {
		return nil, NewError(CodeHookNotFound, "hook not found: %s", p.ID)
	}
	return snapshot, nil
}

func (d *Dispatcher) hooksGetEventMetrics(ctx context.Context, call *Call) (any, error) {
	var p eventParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}

	name := events.Name(p.Event)
	if !events.Valid(name) {
		return nil, NewError(CodeInvalidParams, "unknown event: %s", p.Event)
	}
	return d.deps.Hooks.EventMetricsFor(name), nil
}

func (d *Dispatcher) hooksEnable(ctx context.Context, call *Call) (any, error) {
	d.deps.Hooks.SetEnabled(true)
	return map[string]any{"enabled": true}, nil
}

func (d *Dispatcher) hooksDisable(ctx context.Context, call *Call) (any, error) {
	d.deps.Hooks.SetEnabled(false)
	return map[string]any{"enabled": false}, nil
}

func (d *Dispatcher) hooksClear(ctx context.Context, call *Call) (any, error) {
	d.deps.Hooks.Clear()
	d.ownedMu.Lock()
	d.owned = make(map[string][]string)
	d.ownedMu.Unlock()
	return map[string]any{"ok": true}, nil
}

// unmarshalParams decodes params strictly, mapping failures to the
// invalid-params code.
func unmarshalParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return NewError(CodeInvalidParams, "missing params")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return NewError(CodeInvalidParams, "invalid params: %v", err)
	}
	return nil
}
