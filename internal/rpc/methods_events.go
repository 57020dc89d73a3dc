package rpc

import (
	"context"
	"strings"

	"github.com/gobwas/glob"

	"github.com/semperai/amica-bridge/internal/events"
)

type subscribeParams struct {
	Events []string `json:"events"`
}

func (d *Dispatcher) registerEventMethods() {
	d.RegisterHandler("events.subscribe", d.eventsSubscribe)
	d.RegisterHandler("events.unsubscribe", d.eventsUnsubscribe)
	d.RegisterHandler("events.listSubscriptions", d.eventsListSubscriptions)
}

// expandPatterns resolves a mix of exact catalog names and glob patterns
// (e.g. "on:llm:*") against the catalog. Exact names must exist; a glob is
// allowed to match nothing.
func expandPatterns(patterns []string) ([]string, *Error) {
	seen := make(map[string]struct{})
	var names []string

	add := func(name events.Name) {
		if _, dup := seen[string(name)]; dup {
			return
		}
		seen[string(name)] = struct{}{}
		names = append(names, string(name))
	}

	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[{") {
			name := events.Name(pattern)
			if !events.Valid(name) {
				return nil, NewError(CodeInvalidParams, "unknown event: %s", pattern)
			}
			add(name)
			continue
		}

		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, NewError(CodeInvalidParams, "invalid pattern %q: %v", pattern, err)
		}
		for _, name := range events.All() {
			if g.Match(string(name)) {
				add(name)
			}
		}
	}

	return names, nil
}

func (d *Dispatcher) eventsSubscribe(ctx context.Context, call *Call) (any, error) {
	if call.Caller == nil {
		return nil, NewError(CodeStateUnavailable, "subscriptions require a websocket connection")
	}

	var p subscribeParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}
	if len(p.Events) == 0 {
		return nil, NewError(CodeInvalidParams, "events must not be empty")
	}

	names, rpcErr := expandPatterns(p.Events)
	if rpcErr != nil {
		return nil, rpcErr
	}

	call.Caller.Subscribe(names)
	return map[string]any{"subscribed": names}, nil
}

func (d *Dispatcher) eventsUnsubscribe(ctx context.Context, call *Call) (any, error) {
	if call.Caller == nil {
		return nil, NewError(CodeStateUnavailable, "subscriptions require a websocket connection")
	}

	var p subscribeParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}

	names, rpcErr := expandPatterns(p.Events)
	if rpcErr != nil {
		return nil, rpcErr
	}

	call.Caller.Unsubscribe(names)
	return map[string]any{"unsubscribed": names}, nil
}

func (d *Dispatcher) eventsListSubscriptions(ctx context.Context, call *Call) (any, error) {
	if call.Caller == nil {
		return nil, NewError(CodeStateUnavailable, "subscriptions require a websocket connection")
	}
	return map[string]any{"events": call.Caller.Subscriptions()}, nil
}
