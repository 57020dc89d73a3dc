package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/semperai/amica-bridge/internal/events"
)

// ProtocolVersion identifies the bridge protocol exposed via
// system.getCapabilities.
const ProtocolVersion = "1.0"

type batchParams struct {
	Requests []json.RawMessage `json:"requests"`
}

func (d *Dispatcher) registerSystemMethods() {
	d.RegisterHandler("system.ping", d.systemPing)
	d.RegisterHandler("system.getCapabilities", d.systemGetCapabilities)
	d.RegisterHandler("system.batch", d.systemBatch)
}

func (d *Dispatcher) systemPing(ctx context.Context, call *Call) (any, error) {
	return map[string]any{
		"pong": true,
		"time": time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

func (d *Dispatcher) systemGetCapabilities(ctx context.Context, call *Call) (any, error) {
	eventNames := make([]string, 0, len(events.All()))
	for _, name := range events.All() {
		eventNames = append(eventNames, string(name))
	}

	return map[string]any{
		"protocol":     ProtocolVersion,
		"methods":      d.Methods(),
		"events":       eventNames,
		"hooksEnabled": d.deps.Hooks.Enabled(),
	}, nil
}

// systemBatch nests a batch inside a single request, for transports without
// native batch framing.
func (d *Dispatcher) systemBatch(ctx context.Context, call *Call) (any, error) {
	var p batchParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}
	if len(p.Requests) == 0 {
		return nil, NewError(CodeInvalidParams, "requests must not be empty")
	}

	return d.HandleBatch(ctx, call.Caller, p.Requests), nil
}
