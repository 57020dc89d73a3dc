package rpc

import (
	"context"
)

type scenarioUpdateParams struct {
	State map[string]any `json:"state"`
}

func (d *Dispatcher) registerScenarioMethods() {
	d.RegisterHandler("scenario.get", d.scenarioGet)
	d.RegisterHandler("scenario.update", d.scenarioUpdate)
}

func (d *Dispatcher) scenarioGet(ctx context.Context, call *Call) (any, error) {
	name, state := d.deps.Scenario.Get()
	return map[string]any{"name": name, "state": state}, nil
}

func (d *Dispatcher) scenarioUpdate(ctx context.Context, call *Call) (any, error) {
	var p scenarioUpdateParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}
	if len(p.State) == 0 {
		return nil, NewError(CodeInvalidParams, "state must not be empty")
	}

	state, err := d.deps.Scenario.Update(ctx, p.State)
	if err != nil {
		return nil, NewError(CodeScenarioError, "%s", err.Error())
	}
	return map[string]any{"state": state}, nil
}

// registerBuiltins installs every built-in method group.
func (d *Dispatcher) registerBuiltins() {
	d.registerHookMethods()
	d.registerEventMethods()
	d.registerSystemMethods()
	d.registerChatMethods()
	d.registerCharacterMethods()
	d.registerScenarioMethods()
}
