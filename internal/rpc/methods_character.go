package rpc

import (
	"context"
	"errors"

	"github.com/semperai/amica-bridge/internal/viewer"
)

type expressionParams struct {
	Expression string  `json:"expression"`
	Weight     float64 `json:"weight"`
}

type animationParams struct {
	Name string `json:"name"`
	Loop bool   `json:"loop,omitempty"`
}

type transformParams struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type urlParams struct {
	URL string `json:"url"`
}

func (d *Dispatcher) registerCharacterMethods() {
	d.RegisterHandler("character.getState", d.characterGetState)
	d.RegisterHandler("character.loadModel", d.characterLoadModel)
	d.RegisterHandler("character.loadRoom", d.characterLoadRoom)
	d.RegisterHandler("character.setExpression", d.characterSetExpression)
	d.RegisterHandler("character.playAnimation", d.characterPlayAnimation)
	d.RegisterHandler("character.stopAnimation", d.characterStopAnimation)
	d.RegisterHandler("character.lookAt", d.characterLookAt)
	d.RegisterHandler("character.setPosition", d.characterSetPosition)
	d.RegisterHandler("character.setRotation", d.characterSetRotation)
}

// viewerError maps collaborator failures to the viewer error code.
func viewerError(err error) *Error {
	if errors.Is(err, viewer.ErrNoModel) {
		return NewError(CodeViewerError, "no model loaded")
	}
	return NewError(CodeViewerError, "%s", err.Error())
}

func (d *Dispatcher) characterGetState(ctx context.Context, call *Call) (any, error) {
	return d.deps.Viewer.State(), nil
}

func (d *Dispatcher) characterLoadModel(ctx context.Context, call *Call) (any, error) {
	var p urlParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}
	if p.URL == "" {
		return nil, NewError(CodeInvalidParams, "url must not be empty")
	}
	if err := d.deps.Viewer.LoadModel(ctx, p.URL); err != nil {
		return nil, viewerError(err)
	}
	return map[string]any{"ok": true}, nil
}

func (d *Dispatcher) characterLoadRoom(ctx context.Context, call *Call) (any, error) {
	var p urlParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}
	if p.URL == "" {
		return nil, NewError(CodeInvalidParams, "url must not be empty")
	}
	if err := d.deps.Viewer.LoadRoom(ctx, p.URL); err != nil {
		return nil, viewerError(err)
	}
	return map[string]any{"ok": true}, nil
}

func (d *Dispatcher) characterSetExpression(ctx context.Context, call *Call) (any, error) {
	var p expressionParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}
	if p.Expression == "" {
		return nil, NewError(CodeInvalidParams, "expression must not be empty")
	}
	if err := d.deps.Viewer.SetExpression(ctx, p.Expression, p.Weight); err != nil {
		return nil, viewerError(err)
	}
	return map[string]any{"ok": true}, nil
}

func (d *Dispatcher) characterPlayAnimation(ctx context.Context, call *Call) (any, error) {
	var p animationParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, NewError(CodeInvalidParams, "name must not be empty")
	}
	if err := d.deps.Viewer.PlayAnimation(ctx, p.Name, p.Loop); err != nil {
		return nil, viewerError(err)
	}
	return map[string]any{"ok": true}, nil
}

func (d *Dispatcher) characterStopAnimation(ctx context.Context, call *Call) (any, error) {
	if err := d.deps.Viewer.StopAnimation(ctx); err != nil {
		return nil, viewerError(err)
	}
	return map[string]any{"ok": true}, nil
}

func (d *Dispatcher) characterLookAt(ctx context.Context, call *Call) (any, error) {
	var p transformParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}
	if err := d.deps.Viewer.LookAt(ctx, viewer.Transform{X: p.X, Y: p.Y, Z: p.Z}); err != nil {
		return nil, viewerError(err)
	}
	return map[string]any{"ok": true}, nil
}

func (d *Dispatcher) characterSetPosition(ctx context.Context, call *Call) (any, error) {
	var p transformParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}
	if err := d.deps.Viewer.SetPosition(ctx, viewer.Transform{X: p.X, Y: p.Y, Z: p.Z}); err != nil {
		return nil, viewerError(err)
	}
	return map[string]any{"ok": true}, nil
}

func (d *Dispatcher) characterSetRotation(ctx context.Context, call *Call) (any, error) {
	var p transformParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}
	if err := d.deps.Viewer.SetRotation(ctx, viewer.Transform{X: p.X, Y: p.Y, Z: p.Z}); err != nil {
		return nil, viewerError(err)
	}
	return map[string]any{"ok": true}, nil
}
