// Package viewer is the avatar collaborator: an in-memory mirror of the
// browser-side scene state. Every mutation crosses its pipeline checkpoint,
// so hooks (and through them, subscribers) see and can rewrite avatar
// commands before the state is applied.
package viewer

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/semperai/amica-bridge/internal/events"
	"github.com/semperai/amica-bridge/internal/hooks"
)

// ErrNoModel is returned by commands that need a loaded avatar model.
var ErrNoModel = errors.New("no model loaded")

// Transform is a position or Euler rotation in scene coordinates.
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// State is a snapshot of the avatar for introspection APIs.
type State struct {
	ModelURL   string     `json:"model_url,omitempty"`
	RoomURL    string     `json:"room_url,omitempty"`
	Expression string     `json:"expression,omitempty"`
	Weight     float64    `json:"weight,omitempty"`
	Animation  string     `json:"animation,omitempty"`
	Loop       bool       `json:"loop,omitempty"`
	Position   Transform  `json:"position"`
	Rotation   Transform  `json:"rotation"`
	LookAt     *Transform `json:"look_at,omitempty"`
}

// Viewer tracks avatar/scene presence and transforms.
type Viewer struct {
	hooks *hooks.Engine

	mu    sync.RWMutex
	state State
}

// New creates a viewer with nothing loaded.
func New(engine *hooks.Engine) *Viewer {
	return &Viewer{hooks: engine}
}

// HasModel reports whether an avatar model is loaded.
func (v *Viewer) HasModel() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state.ModelURL != ""
}

// HasRoom reports whether a room is loaded.
func (v *Viewer) HasRoom() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state.RoomURL != ""
}

// State returns a copy of the current avatar state.
func (v *Viewer) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s := v.state
	if v.state.LookAt != nil {
		la := *v.state.LookAt
		s.LookAt = &la
	}
	return s
}

// LoadModel marks an avatar model as present.
func (v *Viewer) LoadModel(ctx context.Context, url string) error {
	p := events.ModelLoad{ModelURL: url}
	if out, ok := v.hooks.Trigger(ctx, events.OnModelLoad, p).(events.ModelLoad); ok {
		p = out
	}

	v.mu.Lock()
	v.state.ModelURL = p.ModelURL
	v.mu.Unlock()

	log.Info().Str("model_url", p.ModelURL).Msg("Model loaded")
	return nil
}

// LoadRoom marks a room as present.
func (v *Viewer) LoadRoom(ctx context.Context, url string) error {
	p := events.RoomLoad{RoomURL: url}
	if out, ok := v.hooks.Trigger(ctx, events.OnRoomLoad, p).(events.RoomLoad); ok {
		p = out
	}

	v.mu.Lock()
	v.state.RoomURL = p.RoomURL
	v.mu.Unlock()

	log.Info().Str("room_url", p.RoomURL).Msg("Room loaded")
	return nil
}

// SetExpression applies a facial expression with the given weight.
func (v *Viewer) SetExpression(ctx context.Context, expression string, weight float64) error {
	if !v.HasModel() {
		return ErrNoModel
	}

	p := events.Expression{Expression: expression, Weight: weight}
	if out, ok := v.hooks.Trigger(ctx, events.OnExpressionChange, p).(events.Expression); ok {
		p = out
	}

	v.mu.Lock()
	v.state.Expression = p.Expression
	v.state.Weight = p.Weight
	v.mu.Unlock()
	return nil
}

// PlayAnimation starts an animation clip.
func (v *Viewer) PlayAnimation(ctx context.Context, name string, loop bool) error {
	if !v.HasModel() {
		return ErrNoModel
	}

	p := events.Animation{Name: name, Loop: loop}
	if out, ok := v.hooks.Trigger(ctx, events.OnAnimationPlay, p).(events.Animation); ok {
		p = out
	}

	v.mu.Lock()
	v.state.Animation = p.Name
	v.state.Loop = p.Loop
	v.mu.Unlock()
	return nil
}

// StopAnimation stops the current animation clip, if any.
func (v *Viewer) StopAnimation(ctx context.Context) error {
	if !v.HasModel() {
		return ErrNoModel
	}

	v.mu.Lock()
	name := v.state.Animation
	v.state.Animation = ""
	v.state.Loop = false
	v.mu.Unlock()

	v.hooks.Trigger(ctx, events.OnAnimationStop, events.Animation{Name: name})
	return nil
}

// LookAt points the avatar's gaze at a scene position.
func (v *Viewer) LookAt(ctx context.Context, target Transform) error {
	if !v.HasModel() {
		return ErrNoModel
	}

	v.mu.Lock()
	v.state.LookAt = &target
	v.mu.Unlock()
	return nil
}

// SetPosition moves the avatar root.
func (v *Viewer) SetPosition(ctx context.Context, pos Transform) error {
	if !v.HasModel() {
		return ErrNoModel
	}

	v.mu.Lock()
	v.state.Position = pos
	v.mu.Unlock()
	return nil
}

// SetRotation rotates the avatar root.
func (v *Viewer) SetRotation(ctx context.Context, rot Transform) error {
	if !v.HasModel() {
		return ErrNoModel
	}

	v.mu.Lock()
	v.state.Rotation = rot
	v.mu.Unlock()
	return nil
}
