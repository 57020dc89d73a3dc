package viewer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/semperai/amica-bridge/internal/events"
	"github.com/semperai/amica-bridge/internal/hooks"
)

func newViewer(t *testing.T) (*Viewer, *hooks.Engine) {
	t.Helper()
	engine := hooks.NewEngine()
	return New(engine), engine
}

func TestCommandsRequireModel(t *testing.T) {
	v, _ := newViewer(t)
	ctx := context.Background()

	require.ErrorIs(t, v.SetExpression(ctx, "happy", 1), ErrNoModel)
	require.ErrorIs(t, v.PlayAnimation(ctx, "wave", false), ErrNoModel)
	require.ErrorIs(t, v.StopAnimation(ctx), ErrNoModel)
	require.ErrorIs(t, v.LookAt(ctx, Transform{X: 1}), ErrNoModel)
	require.ErrorIs(t, v.SetPosition(ctx, Transform{}), ErrNoModel)
	require.ErrorIs(t, v.SetRotation(ctx, Transform{}), ErrNoModel)
}

func TestLoadModelEnablesCommands(t *testing.T) {
	v, _ := newViewer(t)
	ctx := context.Background()

	require.NoError(t, v.LoadModel(ctx, "https://example.com/avatar.vrm"))
	require.True(t, v.HasModel())

	require.NoError(t, v.SetExpression(ctx, "happy", 0.8))
	require.NoError(t, v.PlayAnimation(ctx, "wave", true))

	state := v.State()
	require.Equal(t, "https://example.com/avatar.vrm", state.ModelURL)
	require.Equal(t, "happy", state.Expression)
	require.Equal(t, 0.8, state.Weight)
	require.Equal(t, "wave", state.Animation)
	require.True(t, state.Loop)
}

func TestStopAnimationClearsState(t *testing.T) {
	v, engine := newViewer(t)
	ctx := context.Background()

	var stopped string
	engine.Register(events.OnAnimationStop, func(ctx context.Context, hc hooks.Context) (events.Payload, error) {
		stopped = hc.Payload.(events.Animation).Name
		return nil, nil
	})

	require.NoError(t, v.LoadModel(ctx, "model.vrm"))
	require.NoError(t, v.PlayAnimation(ctx, "dance", false))
	require.NoError(t, v.StopAnimation(ctx))

	require.Equal(t, "dance", stopped)
	require.Empty(t, v.State().Animation)
}

func TestHookRewritesExpression(t *testing.T) {
	v, engine := newViewer(t)
	ctx := context.Background()

	engine.Register(events.OnExpressionChange, func(ctx context.Context, hc hooks.Context) (events.Payload, error) {
		expr := hc.Payload.(events.Expression)
		expr.Weight = expr.Weight / 2
		return expr, nil
	})

	require.NoError(t, v.LoadModel(ctx, "model.vrm"))
	require.NoError(t, v.SetExpression(ctx, "surprised", 1.0))
	require.Equal(t, 0.5, v.State().Weight)
}

func TestTransforms(t *testing.T) {
	v, _ := newViewer(t)
	ctx := context.Background()

	require.NoError(t, v.LoadModel(ctx, "model.vrm"))
	require.NoError(t, v.SetPosition(ctx, Transform{X: 1, Y: 2, Z: 3}))
	require.NoError(t, v.SetRotation(ctx, Transform{Y: 90}))
	require.NoError(t, v.LoadRoom(ctx, "room.glb"))
	require.NoError(t, v.LookAt(ctx, Transform{X: -1}))

	state := v.State()
	require.Equal(t, Transform{X: 1, Y: 2, Z: 3}, state.Position)
	require.Equal(t, Transform{Y: 90}, state.Rotation)
	require.Equal(t, "room.glb", state.RoomURL)
	require.NotNil(t, state.LookAt)
	require.Equal(t, -1.0, state.LookAt.X)

	// The snapshot's LookAt is a copy, not a shared pointer.
	state.LookAt.X = 42
	require.Equal(t, -1.0, v.State().LookAt.X)
}
