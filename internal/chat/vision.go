package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/semperai/amica-bridge/internal/events"
)

// ProcessImage runs the vision checkpoints for a captured frame and records
// the final description in the conversation history. With no vision backend
// attached, the default description is a placeholder that hooks at
// before:vision:response are expected to replace.
func (m *Manager) ProcessImage(ctx context.Context, imageData, source string) (string, error) {
	cap := events.VisionCapture{ImageData: imageData, Source: source}
	if out, ok := m.hooks.Trigger(ctx, events.BeforeVisionCapture, cap).(events.VisionCapture); ok {
		cap = out
	}
	if out, ok := m.hooks.Trigger(ctx, events.AfterVisionCapture, cap).(events.VisionCapture); ok {
		cap = out
	}

	resp := events.VisionResponse{
		Description: fmt.Sprintf("captured image from %s (%d bytes)", cap.Source, len(cap.ImageData)),
	}
	if out, ok := m.hooks.Trigger(ctx, events.BeforeVisionResponse, resp).(events.VisionResponse); ok {
		resp = out
	}
	if out, ok := m.hooks.Trigger(ctx, events.AfterVisionResponse, resp).(events.VisionResponse); ok {
		resp = out
	}

	m.mu.Lock()
	m.history = append(m.history, Message{
		Role:      RoleSystem,
		Content:   "[vision] " + resp.Description,
		Timestamp: time.Now(),
	})
	m.mu.Unlock()

	return resp.Description, nil
}
