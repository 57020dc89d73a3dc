// Package chat is the conversation collaborator: it owns the message history
// and drives the perception-to-action trigger sequence for each user message.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"

	"github.com/semperai/amica-bridge/internal/events"
	"github.com/semperai/amica-bridge/internal/hooks"
)

// Role identifies the author of a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn of conversation history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrBusy is returned when a message arrives while a response stream is
// already in flight.
var ErrBusy = errors.New("a response is already streaming")

// Manager owns the conversation state. All pipeline checkpoints it crosses
// are triggered through the hook engine, so hooks can observe and rewrite
// every stage.
type Manager struct {
	hooks    *hooks.Engine
	provider Provider

	mu        sync.Mutex
	history   []Message
	cancel    context.CancelFunc
	sanitizer *bluemonday.Policy
}

// NewManager creates a chat manager and installs the built-in sanitizer hook:
// HTML is stripped from user messages at before:user:message:receive, ahead
// of application hooks at the default priority. The sanitizer is pinned so
// remote hook management cannot remove it.
func NewManager(engine *hooks.Engine, provider Provider) *Manager {
	if provider == nil {
		provider = EchoProvider{}
	}

	m := &Manager{
		hooks:     engine,
		provider:  provider,
		sanitizer: bluemonday.StrictPolicy(),
	}

	engine.Register(events.BeforeUserMessageReceive, m.sanitizeHook,
		hooks.WithPriority(10), hooks.WithPinned())

	return m
}

func (m *Manager) sanitizeHook(ctx context.Context, hc hooks.Context) (events.Payload, error) {
	msg, ok := hc.Payload.(events.UserMessage)
	if !ok {
		return hc.Payload, nil
	}
	msg.Message = strings.TrimSpace(m.sanitizer.Sanitize(msg.Message))
	return msg, nil
}

// ReceiveMessageFromUser runs the full pipeline for one user message and
// returns the assistant's final response text.
func (m *Manager) ReceiveMessageFromUser(ctx context.Context, text string) (string, error) {
	return m.run(ctx, text, nil)
}

// ResponseStream runs the same pipeline but delivers post-hook chunks on the
// returned channel as they arrive. The channel closes when the response is
// complete or the stream is interrupted.
func (m *Manager) ResponseStream(ctx context.Context, text string) (<-chan string, error) {
	if m.streaming() {
		return nil, ErrBusy
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		if _, err := m.run(ctx, text, out); err != nil {
			log.Warn().Err(err).Msg("Response stream failed")
		}
	}()
	return out, nil
}

func (m *Manager) streaming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Manager) run(ctx context.Context, text string, sink chan<- string) (string, error) {
	p := m.hooks.Trigger(ctx, events.BeforeUserMessageReceive, events.UserMessage{Message: text})
	userMsg, ok := p.(events.UserMessage)
	if !ok {
		userMsg = events.UserMessage{Message: text}
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return "", ErrBusy
	}
	sctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.history = append(m.history, Message{Role: RoleUser, Content: userMsg.Message, Timestamp: time.Now()})
	history := m.snapshotLocked()
	m.mu.Unlock()

	defer func() {
		cancel()
		m.mu.Lock()
		m.cancel = nil
		m.mu.Unlock()
	}()

	m.hooks.Trigger(ctx, events.AfterUserMessageReceive, userMsg)

	req := events.LLMRequest{Messages: toChatMessages(history), Provider: m.provider.Name()}
	if rp, ok := m.hooks.Trigger(ctx, events.BeforeLLMRequest, req).(events.LLMRequest); ok {
		req = rp
	}

	stream, err := m.provider.Stream(sctx, fromChatMessages(req.Messages))
	if err != nil {
		return "", fmt.Errorf("provider stream: %w", err)
	}
	m.hooks.Trigger(ctx, events.AfterLLMRequest, req)

	var sb strings.Builder
	index := 0
	for chunk := range stream {
		cp := events.LLMChunk{Chunk: chunk, Index: index}
		if out, ok := m.hooks.Trigger(ctx, events.OnLLMChunk, cp).(events.LLMChunk); ok {
			cp = out
		}
		sb.WriteString(cp.Chunk)
		if sink != nil {
			select {
			case sink <- cp.Chunk:
			case <-sctx.Done():
			}
		}
		index++

		if sctx.Err() != nil {
			break
		}
	}

	response := sb.String()
	if out, ok := m.hooks.Trigger(ctx, events.OnLLMComplete, events.LLMComplete{Response: response}).(events.LLMComplete); ok {
		response = out.Response
	}

	m.mu.Lock()
	m.history = append(m.history, Message{Role: RoleAssistant, Content: response, Timestamp: time.Now()})
	m.mu.Unlock()

	m.speak(ctx, response)

	return response, nil
}

// speak drives the synthesis checkpoints for a finished response. The bridge
// has no audio backend; the browser observes these events and plays audio.
func (m *Manager) speak(ctx context.Context, text string) {
	tts := events.TTSGenerate{Text: text}
	if out, ok := m.hooks.Trigger(ctx, events.BeforeTTSGenerate, tts).(events.TTSGenerate); ok {
		tts = out
	}
	m.hooks.Trigger(ctx, events.AfterTTSGenerate, tts)

	sp := events.Speak{Text: tts.Text}
	if out, ok := m.hooks.Trigger(ctx, events.BeforeSpeakStart, sp).(events.Speak); ok {
		sp = out
	}
	m.hooks.Trigger(ctx, events.AfterSpeakEnd, sp)
}

// Interrupt cancels the in-flight response stream, if any.
func (m *Manager) Interrupt() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel == nil {
		return false
	}
	m.cancel()
	log.Debug().Msg("Chat stream interrupted")
	return true
}

// History returns a copy of the conversation so far.
func (m *Manager) History() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() []Message {
	out := make([]Message, len(m.history))
	copy(out, m.history)
	return out
}

func toChatMessages(history []Message) []events.ChatMessage {
	out := make([]events.ChatMessage, 0, len(history))
	for _, msg := range history {
		out = append(out, events.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

func fromChatMessages(msgs []events.ChatMessage) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, Message{Role: Role(msg.Role), Content: msg.Content})
	}
	return out
}
