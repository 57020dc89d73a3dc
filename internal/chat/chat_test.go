package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/semperai/amica-bridge/internal/events"
	"github.com/semperai/amica-bridge/internal/hooks"
)

// recordingHook appends every event it sees, in order.
type recordingHook struct {
	mu   sync.Mutex
	seen []events.Name
}

func (r *recordingHook) install(engine *hooks.Engine, names ...events.Name) {
	for _, name := range names {
		engine.Register(name, func(ctx context.Context, hc hooks.Context) (events.Payload, error) {
			r.mu.Lock()
			r.seen = append(r.seen, hc.Event)
			r.mu.Unlock()
			return nil, nil
		})
	}
}

func (r *recordingHook) events() []events.Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Name, len(r.seen))
	copy(out, r.seen)
	return out
}

// slowProvider blocks until its context is canceled.
type slowProvider struct{}

func (slowProvider) Name() string { return "slow" }

func (slowProvider) Stream(ctx context.Context, _ []Message) (<-chan string, error) {
	out := make(chan string)
	go func() {
		defer close(out)
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case out <- "word ":
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func TestReceiveMessage_TriggerSequence(t *testing.T) {
	engine := hooks.NewEngine()
	m := NewManager(engine, EchoProvider{})

	rec := &recordingHook{}
	rec.install(engine,
		events.BeforeUserMessageReceive,
		events.AfterUserMessageReceive,
		events.BeforeLLMRequest,
		events.AfterLLMRequest,
		events.OnLLMComplete,
		events.BeforeTTSGenerate,
		events.AfterTTSGenerate,
		events.BeforeSpeakStart,
		events.AfterSpeakEnd,
	)

	reply, err := m.ReceiveMessageFromUser(context.Background(), "hello world")
	require.NoError(t, err)
	require.Contains(t, reply, "hello")

	require.Equal(t, []events.Name{
		events.BeforeUserMessageReceive,
		events.AfterUserMessageReceive,
		events.BeforeLLMRequest,
		events.AfterLLMRequest,
		events.OnLLMComplete,
		events.BeforeTTSGenerate,
		events.AfterTTSGenerate,
		events.BeforeSpeakStart,
		events.AfterSpeakEnd,
	}, rec.events())
}

func TestReceiveMessage_SanitizerStripsHTML(t *testing.T) {
	engine := hooks.NewEngine()
	m := NewManager(engine, EchoProvider{})

	var sanitized string
	engine.Register(events.AfterUserMessageReceive, func(ctx context.Context, hc hooks.Context) (events.Payload, error) {
		sanitized = hc.Payload.(events.UserMessage).Message
		return nil, nil
	})

	_, err := m.ReceiveMessageFromUser(context.Background(), `<script>alert(1)</script> hi there`)
	require.NoError(t, err)
	require.Equal(t, "hi there", sanitized)

	history := m.History()
	require.Equal(t, "hi there", history[0].Content)
}

func TestReceiveMessage_HookRewritesChunks(t *testing.T) {
	engine := hooks.NewEngine()
	m := NewManager(engine, EchoProvider{})

	engine.Register(events.OnLLMChunk, func(ctx context.Context, hc hooks.Context) (events.Payload, error) {
		chunk := hc.Payload.(events.LLMChunk)
		chunk.Chunk = strings.ToUpper(chunk.Chunk)
		return chunk, nil
	})

	reply, err := m.ReceiveMessageFromUser(context.Background(), "shout this")
	require.NoError(t, err)
	require.Contains(t, reply, "SHOUT")
	require.NotContains(t, reply, "shout")
}

func TestReceiveMessage_HistoryAccumulates(t *testing.T) {
	engine := hooks.NewEngine()
	m := NewManager(engine, EchoProvider{})

	_, err := m.ReceiveMessageFromUser(context.Background(), "first")
	require.NoError(t, err)
	_, err = m.ReceiveMessageFromUser(context.Background(), "second")
	require.NoError(t, err)

	history := m.History()
	require.Len(t, history, 4)
	require.Equal(t, RoleUser, history[0].Role)
	require.Equal(t, RoleAssistant, history[1].Role)
	require.Equal(t, "second", history[2].Content)
}

func TestResponseStream_DeliversChunks(t *testing.T) {
	engine := hooks.NewEngine()
	m := NewManager(engine, EchoProvider{})

	stream, err := m.ResponseStream(context.Background(), "one two three")
	require.NoError(t, err)

	var sb strings.Builder
	for chunk := range stream {
		sb.WriteString(chunk)
	}
	require.Contains(t, sb.String(), "one")
	require.Contains(t, sb.String(), "three")
}

func TestInterrupt_CancelsStream(t *testing.T) {
	engine := hooks.NewEngine()
	m := NewManager(engine, slowProvider{})

	stream, err := m.ResponseStream(context.Background(), "talk forever")
	require.NoError(t, err)

	// Let a few chunks through, then cut it off.
	<-stream
	<-stream
	require.True(t, m.Interrupt())

	done := make(chan struct{})
	go func() {
		for range stream {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after interrupt")
	}

	// Nothing left to interrupt once the stream has drained.
	require.Eventually(t, func() bool { return !m.Interrupt() },
		2*time.Second, 10*time.Millisecond)
}

func TestInterrupt_NoStream(t *testing.T) {
	m := NewManager(hooks.NewEngine(), EchoProvider{})
	require.False(t, m.Interrupt())
}

func TestProcessImage_DefaultDescription(t *testing.T) {
	engine := hooks.NewEngine()
	m := NewManager(engine, EchoProvider{})

	desc, err := m.ProcessImage(context.Background(), "base64data", "camera")
	require.NoError(t, err)
	require.Contains(t, desc, "camera")

	history := m.History()
	require.Len(t, history, 1)
	require.Equal(t, RoleSystem, history[0].Role)
	require.Contains(t, history[0].Content, "[vision]")
}

func TestProcessImage_HookReplacesDescription(t *testing.T) {
	engine := hooks.NewEngine()
	m := NewManager(engine, EchoProvider{})

	engine.Register(events.BeforeVisionResponse, func(ctx context.Context, hc hooks.Context) (events.Payload, error) {
		return events.VisionResponse{Description: "a sunny garden"}, nil
	})

	desc, err := m.ProcessImage(context.Background(), "base64data", "screenshot")
	require.NoError(t, err)
	require.Equal(t, "a sunny garden", desc)
}
