package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/semperai/amica-bridge/internal/chat"
	"github.com/semperai/amica-bridge/internal/events"
	"github.com/semperai/amica-bridge/internal/hooks"
	"github.com/semperai/amica-bridge/internal/scenario"
	"github.com/semperai/amica-bridge/internal/viewer"
)

// fakeCaller satisfies Caller for tests without a real connection.
type fakeCaller struct {
	id string

	mu            sync.Mutex
	subscriptions map[string]struct{}
	notifications []fakeNotification
}

type fakeNotification struct {
	Method string
	Params any
}

func newFakeCaller(id string) *fakeCaller {
	return &fakeCaller{id: id, subscriptions: make(map[string]struct{})}
}

func (c *fakeCaller) ID() string { return c.id }

func (c *fakeCaller) Subscribe(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range names {
		c.subscriptions[n] = struct{}{}
	}
}

func (c *fakeCaller) Unsubscribe(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range names {
		delete(c.subscriptions, n)
	}
}

func (c *fakeCaller) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subscriptions))
	for n := range c.subscriptions {
		out = append(out, n)
	}
	return out
}

func (c *fakeCaller) Notify(method string, params any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = append(c.notifications, fakeNotification{Method: method, Params: params})
	return nil
}

func (c *fakeCaller) notified(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, n := range c.notifications {
		if n.Method == method {
			count++
		}
	}
	return count
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *hooks.Engine) {
	t.Helper()
	engine := hooks.NewEngine()
	return NewDispatcher(&Deps{
		Hooks:    engine,
		Chat:     chat.NewManager(engine, chat.EchoProvider{}),
		Viewer:   viewer.New(engine),
		Scenario: scenario.NewStore(engine),
	}), engine
}

func decodeResponse(t *testing.T, data []byte) *Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(data, &resp))
	return &resp
}

func TestHandleMessage_Ping(t *testing.T) {
	d, _ := newTestDispatcher(t)

	out := d.HandleMessage(context.Background(), nil, []byte(`{"jsonrpc":"2.0","method":"system.ping","id":1}`))
	resp := decodeResponse(t, out)

	require.Nil(t, resp.Error)
	require.Equal(t, json.RawMessage("1"), resp.ID)

	var result map[string]any
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Equal(t, true, result["pong"])
}

func TestHandleMessage_NullID(t *testing.T) {
	d, _ := newTestDispatcher(t)

	out := d.HandleMessage(context.Background(), nil, []byte(`{"jsonrpc":"2.0","method":"system.ping","id":null}`))
	require.NotNil(t, out, "null id is a request, not a notification")

	resp := decodeResponse(t, out)
	require.Nil(t, resp.Error)
	require.Equal(t, json.RawMessage("null"), resp.ID)
}

func TestHandleMessage_MethodNotFound(t *testing.T) {
	d, _ := newTestDispatcher(t)

	out := d.HandleMessage(context.Background(), nil, []byte(`{"jsonrpc":"2.0","method":"no.such.method","id":2}`))
	resp := decodeResponse(t, out)

	require.NotNil(t, resp.Error)
	require.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestHandleMessage_ParseError(t *testing.T) {
	d, _ := newTestDispatcher(t)

	out := d.HandleMessage(context.Background(), nil, []byte(`{not json`))
	resp := decodeResponse(t, out)

	require.NotNil(t, resp.Error)
	require.Equal(t, CodeParseError, resp.Error.Code)
	require.Equal(t, json.RawMessage("null"), resp.ID)
}

func TestHandleMessage_NonStringMethod(t *testing.T) {
	d, _ := newTestDispatcher(t)

	// Valid JSON with a numeric method is a malformed envelope, not a
	// syntax error, on the single path and the batch path alike.
	out := d.HandleMessage(context.Background(), nil, []byte(`{"jsonrpc":"2.0","method":123,"id":1}`))
	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeInvalidRequest, resp.Error.Code)

	out = d.HandleMessage(context.Background(), nil, []byte(`[{"jsonrpc":"2.0","method":123,"id":1}]`))
	var responses []*Response
	require.NoError(t, json.Unmarshal(out, &responses))
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	require.Equal(t, CodeInvalidRequest, responses[0].Error.Code)
}

func TestHandleMessage_InvalidVersion(t *testing.T) {
	d, _ := newTestDispatcher(t)

	out := d.HandleMessage(context.Background(), nil, []byte(`{"jsonrpc":"1.0","method":"system.ping","id":3}`))
	resp := decodeResponse(t, out)

	require.NotNil(t, resp.Error)
	require.Equal(t, CodeInvalidRequest, resp.Error.Code)
}

func TestHandleMessage_NotificationProducesNoResponse(t *testing.T) {
	d, _ := newTestDispatcher(t)

	out := d.HandleMessage(context.Background(), nil, []byte(`{"jsonrpc":"2.0","method":"system.ping"}`))
	require.Nil(t, out)

	// Unknown method as notification is silently dropped.
	out = d.HandleMessage(context.Background(), nil, []byte(`{"jsonrpc":"2.0","method":"no.such.method"}`))
	require.Nil(t, out)
}

func TestHandleMessage_BatchOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var batch []json.RawMessage
	for i := 0; i < 10; i++ {
		batch = append(batch, json.RawMessage(
			fmt.Sprintf(`{"jsonrpc":"2.0","method":"system.ping","id":%d}`, i)))
	}
	data, err := json.Marshal(batch)
	require.NoError(t, err)

	out := d.HandleMessage(context.Background(), nil, data)

	var responses []*Response
	require.NoError(t, json.Unmarshal(out, &responses))
	require.Len(t, responses, 10)
	for i, resp := range responses {
		require.Equal(t, json.RawMessage(fmt.Sprintf("%d", i)), resp.ID)
	}
}

func TestHandleMessage_BatchMixedWithNotifications(t *testing.T) {
	d, _ := newTestDispatcher(t)

	data := []byte(`[
		{"jsonrpc":"2.0","method":"system.ping","id":1},
		{"jsonrpc":"2.0","method":"system.ping"},
		{"jsonrpc":"2.0","method":"no.such.method","id":2}
	]`)
	out := d.HandleMessage(context.Background(), nil, data)

	var responses []*Response
	require.NoError(t, json.Unmarshal(out, &responses))
	require.Len(t, responses, 2)
	require.Equal(t, json.RawMessage("1"), responses[0].ID)
	require.Equal(t, json.RawMessage("2"), responses[1].ID)
	require.NotNil(t, responses[1].Error)
	require.Equal(t, CodeMethodNotFound, responses[1].Error.Code)
}

func TestHandleMessage_EmptyBatch(t *testing.T) {
	d, _ := newTestDispatcher(t)

	out := d.HandleMessage(context.Background(), nil, []byte(`[]`))
	resp := decodeResponse(t, out)

	require.NotNil(t, resp.Error)
	require.Equal(t, CodeInvalidRequest, resp.Error.Code)
}

func TestHandleMessage_AllNotificationBatch(t *testing.T) {
	d, _ := newTestDispatcher(t)

	out := d.HandleMessage(context.Background(), nil, []byte(`[
		{"jsonrpc":"2.0","method":"system.ping"},
		{"jsonrpc":"2.0","method":"system.ping"}
	]`))
	require.Nil(t, out)
}

func TestHandleRequest_InternalErrorWrapping(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.RegisterHandler("test.fail", func(ctx context.Context, call *Call) (any, error) {
		return nil, fmt.Errorf("plain failure")
	})
	d.RegisterHandler("test.panic", func(ctx context.Context, call *Call) (any, error) {
		panic("boom")
	})

	resp := decodeResponse(t, d.HandleMessage(context.Background(), nil,
		[]byte(`{"jsonrpc":"2.0","method":"test.fail","id":1}`)))
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeInternalError, resp.Error.Code)
	require.Contains(t, resp.Error.Message, "plain failure")

	resp = decodeResponse(t, d.HandleMessage(context.Background(), nil,
		[]byte(`{"jsonrpc":"2.0","method":"test.panic","id":2}`)))
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeInternalError, resp.Error.Code)
	require.Contains(t, resp.Error.Message, "boom")
}

func TestHooksTrigger_RunsPipeline(t *testing.T) {
	d, engine := newTestDispatcher(t)

	engine.Register(events.OnLLMChunk, func(ctx context.Context, hc hooks.Context) (events.Payload, error) {
		chunk := hc.Payload.(events.LLMChunk)
		chunk.Chunk = chunk.Chunk + "!"
		return chunk, nil
	})

	out := d.HandleMessage(context.Background(), nil,
		[]byte(`{"jsonrpc":"2.0","method":"hooks.trigger","params":{"event":"on:llm:chunk","payload":{"chunk":"hi","index":0}},"id":1}`))
	resp := decodeResponse(t, out)
	require.Nil(t, resp.Error)

	var result struct {
		Payload events.LLMChunk `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Equal(t, "hi!", result.Payload.Chunk)
}

func TestHooksTrigger_UnknownEvent(t *testing.T) {
	d, _ := newTestDispatcher(t)

	out := d.HandleMessage(context.Background(), nil,
		[]byte(`{"jsonrpc":"2.0","method":"hooks.trigger","params":{"event":"nope"},"id":1}`))
	resp := decodeResponse(t, out)

	require.NotNil(t, resp.Error)
	require.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestHooksRegister_RequiresCaller(t *testing.T) {
	d, _ := newTestDispatcher(t)

	out := d.HandleMessage(context.Background(), nil,
		[]byte(`{"jsonrpc":"2.0","method":"hooks.register","params":{"event":"on:llm:chunk"},"id":1}`))
	resp := decodeResponse(t, out)

	require.NotNil(t, resp.Error)
	require.Equal(t, CodeStateUnavailable, resp.Error.Code)
}

func TestHooksRegister_NotifiesOwnerAndReleasesOnDisconnect(t *testing.T) {
	d, engine := newTestDispatcher(t)
	caller := newFakeCaller("c1")

	out := d.HandleMessage(context.Background(), caller,
		[]byte(`{"jsonrpc":"2.0","method":"hooks.register","params":{"event":"on:llm:chunk"},"id":1}`))
	resp := decodeResponse(t, out)
	require.Nil(t, resp.Error)

	var result struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.NotEmpty(t, result.ID)

	engine.Trigger(context.Background(), events.OnLLMChunk, events.LLMChunk{Chunk: "hi"})
	require.Equal(t, 1, caller.notified(NotificationHookInvoked))

	// Disconnect releases the registration; further triggers stay silent.
	d.ReleaseCaller(caller.ID())
	require.Empty(t, engine.Hooks(events.OnLLMChunk))

	engine.Trigger(context.Background(), events.OnLLMChunk, events.LLMChunk{Chunk: "again"})
	require.Equal(t, 1, caller.notified(NotificationHookInvoked))
}

func TestHooksRegister_ConditionFiltersInvocations(t *testing.T) {
	d, engine := newTestDispatcher(t)
	caller := newFakeCaller("c1")

	out := d.HandleMessage(context.Background(), caller,
		[]byte(`{"jsonrpc":"2.0","method":"hooks.register","params":{"event":"on:llm:chunk","condition":"payload.index > 2"},"id":1}`))
	require.Nil(t, decodeResponse(t, out).Error)

	engine.Trigger(context.Background(), events.OnLLMChunk, events.LLMChunk{Chunk: "a", Index: 1})
	engine.Trigger(context.Background(), events.OnLLMChunk, events.LLMChunk{Chunk: "b", Index: 5})

	require.Equal(t, 1, caller.notified(NotificationHookInvoked))
}

func TestHooksRegister_BadCondition(t *testing.T) {
	d, _ := newTestDispatcher(t)
	caller := newFakeCaller("c1")

	out := d.HandleMessage(context.Background(), caller,
		[]byte(`{"jsonrpc":"2.0","method":"hooks.register","params":{"event":"on:llm:chunk","condition":"this is not CEL ((("},"id":1}`))
	resp := decodeResponse(t, out)

	require.NotNil(t, resp.Error)
	require.Equal(t, CodeHookRegistrationFailed, resp.Error.Code)
}

func TestHooksClear_SparesPinnedWiring(t *testing.T) {
	d, engine := newTestDispatcher(t)
	caller := newFakeCaller("c1")

	// Engine-owned wiring, e.g. the event forwarders and the sanitizer.
	pinnedID := engine.Register(events.OnLLMChunk, func(ctx context.Context, hc hooks.Context) (events.Payload, error) {
		return nil, nil
	}, hooks.WithPinned())

	out := d.HandleMessage(context.Background(), caller,
		[]byte(`{"jsonrpc":"2.0","method":"hooks.register","params":{"event":"on:llm:chunk"},"id":1}`))
	require.Nil(t, decodeResponse(t, out).Error)

	out = d.HandleMessage(context.Background(), caller,
		[]byte(`{"jsonrpc":"2.0","method":"hooks.clear","id":2}`))
	require.Nil(t, decodeResponse(t, out).Error)

	infos := engine.Hooks()
	require.Len(t, infos, 1, "remote clear removes remote hooks only")
	require.Equal(t, pinnedID, infos[0].ID)
}

func TestEventsSubscribe_GlobExpansion(t *testing.T) {
	d, _ := newTestDispatcher(t)
	caller := newFakeCaller("c1")

	out := d.HandleMessage(context.Background(), caller,
		[]byte(`{"jsonrpc":"2.0","method":"events.subscribe","params":{"events":["on:llm:*","scenario:load"]},"id":1}`))
	resp := decodeResponse(t, out)
	require.Nil(t, resp.Error)

	subs := caller.Subscriptions()
	require.ElementsMatch(t, []string{"on:llm:chunk", "on:llm:complete", "scenario:load"}, subs)
}

func TestEventsSubscribe_UnknownExactName(t *testing.T) {
	d, _ := newTestDispatcher(t)
	caller := newFakeCaller("c1")

	out := d.HandleMessage(context.Background(), caller,
		[]byte(`{"jsonrpc":"2.0","method":"events.subscribe","params":{"events":["no:such:event"]},"id":1}`))
	resp := decodeResponse(t, out)

	require.NotNil(t, resp.Error)
	require.Equal(t, CodeInvalidParams, resp.Error.Code)
	require.Empty(t, caller.Subscriptions())
}

func TestEventsSubscribe_RequiresCaller(t *testing.T) {
	d, _ := newTestDispatcher(t)

	out := d.HandleMessage(context.Background(), nil,
		[]byte(`{"jsonrpc":"2.0","method":"events.subscribe","params":{"events":["on:llm:*"]},"id":1}`))
	resp := decodeResponse(t, out)

	require.NotNil(t, resp.Error)
	require.Equal(t, CodeStateUnavailable, resp.Error.Code)
}

func TestEventsUnsubscribe(t *testing.T) {
	d, _ := newTestDispatcher(t)
	caller := newFakeCaller("c1")
	caller.Subscribe([]string{"on:llm:chunk", "on:llm:complete"})

	out := d.HandleMessage(context.Background(), caller,
		[]byte(`{"jsonrpc":"2.0","method":"events.unsubscribe","params":{"events":["on:llm:chunk"]},"id":1}`))
	require.Nil(t, decodeResponse(t, out).Error)

	require.ElementsMatch(t, []string{"on:llm:complete"}, caller.Subscriptions())
}

func TestSystemGetCapabilities(t *testing.T) {
	d, _ := newTestDispatcher(t)

	out := d.HandleMessage(context.Background(), nil,
		[]byte(`{"jsonrpc":"2.0","method":"system.getCapabilities","id":1}`))
	resp := decodeResponse(t, out)
	require.Nil(t, resp.Error)

	var caps struct {
		Protocol string   `json:"protocol"`
		Methods  []string `json:"methods"`
		Events   []string `json:"events"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &caps))
	require.Equal(t, ProtocolVersion, caps.Protocol)
	require.Contains(t, caps.Methods, "hooks.register")
	require.Contains(t, caps.Methods, "events.subscribe")
	require.Len(t, caps.Events, len(events.All()))
}

func TestChatSendMessage_RoundTrip(t *testing.T) {
	d, _ := newTestDispatcher(t)

	out := d.HandleMessage(context.Background(), nil,
		[]byte(`{"jsonrpc":"2.0","method":"chat.sendMessage","params":{"message":"hello there"},"id":1}`))
	resp := decodeResponse(t, out)
	require.Nil(t, resp.Error)

	var result struct {
		Reply string `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Contains(t, result.Reply, "hello")
}

func TestExpandPatterns_Dedup(t *testing.T) {
	names, rpcErr := expandPatterns([]string{"on:llm:chunk", "on:llm:*"})
	require.Nil(t, rpcErr)
	require.Equal(t, []string{"on:llm:chunk", "on:llm:complete"}, names)
}
