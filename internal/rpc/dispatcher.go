package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/semperai/amica-bridge/internal/chat"
	"github.com/semperai/amica-bridge/internal/hooks"
	"github.com/semperai/amica-bridge/internal/metrics"
	"github.com/semperai/amica-bridge/internal/scenario"
	"github.com/semperai/amica-bridge/internal/viewer"
)

// Caller is the connection a request arrived on. Only WebSocket connections
// implement it; HTTP requests dispatch with a nil Caller, so subscription and
// remote-hook methods are unavailable there.
type Caller interface {
	ID() string
	Subscribe(names []string)
	Unsubscribe(names []string)
	Subscriptions() []string
	Notify(method string, params any) error
}

// Handler executes one RPC method. Returning an *Error surfaces it verbatim;
// any other error becomes an Internal-Error response.
type Handler func(ctx context.Context, call *Call) (any, error)

// Call carries the per-invocation inputs to a Handler.
type Call struct {
	Params json.RawMessage
	Caller Caller
}

// Deps are the collaborators the built-in method handlers reach into.
type Deps struct {
	Hooks    *hooks.Engine
	Chat     *chat.Manager
	Viewer   *viewer.Viewer
	Scenario *scenario.Store
}

// Dispatcher maps method names to handlers and executes JSON-RPC traffic.
type Dispatcher struct {
	deps *Deps

	mu       sync.RWMutex
	handlers map[string]Handler

	// hook ids registered on behalf of each connected caller, released when
	// the connection closes.
	ownedMu sync.Mutex
	owned   map[string][]string
}

// NewDispatcher creates a dispatcher with every built-in method registered.
func NewDispatcher(deps *Deps) *Dispatcher {
	d := &Dispatcher{
		deps:     deps,
		handlers: make(map[string]Handler),
		owned:    make(map[string][]string),
	}
	d.registerBuiltins()
	return d
}

// RegisterHandler binds method to handler, replacing any previous binding.
func (d *Dispatcher) RegisterHandler(method string, handler Handler) {
	d.mu.Lock()
	d.handlers[method] = handler
	d.mu.Unlock()

	log.Debug().Str("method", method).Msg("RPC handler registered")
}

// Methods returns every registered method name, sorted.
func (d *Dispatcher) Methods() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) lookup(method string) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[method]
	return h, ok
}

// HandleRequest validates and executes a single request, always returning a
// response correlated by the request's id (including null ids).
func (d *Dispatcher) HandleRequest(ctx context.Context, caller Caller, req *Request) *Response {
	if req.JSONRPC != Version || req.Method == "" {
		return errorResponse(req.ID, NewError(CodeInvalidRequest, "invalid request"))
	}

	handler, ok := d.lookup(req.Method)
	if !ok {
		return errorResponse(req.ID, NewError(CodeMethodNotFound, "method not found: %s", req.Method))
	}

	start := time.Now()
	result, err := d.invoke(ctx, handler, &Call{Params: req.Params, Caller: caller})
	if err != nil {
		metrics.RecordRPCRequest(req.Method, "error", time.Since(start))

		var rpcErr *Error
		if !errors.As(err, &rpcErr) {
			rpcErr = NewError(CodeInternalError, "%s", err.Error())
		}
		log.Debug().
			Str("method", req.Method).
			Int("code", rpcErr.Code).
			Str("error", rpcErr.Message).
			Msg("RPC request failed")
		return errorResponse(req.ID, rpcErr)
	}

	metrics.RecordRPCRequest(req.Method, "ok", time.Since(start))
	return successResponse(req.ID, result)
}

// HandleNotification executes a request that expects no response. Unknown
// methods and handler failures are logged and dropped.
func (d *Dispatcher) HandleNotification(ctx context.Context, caller Caller, req *Request) {
	if req.JSONRPC != Version || req.Method == "" {
		log.Debug().Msg("Dropping malformed notification")
		return
	}

	handler, ok := d.lookup(req.Method)
	if !ok {
		log.Debug().Str("method", req.Method).Msg("Dropping notification for unknown method")
		return
	}

	if _, err := d.invoke(ctx, handler, &Call{Params: req.Params, Caller: caller}); err != nil {
		log.Warn().Err(err).Str("method", req.Method).Msg("Notification handler failed")
	}
}

// HandleBatch executes every entry concurrently and returns the responses in
// input order. Notifications contribute no response entry.
func (d *Dispatcher) HandleBatch(ctx context.Context, caller Caller, reqs []json.RawMessage) []*Response {
	slots := make([]*Response, len(reqs))

	var wg sync.WaitGroup
	for i, raw := range reqs {
		wg.Add(1)
		go func(i int, raw json.RawMessage) {
			defer wg.Done()
			slots[i] = d.handleRaw(ctx, caller, raw)
		}(i, raw)
	}
	wg.Wait()

	responses := make([]*Response, 0, len(reqs))
	for _, resp := range slots {
		if resp != nil {
			responses = append(responses, resp)
		}
	}
	return responses
}

// handleRaw dispatches one raw envelope; nil means no response is owed.
func (d *Dispatcher) handleRaw(ctx context.Context, caller Caller, raw json.RawMessage) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, NewError(CodeInvalidRequest, "invalid request"))
	}

	if req.IsNotification() {
		d.HandleNotification(ctx, caller, &req)
		return nil
	}
	return d.HandleRequest(ctx, caller, &req)
}

// HandleMessage is the transport entry point: it classifies raw bytes as a
// batch (JSON array) or a single request/notification and returns the bytes
// to write back, or nil when nothing is owed.
func (d *Dispatcher) HandleMessage(ctx context.Context, caller Caller, data []byte) []byte {
	trimmed := firstNonSpace(data)

	if trimmed == '[' {
		var reqs []json.RawMessage
		if err := json.Unmarshal(data, &reqs); err != nil {
			return mustMarshal(errorResponse(nil, NewError(CodeParseError, "parse error")))
		}
		if len(reqs) == 0 {
			return mustMarshal(errorResponse(nil, NewError(CodeInvalidRequest, "empty batch")))
		}
		responses := d.HandleBatch(ctx, caller, reqs)
		if len(responses) == 0 {
			return nil
		}
		return mustMarshal(responses)
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		// Valid JSON with wrong field types (e.g. a numeric method) is a
		// malformed envelope, not a syntax error.
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return mustMarshal(errorResponse(nil, NewError(CodeInvalidRequest, "invalid request")))
		}
		return mustMarshal(errorResponse(nil, NewError(CodeParseError, "parse error")))
	}

	if req.IsNotification() {
		d.HandleNotification(ctx, caller, &req)
		return nil
	}
	return mustMarshal(d.HandleRequest(ctx, caller, &req))
}

func (d *Dispatcher) invoke(ctx context.Context, handler Handler, call *Call) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(CodeInternalError, "handler panic: %v", r)
		}
	}()
	return handler(ctx, call)
}

// trackOwnedHook remembers that a hook registration belongs to a caller so it
// can be released when the connection closes.
func (d *Dispatcher) trackOwnedHook(callerID, hookID string) {
	d.ownedMu.Lock()
	d.owned[callerID] = append(d.owned[callerID], hookID)
	d.ownedMu.Unlock()
}

func (d *Dispatcher) forgetOwnedHook(callerID, hookID string) {
	d.ownedMu.Lock()
	defer d.ownedMu.Unlock()

	ids := d.owned[callerID]
	for i, id := range ids {
		if id == hookID {
			d.owned[callerID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(d.owned[callerID]) == 0 {
		delete(d.owned, callerID)
	}
}

// ReleaseCaller unregisters every hook a disconnected caller owned.
// Subscriptions die with the connection itself.
func (d *Dispatcher) ReleaseCaller(callerID string) {
	d.ownedMu.Lock()
	ids := d.owned[callerID]
	delete(d.owned, callerID)
	d.ownedMu.Unlock()

	for _, id := range ids {
		d.deps.Hooks.Unregister(id)
	}

	if len(ids) > 0 {
		log.Debug().Str("caller_id", callerID).Int("hooks", len(ids)).Msg("Released caller-owned hooks")
	}
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Response types marshal from plain structs; failure here is a bug.
		panic(fmt.Sprintf("marshaling response: %v", err))
	}
	return data
}
