// Package rpc implements the JSON-RPC 2.0 method registry and dispatcher
// that exposes the hook engine and the avatar collaborators to external
// clients.
package rpc

import (
	"encoding/json"
	"fmt"
)

// Version is the only protocol version the dispatcher accepts.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes plus the application-reserved range.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeHookRegistrationFailed = -32000
	CodeHookNotFound           = -32001
	CodeActionFailed           = -32002
	CodeStateUnavailable       = -32003
	CodeConfigError            = -32004
	CodeChatError              = -32005
	CodeViewerError            = -32006
	CodeScenarioError          = -32007
)

// Request is a JSON-RPC 2.0 request or notification. A raw nil ID means the
// id field was absent, i.e. a notification; an explicit "null" id is still a
// request and gets a null-id response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response is a JSON-RPC 2.0 response. Exactly one of Result and Error is
// set; ID mirrors the request's, serializing as null when absent.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Notification is a server-initiated message with no response channel.
// Forwarded pipeline events use method "event:<name>".
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewNotification builds a notification envelope.
func NewNotification(method string, params any) *Notification {
	return &Notification{JSONRPC: Version, Method: method, Params: params}
}

// Error is a JSON-RPC 2.0 error object. It doubles as a Go error so handlers
// can return typed protocol errors directly.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewError builds an Error with a formatted message.
func NewError(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func successResponse(id json.RawMessage, result any) *Response {
	raw, err := json.Marshal(result)
	if err != nil {
		return errorResponse(id, NewError(CodeInternalError, "encoding result: %v", err))
	}
	if result == nil {
		raw = json.RawMessage("null")
	}
	return &Response{JSONRPC: Version, Result: raw, ID: id}
}

func errorResponse(id json.RawMessage, rpcErr *Error) *Response {
	return &Response{JSONRPC: Version, Error: rpcErr, ID: id}
}
