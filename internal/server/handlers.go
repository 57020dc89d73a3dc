package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/semperai/amica-bridge/internal/rpc"
)

// handleJSONRPC serves JSON-RPC 2.0 over HTTP POST. Batches are accepted;
// pure notification messages produce 204 No Content.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeRPCError(w, http.StatusRequestEntityTooLarge,
				rpc.NewError(rpc.CodeInvalidRequest, "request body exceeds %d bytes", maxErr.Limit))
			return
		}
		writeRPCError(w, http.StatusBadRequest,
			rpc.NewError(rpc.CodeParseError, "reading request body: %v", err))
		return
	}

	resp := s.dispatcher.HandleMessage(r.Context(), nil, body)
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": s.broker.ClientCount(),
	})
}

// writeRPCError emits a JSON-RPC error envelope with a null id, for
// failures detected before a request id could be parsed.
func writeRPCError(w http.ResponseWriter, status int, rpcErr *rpc.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": rpc.Version,
		"error":   rpcErr,
		"id":      nil,
	})
}
