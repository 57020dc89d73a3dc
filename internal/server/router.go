package server

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"github.com/semperai/amica-bridge/internal/metrics"
)

type Middleware func(http.Handler) http.Handler

// buildHTTPHandler assembles the HTTP endpoint: JSON-RPC over POST plus
// health and metrics, wrapped in the shared middleware chain and gzip.
func (s *Server) buildHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /amica/jsonrpc", s.handleJSONRPC)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	chain := []Middleware{
		RecoveryMiddleware,
		RequestIDMiddleware,
		LoggingMiddleware,
		MetricsMiddleware,
		MaxBodySizeMiddleware(s.cfg.Server.MaxBodySize),
	}
	if s.cfg.Server.CORS.Enabled {
		chain = append(chain, CORSMiddleware(s.cfg.Server.CORS))
	}
	if s.cfg.Auth.Enabled() {
		chain = append(chain, AuthMiddleware(s.cfg.Auth))
	}

	return gzhttp.GzipHandler(wrap(mux, chain))
}

// buildWSHandler assembles the realtime endpoint. The upgrade path skips
// body-size and gzip middleware; framing limits are enforced per message.
func (s *Server) buildWSHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+s.cfg.WebSocket.Path, s.handleWebSocket)

	chain := []Middleware{
		RecoveryMiddleware,
		RequestIDMiddleware,
	}
	if s.cfg.Auth.Enabled() {
		chain = append(chain, AuthMiddleware(s.cfg.Auth))
	}

	return wrap(mux, chain)
}

// wrap applies middlewares so the first in the slice runs first.
func wrap(h http.Handler, chain []Middleware) http.Handler {
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}
