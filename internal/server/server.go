// Package server runs the bridge's two listeners: JSON-RPC over HTTP
// POST and JSON-RPC over WebSocket.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/semperai/amica-bridge/internal/config"
	"github.com/semperai/amica-bridge/internal/realtime"
	"github.com/semperai/amica-bridge/internal/rpc"
)

type Server struct {
	cfg        *config.Config
	dispatcher *rpc.Dispatcher
	broker     *realtime.Broker

	httpServer *http.Server
	wsServer   *http.Server
}

func New(cfg *config.Config, dispatcher *rpc.Dispatcher, broker *realtime.Broker) *Server {
	s := &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		broker:     broker,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      s.buildHTTPHandler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// No read/write timeouts on the realtime listener; connections are
	// long-lived and policed by the client heartbeat instead.
	s.wsServer = &http.Server{
		Addr:    cfg.WebSocket.Address(),
		Handler: s.buildWSHandler(),
	}

	return s
}

// Start runs both listeners and blocks until one of them fails or is
// shut down.
func (s *Server) Start(ctx context.Context) error {
	log.Info().
		Str("http_addr", s.httpServer.Addr).
		Str("ws_addr", s.wsServer.Addr).
		Str("ws_path", s.cfg.WebSocket.Path).
		Msg("Starting server")

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	go func() {
		errCh <- s.wsServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops both listeners and disconnects realtime clients.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down server")

	s.broker.Stop()
	log.Info().Msg("Realtime broker stopped")

	err := s.wsServer.Shutdown(ctx)
	if httpErr := s.httpServer.Shutdown(ctx); httpErr != nil && err == nil {
		err = httpErr
	}
	return err
}

// Dispatcher exposes the JSON-RPC dispatcher, mainly for tests.
func (s *Server) Dispatcher() *rpc.Dispatcher {
	return s.dispatcher
}

// Broker exposes the realtime broker, mainly for tests.
func (s *Server) Broker() *realtime.Broker {
	return s.broker
}
