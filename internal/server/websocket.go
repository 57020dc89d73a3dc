package server

import (
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/semperai/amica-bridge/internal/realtime"
	"github.com/semperai/amica-bridge/internal/rpc"
)

// handleWebSocket upgrades the connection and hands it to the broker.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.Server.CORS.AllowedOrigins,
	})
	if err != nil {
		log.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(s.cfg.WebSocket.MaxMessageSize)

	client := realtime.NewClient(conn, s.broker, s.dispatcher)

	if err := s.broker.RegisterClient(client); err != nil {
		if errors.Is(err, realtime.ErrConnectionLimit) {
			log.Warn().
				Str("remote_addr", r.RemoteAddr).
				Int("limit", s.cfg.WebSocket.MaxConnections).
				Msg("Connection rejected, limit reached")
			_ = conn.Close(websocket.StatusPolicyViolation, "connection limit reached")
			return
		}
		_ = conn.Close(websocket.StatusInternalError, "registration failed")
		return
	}

	_ = client.Notify(realtime.NotificationWelcome, map[string]any{
		"clientId": client.ID(),
		"protocol": rpc.ProtocolVersion,
		"methods":  s.dispatcher.Methods(),
	})

	client.Run()
}
