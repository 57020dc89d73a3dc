// Package realtime provides the WebSocket transport: JSON-RPC over a
// persistent connection plus per-connection event subscriptions fed by the
// forwarding bridge.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/semperai/amica-bridge/internal/rpc"
)

const (
	writeTimeout             = 10 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
	defaultSendBuffer        = 256
	defaultMaxMessageSize    = 512 * 1024
)

// NotificationWelcome greets a new connection with its client id and the
// server capabilities.
const NotificationWelcome = "system.welcome"

// NotificationHeartbeat is sent periodically on every open connection.
const NotificationHeartbeat = "system.heartbeat"

// Client is one connected WebSocket peer. It implements rpc.Caller so
// dispatched methods can reach back to the calling connection.
type Client struct {
	id         string
	conn       *websocket.Conn
	broker     *Broker
	dispatcher *rpc.Dispatcher

	mu            sync.RWMutex
	subscriptions map[string]struct{}

	sendCh chan []byte
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient wraps an accepted connection.
func NewClient(conn *websocket.Conn, broker *Broker, dispatcher *rpc.Dispatcher) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:            uuid.New().String(),
		conn:          conn,
		broker:        broker,
		dispatcher:    dispatcher,
		subscriptions: make(map[string]struct{}),
		sendCh:        make(chan []byte, broker.sendBuffer),
		done:          make(chan struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// ID returns the connection's client id.
func (c *Client) ID() string {
	return c.id
}

// Subscribe adds event names to this connection's subscription set.
func (c *Client) Subscribe(names []string) {
	c.mu.Lock()
	for _, name := range names {
		c.subscriptions[name] = struct{}{}
	}
	c.mu.Unlock()
	c.broker.updateStats()
}

// Unsubscribe removes event names from the subscription set.
func (c *Client) Unsubscribe(names []string) {
	c.mu.Lock()
	for _, name := range names {
		delete(c.subscriptions, name)
	}
	c.mu.Unlock()
	c.broker.updateStats()
}

// Subscriptions returns the subscribed event names.
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.subscriptions))
	for name := range c.subscriptions {
		names = append(names, name)
	}
	return names
}

func (c *Client) subscribed(event string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[event]
	return ok
}

func (c *Client) subscriptionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscriptions)
}

// Notify queues a notification for this connection. Messages are dropped,
// not blocked on, when the connection is closing or its buffer is full.
func (c *Client) Notify(method string, params any) error {
	return c.send(mustMarshalEnvelope(rpc.NewNotification(method, params)))
}

func (c *Client) send(data []byte) error {
	select {
	case <-c.done:
		return context.Canceled
	default:
	}

	select {
	case c.sendCh <- data:
		return nil
	case <-c.done:
		return context.Canceled
	default:
		log.Warn().Str("client_id", c.id).Msg("Client send buffer full, dropping message")
		return nil
	}
}

// Run services the connection until it closes.
func (c *Client) Run() {
	go c.writePump()
	go c.heartbeatPump()
	c.readPump()
}

// Close terminates the connection and releases its resources.
func (c *Client) Close() {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return
	default:
		close(c.done)
	}
	c.subscriptions = make(map[string]struct{})
	c.mu.Unlock()

	c.cancel()
	c.conn.Close(websocket.StatusNormalClosure, "closing")
}

// CloseGoingAway is used during broker shutdown.
func (c *Client) CloseGoingAway() {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return
	default:
		close(c.done)
	}
	c.subscriptions = make(map[string]struct{})
	c.mu.Unlock()

	c.cancel()
	c.conn.Close(websocket.StatusGoingAway, "server shutting down")
}

func (c *Client) readPump() {
	defer func() {
		c.broker.UnregisterClient(c.id)
		c.dispatcher.ReleaseCaller(c.id)
		c.Close()
	}()

	c.conn.SetReadLimit(c.broker.maxMessageSize)

	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				log.Debug().Err(err).Str("client_id", c.id).Msg("WebSocket read error")
			}
			return
		}

		if reply := c.dispatcher.HandleMessage(c.ctx, c, data); reply != nil {
			_ = c.send(reply)
		}
	}
}

func (c *Client) writePump() {
	for {
		select {
		case data := <-c.sendCh:
			ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("WebSocket write error")
				return
			}
		case <-c.done:
			return
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) heartbeatPump() {
	ticker := time.NewTicker(c.broker.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.Notify(NotificationHeartbeat, map[string]any{
				"time": time.Now().UTC().Format(time.RFC3339),
			})
		case <-c.done:
			return
		case <-c.ctx.Done():
			return
		}
	}
}
