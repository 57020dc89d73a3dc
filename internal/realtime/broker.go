package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/semperai/amica-bridge/internal/metrics"
	"github.com/semperai/amica-bridge/internal/rpc"
)

// ErrConnectionLimit is returned when the broker is at capacity.
var ErrConnectionLimit = errors.New("connection limit reached")

// BrokerConfig tunes the WebSocket transport.
type BrokerConfig struct {
	MaxConnections    int
	HeartbeatInterval time.Duration
	SendBuffer        int
	MaxMessageSize    int64
}

// Broker tracks connected clients and fans pipeline events out to their
// subscribers.
type Broker struct {
	maxConnections    int
	heartbeatInterval time.Duration
	sendBuffer        int
	maxMessageSize    int64

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewBroker creates an empty broker.
func NewBroker(cfg *BrokerConfig) *Broker {
	if cfg == nil {
		cfg = &BrokerConfig{}
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 64
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	return &Broker{
		maxConnections:    cfg.MaxConnections,
		heartbeatInterval: cfg.HeartbeatInterval,
		sendBuffer:        cfg.SendBuffer,
		maxMessageSize:    cfg.MaxMessageSize,
		clients:           make(map[string]*Client),
	}
}

// RegisterClient adds a client, rejecting it at the connection limit.
func (b *Broker) RegisterClient(client *Client) error {
	b.mu.Lock()
	if len(b.clients) >= b.maxConnections {
		b.mu.Unlock()
		return ErrConnectionLimit
	}
	b.clients[client.id] = client
	total := len(b.clients)
	b.mu.Unlock()

	b.updateStats()
	log.Debug().Str("client_id", client.id).Int("total_clients", total).Msg("Client connected")
	return nil
}

// UnregisterClient removes a client; its subscriptions die with it.
func (b *Broker) UnregisterClient(clientID string) {
	b.mu.Lock()
	_, ok := b.clients[clientID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.clients, clientID)
	total := len(b.clients)
	b.mu.Unlock()

	b.updateStats()
	log.Debug().Str("client_id", clientID).Int("total_clients", total).Msg("Client disconnected")
}

// BroadcastEvent sends an "event:<name>" notification to every connection
// subscribed to the event. Sends to closing connections are dropped silently.
func (b *Broker) BroadcastEvent(event string, payload any) {
	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		if client.subscribed(event) {
			clients = append(clients, client)
		}
	}
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	data := mustMarshalEnvelope(rpc.NewNotification("event:"+event, payload))
	for _, client := range clients {
		_ = client.send(data)
	}

	metrics.RecordEventForwarded(event)
}

// ClientCount returns the number of open connections.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// SubscriptionCount returns the number of subscriptions across connections.
func (b *Broker) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, client := range b.clients {
		total += client.subscriptionCount()
	}
	return total
}

// Stop closes every connection.
func (b *Broker) Stop() {
	b.mu.Lock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.clients = make(map[string]*Client)
	b.mu.Unlock()

	for _, client := range clients {
		client.CloseGoingAway()
	}
	b.updateStats()
}

func (b *Broker) updateStats() {
	metrics.UpdateWebSocketStats(b.ClientCount(), b.SubscriptionCount())
}

func mustMarshalEnvelope(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshaling envelope: %v", err))
	}
	return data
}
