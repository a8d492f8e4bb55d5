package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/metrics"
	"github.com/fortuna/gridiron/internal/service"
)

// Message types sent to clients
const (
	MessageTypeOdds  = "odds"
	MessageTypePong  = "pong"
	MessageTypeError = "error"
)

const broadcastBuffer = 64

// ErrBroadcastFull is returned when the hub cannot keep up with snapshots
var ErrBroadcastFull = errors.New("broadcast buffer full")

// Message is the envelope of everything written to a client
type Message struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub maintains the connected clients and fans snapshots out to them. It
// implements service.Listener.
type Hub struct {
	clients   map[*Client]bool
	clientsMu sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// last snapshot, replayed to new clients
	last   []byte
	lastMu sync.RWMutex

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHub creates a hub. m may be nil.
func NewHub(logger *zap.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With(zap.String("component", "ws-hub")),
		metrics:    m,
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, after
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case data := <-h.broadcast:
			h.broadcastMessage(data)
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.conn.Close()
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// OnSnapshot queues a snapshot for every connected client
func (h *Hub) OnSnapshot(_ context.Context, snap service.Snapshot) error {
	data, err := json.Marshal(Message{
		Type:      MessageTypeOdds,
		Payload:   snap,
		Timestamp: snap.FetchedAt,
	})
	if err != nil {
		return err
	}

	h.lastMu.Lock()
	h.last = data
	h.lastMu.Unlock()

	select {
	case h.broadcast <- data:
		return nil
	default:
		return ErrBroadcastFull
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(c *Client) {
	h.metrics.WSConnected(1)

	h.clientsMu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.clientsMu.Unlock()

	h.logger.Info("client connected", zap.String("client_id", c.ID), zap.Int("total", total))

	h.lastMu.RLock()
	last := h.last
	h.lastMu.RUnlock()
	if last != nil {
		c.TrySend(last)
	}
}

func (h *Hub) unregisterClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	h.metrics.WSConnected(-1)
	delete(h.clients, c)
	c.closeSend()

	h.logger.Info("client disconnected", zap.String("client_id", c.ID), zap.Int("total", len(h.clients)))
}

// broadcastMessage drops clients whose buffer is full
func (h *Hub) broadcastMessage(data []byte) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		if !c.TrySend(data) {
			h.logger.Warn("client buffer full, disconnecting", zap.String("client_id", c.ID))
			h.unregisterClient(c)
		}
	}
}

func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		c.closeSend()
		h.metrics.WSConnected(-1)
	}
	h.logger.Info("hub stopped")
}
