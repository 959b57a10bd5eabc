package ws

import (
	"brandwatch/internal/logging"
	"brandwatch/internal/model"
	"context"
	"encoding/json"
	"sync"
)

const (
	sendBuffer      = 256
	broadcastBuffer = 256
)

// Hub fans pipeline events out to connected dashboard clients
type Hub struct {
	conns map[*Connection]struct{}
	mu    sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan model.Event

	logger logging.Logger
}

// Connection represents one dashboard subscriber
type Connection struct {
	OperatorID string
	// BrandID limits delivery to one brand; empty receives every event
	BrandID string
	Send    chan []byte
	Hub     *Hub
}

// NewHub creates a new WebSocket hub
func NewHub(logger logging.Logger) *Hub {
	h := &Hub{
		conns:      make(map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan model.Event, broadcastBuffer),
		logger:     logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn] = struct{}{}
			h.mu.Unlock()
			h.logger.WithFields(logging.Fields{
				"operatorId": conn.OperatorID,
				"brandId":    conn.BrandID,
			}).Info("Event stream client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.conns[conn]; ok {
				delete(h.conns, conn)
				close(conn.Send)
				h.logger.WithField("operatorId", conn.OperatorID).Info("Event stream client disconnected")
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.WithError(err).Warn("Failed to encode event")
				continue
			}
			h.mu.RLock()
			for conn := range h.conns {
				if conn.BrandID != "" && event.BrandID != "" && conn.BrandID != event.BrandID {
					continue
				}
				select {
				case conn.Send <- data:
				default:
					// slow client, drop
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Deliver queues event for every matching client without blocking.
// Events are dropped when the hub is backed up.
func (h *Hub) Deliver(event model.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.WithField("type", event.Type).Warn("Event hub backed up, dropping event")
	}
}

// Notify lets the hub serve as an in-process notifier when no event bus is configured
func (h *Hub) Notify(_ context.Context, event model.Event) {
	h.Deliver(event)
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
