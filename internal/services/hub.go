package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ProgressUpdate is broadcast to websocket clients while a simulation runs.
type ProgressUpdate struct {
	Type      string    `json:"type"` // "progress" or "completed"
	RunID     string    `json:"run_id"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is one websocket subscriber.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
	hub  *ProgressHub
}

// ProgressHub fans simulation progress out to connected websocket clients.
type ProgressHub struct {
	clients    map[*Client]bool
	broadcast  chan ProgressUpdate
	register   chan *Client
	unregister chan *Client
	logger     *logrus.Logger
	mu         sync.RWMutex
}

func NewProgressHub(logger *logrus.Logger) *ProgressHub {
	return &ProgressHub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan ProgressUpdate, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run handles registration and broadcast; call it in its own goroutine.
func (h *ProgressHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.WithField("clients", h.clientCount()).Debug("Websocket client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case update := <-h.broadcast:
			h.broadcastUpdate(update)
		}
	}
}

// Broadcast queues a progress update without blocking the simulation.
func (h *ProgressHub) Broadcast(update ProgressUpdate) {
	update.Timestamp = time.Now().UTC()
	select {
	case h.broadcast <- update:
	default:
		// Drop updates rather than stall a run when nobody is draining.
	}
}

// Register attaches a new client and starts its write pump.
func (h *ProgressHub) Register(conn *websocket.Conn) *Client {
	client := &Client{
		Conn: conn,
		Send: make(chan []byte, 64),
		hub:  h,
	}
	h.register <- client
	go client.writePump()
	return client
}

// Unregister detaches a client.
func (h *ProgressHub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *ProgressHub) broadcastUpdate(update ProgressUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to marshal progress update")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- payload:
		default:
			// Slow client; skip this update for it.
		}
	}
}

func (h *ProgressHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) writePump() {
	defer c.Conn.Close()
	for payload := range c.Send {
		c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.hub.Unregister(c)
			return
		}
	}
}
