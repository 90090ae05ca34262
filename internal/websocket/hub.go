// Package websocket pushes journaled events to the connected clients of a user.
package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Hub struct {
	clients    map[int64]map[*Client]struct{}
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Register reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.UserID]; !ok {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}
	h.logger.Debug("websocket client registered", "user_id", client.UserID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	userClients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := userClients[client]; !ok {
		return
	}
	delete(userClients, client)
	close(client.send)
	if len(userClients) == 0 {
		delete(h.clients, client.UserID)
	}
	h.logger.Debug("websocket client unregistered", "user_id", client.UserID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, userClients := range h.clients {
		for client := range userClients {
			close(client.send)
		}
		delete(h.clients, userID)
	}
}

// PublishEvent never blocks: a client whose buffer is full misses the event
// and has to catch up through the journal.
func (h *Hub) PublishEvent(userID int64, eventData []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- eventData:
		default:
			h.logger.Warn("websocket send buffer full, dropping event", "user_id", userID)
		}
	}
}

// ClientCount returns the number of live connections for userID.
func (h *Hub) ClientCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
