package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Hub fans events out to websocket clients. A client that subscribed to a
// session only receives that session's events and the global ones.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	// closed when Run returns
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run dispatches until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.dispatch(event)
		}
	}
}

// join registers client. It reports false when the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters client, or returns at once when the hub has stopped.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) dispatch(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.wants(event) {
			continue
		}
		select {
		case client.send <- message:
		default:
			// slow consumer
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// Broadcast queues an event without blocking. Events are dropped when the
// queue is full.
func (h *Hub) Broadcast(sessionID string, eventType EventType, data interface{}) {
	event := Event{
		SessionID: sessionID,
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- event:
	default:
	}
}

func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
