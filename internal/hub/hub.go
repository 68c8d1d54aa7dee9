package hub

import (
	"encoding/json"
	"sync"
)

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client represents a single client connection of a user.
// It's essentially a channel that the SSE handler will listen to.
type Client chan []byte

// Hub routes events to the open connections of each user.
type Hub struct {
	users map[uint]map[Client]bool
	mu    sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		users: make(map[uint]map[Client]bool),
	}
}

// Subscribe registers a client for the events of a user.
func (h *Hub) Subscribe(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[Client]bool)
	}
	h.users[userID][client] = true
}

// Unsubscribe removes a client and closes its channel.
func (h *Hub) Unsubscribe(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.users[userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client) // Close the channel to signal the SSE handler to stop.
			if len(clients) == 0 {
				delete(h.users, userID)
			}
		}
	}
}

// Subscribers reports how many clients a user has open.
func (h *Hub) Subscribers(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Broadcast sends an event to every client of a user. It returns the number
// of clients the event was delivered to.
func (h *Hub) Broadcast(userID uint, event Event) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.users[userID]
	if !ok {
		return 0, nil
	}

	messageBytes, err := json.Marshal(event)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for client := range clients {
		// Non-blocking send: a slow client drops events instead of stalling the hub.
		select {
		case client <- messageBytes:
			delivered++
		default:
		}
	}
	return delivered, nil
}
