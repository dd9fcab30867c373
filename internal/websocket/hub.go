package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeNewPost     MessageType = "new_post"
	MessageTypeError       MessageType = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    MessageType `json:"type"`
	GroupID string      `json:"group_id,omitempty"`
	Post    interface{} `json:"post,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewPostPayload represents the payload for new post notifications
type NewPostPayload struct {
	PostID  string    `json:"post_id"`
	TopicID string    `json:"topic_id"`
	GroupID string    `json:"group_id"`
	Sender  string    `json:"sender"`
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`
}

// Hub maintains the set of active clients and broadcasts new-post events to
// the clients subscribed to each group
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Group subscriptions: groupID -> set of clients
	subscriptions map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Subscribe to a group
	subscribe chan *subscriptionRequest

	// Unsubscribe from a group
	unsubscribeGroup chan *subscriptionRequest

	// Broadcast to group subscribers
	broadcast chan *broadcastMessage

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger
	logger *slog.Logger
}

type subscriptionRequest struct {
	client  *Client
	groupID string
}

type broadcastMessage struct {
	groupID string
	message []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:          make(map[*Client]bool),
		subscriptions:    make(map[string]map[*Client]bool),
		register:         make(chan *Client),
		unregister:       make(chan *Client),
		subscribe:        make(chan *subscriptionRequest),
		unsubscribeGroup: make(chan *subscriptionRequest),
		broadcast:        make(chan *broadcastMessage, 256),
		logger:           logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client registered")
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				// Remove from all subscriptions
				for groupID, subscribers := range h.subscriptions {
					delete(subscribers, client)
					if len(subscribers) == 0 {
						delete(h.subscriptions, groupID)
					}
				}
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unregistered")
			}

		case req := <-h.subscribe:
			h.mu.Lock()
			if h.subscriptions[req.groupID] == nil {
				h.subscriptions[req.groupID] = make(map[*Client]bool)
			}
			h.subscriptions[req.groupID][req.client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client subscribed to group", slog.String("group_id", req.groupID))
			}

		case req := <-h.unsubscribeGroup:
			h.mu.Lock()
			if subscribers, ok := h.subscriptions[req.groupID]; ok {
				delete(subscribers, req.client)
				if len(subscribers) == 0 {
					delete(h.subscriptions, req.groupID)
				}
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unsubscribed from group", slog.String("group_id", req.groupID))
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			subscribers := h.subscriptions[msg.groupID]
			for client := range subscribers {
				select {
				case client.send <- msg.message:
				default:
					// Client buffer full, skip
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe subscribes a client to a group
func (h *Hub) Subscribe(client *Client, groupID string) {
	h.subscribe <- &subscriptionRequest{client: client, groupID: groupID}
}

// Unsubscribe unsubscribes a client from a group
func (h *Hub) Unsubscribe(client *Client, groupID string) {
	h.unsubscribeGroup <- &subscriptionRequest{client: client, groupID: groupID}
}

// BroadcastNewPost broadcasts a new post notification to group subscribers
func (h *Hub) BroadcastNewPost(groupID string, payload *NewPostPayload) {
	msg := WSMessage{
		Type:    MessageTypeNewPost,
		GroupID: groupID,
		Post:    payload,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal broadcast message", slog.Any("error", err))
		}
		return
	}

	h.broadcast <- &broadcastMessage{
		groupID: groupID,
		message: data,
	}
}
