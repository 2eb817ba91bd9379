package websocket

import (
	"encoding/json"

	"github.com/isdelr/discordin/internal/models"
	"github.com/rs/zerolog/log"
)

// delivery is a message for the subscribers of a branch, or for a single
// client when client is set.
type delivery struct {
	branch string
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound messages for every client.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Outbound messages for a branch or a single client.
	deliveries chan delivery

	// A map of branch IDs to a set of clients subscribed to it.
	subscriptions map[string]map[*Client]bool

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:     make(chan []byte, 64),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		deliveries:    make(chan delivery, 64),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns once Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Msg("Client connected")
			// Clients opened on a branch receive its messages.
			if client.Branch != "" {
				h.addSubscription(client, client.Branch)
			}
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case message := <-h.Broadcast:
			for client := range h.clients {
				h.send(client, message)
			}
		case d := <-h.deliveries:
			if d.client != nil {
				if h.clients[d.client] {
					h.send(d.client, d.data)
				}
				continue
			}
			h.broadcastTo(d.branch, d.data)
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	close(h.done)
}

// Attach registers client with the hub. It reports false without blocking
// once the hub is stopped.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Publish broadcasts an activity event. It never blocks: the event is dropped
// when the broadcast queue is full.
func (h *Hub) Publish(event models.Event) {
	data, err := json.Marshal(Message{Action: ActionEvent, Payload: event})
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to marshal event")
		return
	}
	select {
	case h.Broadcast <- data:
	case <-h.done:
	default:
		log.Warn().Str("event_id", event.ID).Msg("Broadcast queue full, dropping event")
	}
}

// PublishMessage sends a branch message to the clients subscribed to its
// branch. Like Publish, it never blocks.
func (h *Hub) PublishMessage(message models.Message) {
	data, err := json.Marshal(Message{Action: ActionMessage, Payload: message})
	if err != nil {
		log.Error().Err(err).Str("message_id", message.ID).Msg("Failed to marshal message")
		return
	}
	h.deliver(delivery{branch: message.BranchID, data: data})
}

// Reply sends data to client only.
func (h *Hub) Reply(client *Client, data []byte) {
	h.deliver(delivery{client: client, data: data})
}

func (h *Hub) deliver(d delivery) {
	select {
	case h.deliveries <- d:
	case <-h.done:
	default:
		log.Warn().Str("branch_id", d.branch).Msg("Delivery queue full, dropping message")
	}
}

// broadcastTo sends a message to all clients subscribed to a specific branch ID.
func (h *Hub) broadcastTo(branchID string, message []byte) {
	for client := range h.subscriptions[branchID] {
		h.send(client, message)
	}
}

// send queues message for client, dropping the client when it is too slow.
func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client, branchID string) {
	if h.subscriptions[branchID] == nil {
		h.subscriptions[branchID] = make(map[*Client]bool)
	}
	h.subscriptions[branchID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for branchID, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, branchID)
			}
		}
	}
}
