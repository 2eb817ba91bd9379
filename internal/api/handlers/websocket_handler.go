package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/isdelr/discordin/internal/auth"
	"github.com/isdelr/discordin/internal/services"
	ws "github.com/isdelr/discordin/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles upgrading HTTP connections to WebSocket connections.
type WebSocketHandler struct {
	hub      *ws.Hub
	bamboos  services.BambooServiceProvider
	messages services.MessageServiceProvider
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler accepting connections
// from the site itself and from allowedOrigins.
func NewWebSocketHandler(hub *ws.Hub, bamboos services.BambooServiceProvider, messages services.MessageServiceProvider, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{hub: hub, bamboos: bamboos, messages: messages}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, allowedOrigins)
		},
	}
	return h
}

func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// Serve handles the WebSocket connection request. The connection receives
// every activity event published after it joined.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, "", "", nil)
}

// ServeBranch opens a connection on a branch for one of its members. The
// connection receives the messages of the branch and may post new ones.
func (h *WebSocketHandler) ServeBranch(w http.ResponseWriter, r *http.Request) {
	pseudo, ok := auth.PseudoFrom(r.Context())
	if !ok {
		http.Error(w, auth.LoginRequiredMessage, http.StatusUnauthorized)
		return
	}
	branchID := chi.URLParam(r, "id")

	_, err := h.bamboos.MemberBranch(r.Context(), branchID, pseudo)
	switch {
	case errors.Is(err, services.ErrBranchNotFound):
		http.Error(w, "Branch not found", http.StatusNotFound)
		return
	case errors.Is(err, services.ErrNotMember):
		http.Error(w, "Join the bamboo to follow this branch", http.StatusForbidden)
		return
	case err != nil:
		log.Error().Err(err).Str("branch_id", branchID).Msg("Failed to retrieve branch")
		http.Error(w, "Failed to retrieve branch", http.StatusInternalServerError)
		return
	}

	h.open(w, r, pseudo, branchID, h.handleIncomingWSMessage)
}

func (h *WebSocketHandler) open(w http.ResponseWriter, r *http.Request, pseudo, branchID string, handle func(*ws.Client, []byte)) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, pseudo, branchID)
	if !h.hub.Attach(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(handle)
}

// sendMessagePayload is the payload of a send_message action.
type sendMessagePayload struct {
	Content string  `json:"content"`
	ReplyTo *string `json:"replyTo"`
}

// handleIncomingWSMessage processes messages received from a branch client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg struct {
		Action  string          `json:"action"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Error().Err(err).Bytes("message", message).Msg("Error decoding websocket message")
		h.hub.Reply(client, ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case ws.ActionSendMessage:
		var payload sendMessagePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			h.hub.Reply(client, ws.NewErrorMessage("Invalid payload for send_message"))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := h.messages.PostMessage(ctx, client.Pseudo, client.Branch, payload.Content, payload.ReplyTo)
		if err != nil {
			h.hub.Reply(client, ws.NewErrorMessage(messageErrorText(err, client)))
		}

	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		h.hub.Reply(client, ws.NewErrorMessage("Unknown action: "+msg.Action))
	}
}

// messageErrorText turns a PostMessage error into a message for the sender.
func messageErrorText(err error, client *ws.Client) string {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return sentence(verr.Message)
	case errors.Is(err, services.ErrNotMember):
		return "Join the bamboo to post in this branch."
	case errors.Is(err, services.ErrBranchNotFound):
		return "This branch no longer exists."
	default:
		log.Error().Err(err).Str("pseudo", client.Pseudo).Str("branch_id", client.Branch).Msg("Failed to post message")
		return internalErrorMessage
	}
}
