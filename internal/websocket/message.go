package websocket

import "encoding/json"

// Actions tagging websocket messages.
const (
	ActionEvent       = "event"
	ActionMessage     = "message"
	ActionSendMessage = "send_message"
	ActionError       = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewErrorMessage encodes an error reply for a client.
func NewErrorMessage(text string) []byte {
	data, _ := json.Marshal(Message{Action: ActionError, Payload: map[string]string{"error": text}})
	return data
}
