package models

import "time"

// Event represents an entry of the member activity feed.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "user.register", "friend.add"
	Level     string    `json:"level"` // e.g., "info", "warn"
	Message   string    `json:"message"`
	Pseudo    *string   `json:"pseudo,omitempty"` // Nullable for site-wide events
	CreatedAt time.Time `json:"createdAt"`
}
