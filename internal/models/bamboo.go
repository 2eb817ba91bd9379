package models

import "time"

// Bamboo is a community of members. Its owner is always a member.
type Bamboo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsMember reports whether pseudo belongs to the bamboo.
func (b Bamboo) IsMember(pseudo string) bool {
	for _, m := range b.Members {
		if m == pseudo {
			return true
		}
	}
	return false
}

// Branch is a discussion channel of a bamboo.
type Branch struct {
	ID        string    `json:"id"`
	BambooID  string    `json:"bambooId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is a post sent in a branch.
type Message struct {
	ID       string    `json:"id"`
	BranchID string    `json:"branchId"`
	Sender   string    `json:"sender"`
	Content  string    `json:"content"`
	ReplyTo  *string   `json:"replyTo,omitempty"` // Nil unless the message answers another one
	Modified bool      `json:"modified"`
	SentAt   time.Time `json:"sentAt"`
}
