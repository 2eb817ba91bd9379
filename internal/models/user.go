package models

import "time"

// User represents a member account.
type User struct {
	Pseudo       string    `json:"pseudo"`
	Email        string    `json:"-"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	BirthDate    time.Time `json:"-"`
	RegisteredAt time.Time `json:"registeredAt"`
	LastLoginAt  time.Time `json:"lastLoginAt"`
	Friends      []string  `json:"friends"`
	Profile      *Profile  `json:"profile,omitempty"` // Nil when the member never filled one in
}

// HasFriend reports whether pseudo is in the user's friend list.
func (u User) HasFriend(pseudo string) bool {
	for _, f := range u.Friends {
		if f == pseudo {
			return true
		}
	}
	return false
}

// UserUpdate lists the account fields to change. Nil fields are left as they are.
type UserUpdate struct {
	Email     *string
	Password  *string
	BirthDate *time.Time
}
