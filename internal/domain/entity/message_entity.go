package entity

import "time"

// Message is one row of the append-only message log. Messages are never
// edited or deleted; ordering is by SentAt (database clock, best effort
// under clock skew). FromName/ToName are denormalized for display and not
// stored on the row.
type Message struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sent_at"`
	Read       bool      `json:"read"`

	FromName string `json:"from_user_name"`
	ToName   string `json:"to_user_name"`
}

// Conversation is a derived, per-viewer view over the message log grouped
// by counterpart. It is never stored.
type Conversation struct {
	CounterpartID   string    `json:"counterpartId"`
	CounterpartName string    `json:"counterpartName"`
	CounterpartRole string    `json:"counterpartRole"`
	Messages        []Message `json:"messages"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	IsRead          bool      `json:"isRead"`

	// Placeholder is set instead of messages when the viewer has a live
	// connection with the counterpart but no messages yet ("Request sent").
	Placeholder string `json:"placeholder,omitempty"`
}
