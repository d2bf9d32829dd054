package model

import "time"

// Message is one persisted direct message. The id is assigned by the
// store at creation time and the row is never mutated afterwards.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	MediaURL   string    `json:"mediaUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// WireMessage is the enriched form delivered to room members: the
// sender and receiver ids expanded into full summaries.
type WireMessage struct {
	ID        int64       `json:"id"`
	Content   string      `json:"content"`
	MediaURL  string      `json:"mediaUrl,omitempty"`
	Sender    UserSummary `json:"sender"`
	Receiver  UserSummary `json:"receiver"`
	CreatedAt time.Time   `json:"createdAt"`
}
