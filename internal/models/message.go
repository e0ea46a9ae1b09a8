package models

import "time"

// Message is a direct message between two connected users.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"-"`
	ReceiverID string    `json:"-"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MessageView is a message with both parties resolved to summaries.
type MessageView struct {
	Message
	Sender   UserSummary `json:"sender"`
	Receiver UserSummary `json:"receiver"`
}

// ConversationSummary is the latest state of a thread with one peer.
type ConversationSummary struct {
	User            UserSummary `json:"user"`
	LastMessage     string      `json:"lastMessage"`
	LastMessageDate time.Time   `json:"lastMessageDate"`
	Unread          bool        `json:"unread"`
}
