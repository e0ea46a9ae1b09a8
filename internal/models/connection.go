package models

import "time"

// ConnectionStatus is the state of a connection request.
type ConnectionStatus string

const (
	StatusPending  ConnectionStatus = "pending"
	StatusAccepted ConnectionStatus = "accepted"
	StatusRejected ConnectionStatus = "rejected"
	// StatusNone is reported when no record exists for a pair. It is never stored.
	StatusNone ConnectionStatus = "none"
)

// Valid reports whether s is a storable status.
func (s ConnectionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Connection is a directed request between two distinct users.
type Connection struct {
	ID         string           `json:"id"`
	SenderID   string           `json:"sender"`
	ReceiverID string           `json:"receiver"`
	Status     ConnectionStatus `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// Involves reports whether userID is the sender or the receiver.
func (c Connection) Involves(userID string) bool {
	return c.SenderID == userID || c.ReceiverID == userID
}

// Peer returns the party that is not userID.
func (c Connection) Peer(userID string) string {
	if c.SenderID == userID {
		return c.ReceiverID
	}
	return c.SenderID
}

// PairKey normalizes an unordered pair so both orientations share one key.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// ConnectionView is a connection listed from one user's perspective.
type ConnectionView struct {
	ID        string           `json:"id"`
	User      User             `json:"user"`
	Status    ConnectionStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	IsSender  bool             `json:"isSender"`
}

// ConnectionRef is the compact view returned by a status lookup.
type ConnectionRef struct {
	ID       string           `json:"id"`
	IsSender bool             `json:"isSender"`
	Status   ConnectionStatus `json:"status"`
}
