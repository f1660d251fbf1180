package storage

import "time"

// ConversationRecord is a stored chat exchange: the full message history
// that was sent and the reply that came back.
type ConversationRecord struct {
	ID           string
	Model        string
	MessagesJSON string
	Reply        string
	CreatedAt    time.Time
}

// UserRecord is one row of the user mapping imported from CSV.
type UserRecord struct {
	DisplayName string
	Email       string
	ExternalID  string
	UpdatedAt   time.Time
}
