// Package domain contains core concepts of the relay.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event. ID and CreatedAt are
// assigned by the store at persistence time, never by the client.
type Message struct {
	ID         uuid.UUID
	Room       string
	SenderID   string
	SenderName string
	UserID     string
	Content    string
	CreatedAt  time.Time
}
