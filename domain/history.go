package domain

import (
	"time"

	"github.com/google/uuid"
)

// Direction tells a session whether a message was emitted or received by its owner.
type Direction string

const (
	DirectionSend     Direction = "send"
	DirectionReceived Direction = "received"
)

// HistoryRecord is an immutable piece of conversation content.
// SenderID is nil when the sender has been removed.
type HistoryRecord struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       *uuid.UUID
	Content        string
	CreatedAt      time.Time
	ReceivedAt     *time.Time
}

// DirectionFor computes the direction of the record as seen by owner.
func (h HistoryRecord) DirectionFor(owner uuid.UUID) Direction {
	if h.SenderID != nil && *h.SenderID == owner {
		return DirectionSend
	}
	return DirectionReceived
}
