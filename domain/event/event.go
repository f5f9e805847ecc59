package event

import (
	"chat-hub/domain"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is published to every sink subscribed to its group.
type DomainEvent interface {
	Group() domain.GroupName
}

// MessageDelivered is the fanout of one HistoryRecord to one Session group.
type MessageDelivered struct {
	Target         domain.GroupName
	RecordID       uuid.UUID
	ConversationID uuid.UUID
	Direction      domain.Direction
	Content        string
	At             time.Time
}

func (m MessageDelivered) Group() domain.GroupName {
	return m.Target
}

// Envelope renders the event as the outbound "message" envelope.
func (m MessageDelivered) Envelope() domain.Envelope {
	return domain.NewEnvelope(domain.TypeMessage, map[string]any{
		"conversation_id": m.ConversationID.String(),
		"direction":       string(m.Direction),
		"content":         m.Content,
		"time":            m.At.UTC().Format(time.RFC3339Nano),
	})
}
