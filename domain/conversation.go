package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a two-party chat. Participants are kept sorted so that a
// pair of identities maps to a single conversation whatever the order.
type Conversation struct {
	ID           uuid.UUID
	Key          uuid.UUID
	Participants [2]uuid.UUID
	CreatedAt    time.Time
}

// SortedPair orders two identity ids the way Conversation stores them.
func SortedPair(a, b uuid.UUID) [2]uuid.UUID {
	if a.String() > b.String() {
		return [2]uuid.UUID{b, a}
	}
	return [2]uuid.UUID{a, b}
}

func (c Conversation) HasParticipant(id uuid.UUID) bool {
	return c.Participants[0] == id || c.Participants[1] == id
}

// Peer returns the participant that is not id.
func (c Conversation) Peer(id uuid.UUID) (uuid.UUID, bool) {
	switch id {
	case c.Participants[0]:
		return c.Participants[1], true
	case c.Participants[1]:
		return c.Participants[0], true
	default:
		return uuid.Nil, false
	}
}
