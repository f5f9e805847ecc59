package domain

import (
	"time"

	"github.com/google/uuid"
)

// GroupName names a broadcast group. Every live connection of a Session
// subscribes to the group named after the Session id.
type GroupName string

// Session is the presence record of an Identity.
// There is exactly one Session per Identity and it is never deleted.
type Session struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Online    bool
	CreatedAt time.Time
	// Version increments on every write of the record.
	Version uint64
}

func (s Session) Group() GroupName {
	return GroupName(s.ID.String())
}
