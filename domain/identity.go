// Package domain contains core concepts of the chat system.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity is a user reference owned by the account system.
// The core only reads it.
type Identity struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Active    bool
	CreatedAt time.Time
}

// DisplayName returns the first name and the last name separated by a space.
func (i Identity) DisplayName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}
