package repositories

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIdentityRepository_Create_And_Get(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewIdentityRepository(openTestDB(t))
	identity := domain.Identity{
		ID:        uuid.New(),
		FirstName: "Ada",
		LastName:  "Lovelace",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	req.NoError(repository.Create(ctx, identity))
	req.ErrorIs(repository.Create(ctx, identity), errors.ErrAlreadyExists)

	stored, err := repository.Get(ctx, identity.ID)
	req.NoError(err)
	req.Equal(identity.ID, stored.ID)
	req.Equal("Ada Lovelace", stored.DisplayName())
	req.True(identity.CreatedAt.Equal(stored.CreatedAt))

	_, err = repository.Get(ctx, uuid.New())
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestTokenRepository_Store_Owner_Revoke(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewTokenRepository(openTestDB(t))
	userID := uuid.New()

	req.NoError(repository.Store(ctx, "jti-1", userID))
	owner, err := repository.Owner(ctx, "jti-1")
	req.NoError(err)
	req.Equal(userID, owner)

	req.NoError(repository.Revoke(ctx, "jti-1"))
	_, err = repository.Owner(ctx, "jti-1")
	req.ErrorIs(err, errors.ErrNotFound)
}
