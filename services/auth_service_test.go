package services

import (
	"chat-hub/auth"
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newAuthService(t *testing.T) (*AuthService, *mocks.MockITokenRepository, *mocks.MockITokenLookup) {
	ctrl := gomock.NewController(t)
	tokens := mocks.NewMockITokenRepository(ctrl)
	lookup := mocks.NewMockITokenLookup(ctrl)
	signer := auth.NewSigner("auth_service_test_secret", time.Hour)
	return NewAuthService(logs.GetLoggerFromLevel(slog.LevelDebug), signer, tokens, lookup), tokens, lookup
}

func TestAuthService_Authorize(t *testing.T) {
	ctx := context.Background()
	active := domain.Identity{ID: uuid.New(), Active: true}
	inactive := domain.Identity{ID: uuid.New(), Active: false}

	t.Run("empty token is invalid without lookup", func(t *testing.T) {
		req := require.New(t)
		service, _, _ := newAuthService(t)
		_, err := service.Authorize(ctx, "")
		req.ErrorIs(err, errors.ErrAuthInvalid)
	})

	t.Run("unknown token is invalid", func(t *testing.T) {
		req := require.New(t)
		service, _, lookup := newAuthService(t)
		lookup.EXPECT().Lookup(gomock.Any(), "t").Return(domain.Identity{}, errors.ErrNotFound)
		_, err := service.Authorize(ctx, "t")
		req.ErrorIs(err, errors.ErrAuthInvalid)
	})

	t.Run("inactive identity is rejected", func(t *testing.T) {
		req := require.New(t)
		service, _, lookup := newAuthService(t)
		lookup.EXPECT().Lookup(gomock.Any(), "t").Return(inactive, nil)
		_, err := service.Authorize(ctx, "t")
		req.ErrorIs(err, errors.ErrAuthInactive)
	})

	t.Run("active identity is returned", func(t *testing.T) {
		req := require.New(t)
		service, _, lookup := newAuthService(t)
		lookup.EXPECT().Lookup(gomock.Any(), "t").Return(active, nil)
		identity, err := service.Authorize(ctx, "t")
		req.NoError(err)
		req.Equal(active, identity)
	})
}

func TestAuthService_Issue_Then_Revoke(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, tokens, _ := newAuthService(t)
	identity := domain.Identity{ID: uuid.New(), Active: true}

	// Given an issued token
	var stored string
	tokens.EXPECT().Store(gomock.Any(), gomock.Any(), identity.ID).
		DoAndReturn(func(_ context.Context, tokenID string, _ uuid.UUID) error {
			stored = tokenID
			return nil
		})
	token, err := service.Issue(ctx, identity)
	req.NoError(err)
	req.NotEmpty(stored)

	// When it is revoked the same token id is forgotten
	tokens.EXPECT().Revoke(gomock.Any(), stored).Return(nil)
	req.NoError(service.Revoke(ctx, token))

	// Then garbage cannot be revoked
	req.ErrorIs(service.Revoke(ctx, "garbage"), errors.ErrAuthInvalid)
}

func TestAuthService_Issue_Store_Failure(t *testing.T) {
	req := require.New(t)
	service, tokens, _ := newAuthService(t)
	tokens.EXPECT().Store(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.ErrNotFound)

	_, err := service.Issue(context.Background(), domain.Identity{ID: uuid.New()})
	req.ErrorIs(err, errors.ErrTokenGeneration)
}
