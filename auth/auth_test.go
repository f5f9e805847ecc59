package auth

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/mocks"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const secret = "test_secret_long_enough_for_hs256"

func TestSigner_Generate_And_Validate(t *testing.T) {
	req := require.New(t)
	signer := NewSigner(secret, time.Hour)
	userID := uuid.New()

	token, jti, err := signer.Generate(userID)
	req.NoError(err)
	req.NotEmpty(jti)

	claims, err := signer.Validate(token)
	req.NoError(err)
	req.Equal(userID.String(), claims.UserID)
	req.Equal(jti, claims.ID)
}

func TestSigner_Validate_Rejects(t *testing.T) {
	req := require.New(t)
	signer := NewSigner(secret, time.Hour)
	token, _, err := signer.Generate(uuid.New())
	req.NoError(err)

	// Signed with another secret
	_, err = NewSigner("another_secret_long_enough_for_hs256", time.Hour).Validate(token)
	req.Error(err)

	// Expired
	expired, _, err := NewSigner(secret, -time.Minute).Generate(uuid.New())
	req.NoError(err)
	_, err = signer.Validate(expired)
	req.ErrorIs(err, jwt.ErrTokenExpired)

	// Garbage
	_, err = signer.Validate("not.a.token")
	req.Error(err)
}

func TestTokenLookup_Lookup(t *testing.T) {
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	signer := NewSigner(secret, time.Hour)
	identity := domain.Identity{ID: uuid.New(), FirstName: "Ada", Active: true}

	t.Run("resolves a recorded token", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		tokens := mocks.NewMockITokenRepository(ctrl)
		identities := mocks.NewMockIIdentityRepository(ctrl)
		token, jti, err := signer.Generate(identity.ID)
		req.NoError(err)

		tokens.EXPECT().Owner(gomock.Any(), jti).Return(identity.ID, nil)
		identities.EXPECT().Get(gomock.Any(), identity.ID).Return(identity, nil)

		got, err := NewTokenLookup(log, signer, tokens, identities).Lookup(ctx, token)
		req.NoError(err)
		req.Equal(identity, got)
	})

	t.Run("revoked token is not found", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		tokens := mocks.NewMockITokenRepository(ctrl)
		identities := mocks.NewMockIIdentityRepository(ctrl)
		token, jti, err := signer.Generate(identity.ID)
		req.NoError(err)

		tokens.EXPECT().Owner(gomock.Any(), jti).Return(uuid.Nil, errors.ErrNotFound)
		identities.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)

		_, err = NewTokenLookup(log, signer, tokens, identities).Lookup(ctx, token)
		req.ErrorIs(err, errors.ErrNotFound)
	})

	t.Run("token recorded for someone else is not found", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		tokens := mocks.NewMockITokenRepository(ctrl)
		identities := mocks.NewMockIIdentityRepository(ctrl)
		token, jti, err := signer.Generate(identity.ID)
		req.NoError(err)

		tokens.EXPECT().Owner(gomock.Any(), jti).Return(uuid.New(), nil)

		_, err = NewTokenLookup(log, signer, tokens, identities).Lookup(ctx, token)
		req.ErrorIs(err, errors.ErrNotFound)
	})

	t.Run("invalid signature never reaches the stores", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		tokens := mocks.NewMockITokenRepository(ctrl)
		identities := mocks.NewMockIIdentityRepository(ctrl)

		_, err := NewTokenLookup(log, signer, tokens, identities).Lookup(ctx, "forged")
		req.ErrorIs(err, errors.ErrNotFound)
	})
}

type sendRequest struct {
	To      string `json:"to" validate:"required,uuid"`
	Content string `json:"content" validate:"required,max=10"`
}

func TestValidate(t *testing.T) {
	req := require.New(t)

	req.NoError(Validate(sendRequest{To: uuid.NewString(), Content: "hello"}))

	err := Validate(sendRequest{To: "bob", Content: strings.Repeat("a", 11)})
	var validationError *errors.ValidationError
	req.True(errors.As(err, &validationError))
	req.ErrorIs(err, errors.ErrInvalidPayload)
	req.Equal(map[string]string{
		"to":      "must be a valid uuid",
		"content": "must be at most 10 characters",
	}, validationError.Fields)

	err = Validate(sendRequest{})
	req.True(errors.As(err, &validationError))
	req.Equal("this field is required", validationError.Fields["to"])
}
