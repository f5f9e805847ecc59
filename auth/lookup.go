package auth

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// TokenLookup resolves a bearer token into the identity it was issued for.
// A token is accepted only when its signature is valid, it is not expired and
// its id is still recorded in the token store for the same user.
type TokenLookup struct {
	log        *slog.Logger
	signer     Signer
	tokens     contract.ITokenRepository
	identities contract.IIdentityRepository
}

func NewTokenLookup(log *slog.Logger, signer Signer,
	tokens contract.ITokenRepository, identities contract.IIdentityRepository) *TokenLookup {
	return &TokenLookup{log: log, signer: signer, tokens: tokens, identities: identities}
}

// Lookup fails with ErrNotFound for any token that does not resolve to an identity.
// The identity is returned whether active or not.
func (l *TokenLookup) Lookup(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := l.signer.Validate(token)
	if err != nil {
		l.log.Debug("Token rejected", "error", err)
		return domain.Identity{}, fmt.Errorf("%w: token", errors.ErrNotFound)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: token user", errors.ErrNotFound)
	}

	owner, err := l.tokens.Owner(ctx, claims.ID)
	if err != nil {
		return domain.Identity{}, err
	}
	if owner != userID {
		l.log.Warn("Token owner mismatch", "user_id", userID, "token_id", claims.ID)
		return domain.Identity{}, fmt.Errorf("%w: token", errors.ErrNotFound)
	}

	return l.identities.Get(ctx, userID)
}
