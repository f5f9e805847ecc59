package services

import (
	"chat-hub/auth"
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"fmt"
	"log/slog"
)

type IAuthService interface {
	Authorize(ctx context.Context, token string) (domain.Identity, error)
	Issue(ctx context.Context, identity domain.Identity) (string, error)
	Revoke(ctx context.Context, token string) error
}

// AuthService issues bearer tokens and turns them back into an authorized identity.
type AuthService struct {
	log    *slog.Logger
	signer auth.Signer
	tokens contract.ITokenRepository
	lookup contract.ITokenLookup
}

func NewAuthService(log *slog.Logger, signer auth.Signer,
	tokens contract.ITokenRepository, lookup contract.ITokenLookup) *AuthService {
	return &AuthService{log: log, signer: signer, tokens: tokens, lookup: lookup}
}

// Authorize maps every unresolved token to ErrAuthInvalid and an inactive identity to ErrAuthInactive.
func (s *AuthService) Authorize(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, errors.ErrAuthInvalid
	}
	identity, err := s.lookup.Lookup(ctx, token)
	if errors.Is(err, errors.ErrNotFound) {
		return domain.Identity{}, errors.ErrAuthInvalid
	}
	if err != nil {
		return domain.Identity{}, err
	}
	if !identity.Active {
		return domain.Identity{}, errors.ErrAuthInactive
	}
	return identity, nil
}

// Issue signs a token for identity and records its id so it can be revoked.
func (s *AuthService) Issue(ctx context.Context, identity domain.Identity) (string, error) {
	token, jti, err := s.signer.Generate(identity.ID)
	if err != nil {
		return "", err
	}
	if err := s.tokens.Store(ctx, jti, identity.ID); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}
	s.log.Debug("Token issued", "user_id", identity.ID, "token_id", jti)
	return token, nil
}

// Revoke forgets the token id. The signature stays valid but Lookup no longer resolves it.
func (s *AuthService) Revoke(ctx context.Context, token string) error {
	claims, err := s.signer.Validate(token)
	if err != nil {
		return errors.ErrAuthInvalid
	}
	return s.tokens.Revoke(ctx, claims.ID)
}
