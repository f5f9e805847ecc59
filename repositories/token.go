package repositories

import (
	"chat-hub/errors"
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const tokenPrefix = "token:"

// TokenRepository records the issued token ids. A token whose id is absent
// has never been issued or has been revoked.
type TokenRepository struct {
	db *badger.DB
}

func NewTokenRepository(db *badger.DB) TokenRepository {
	return TokenRepository{db: db}
}

func tokenKey(tokenID string) []byte {
	return []byte(tokenPrefix + tokenID)
}

func (r TokenRepository) Store(ctx context.Context, tokenID string, userID uuid.UUID) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		return txn.Set(tokenKey(tokenID), []byte(userID.String()))
	})
}

func (r TokenRepository) Owner(ctx context.Context, tokenID string) (uuid.UUID, error) {
	var owner uuid.UUID
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		item, err := txn.Get(tokenKey(tokenID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: token %s", errors.ErrNotFound, tokenID)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			owner, err = uuid.ParseBytes(val)
			return err
		})
	})
	return owner, err
}

func (r TokenRepository) Revoke(ctx context.Context, tokenID string) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		return txn.Delete(tokenKey(tokenID))
	})
}
