package repositories

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const identityPrefix = "user:"

type IdentityRepository struct {
	db *badger.DB
}

func NewIdentityRepository(db *badger.DB) IdentityRepository {
	return IdentityRepository{db: db}
}

// diskIdentity is the stored representation of a domain.Identity.
type diskIdentity struct {
	ID        string
	FirstName string
	LastName  string
	Active    bool
	CreatedAt int64
}

func identityKey(id uuid.UUID) []byte {
	return []byte(identityPrefix + id.String())
}

// Create persists a new identity, failing with ErrAlreadyExists when the id is taken.
func (r IdentityRepository) Create(ctx context.Context, identity domain.Identity) error {
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}
	return update(ctx, r.db, func(txn *badger.Txn) error {
		key := identityKey(identity.ID)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrAlreadyExists
		}
		return setValue(txn, key, fromIdentity(identity))
	})
}

func (r IdentityRepository) Get(ctx context.Context, id uuid.UUID) (domain.Identity, error) {
	var disk diskIdentity
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		return getValue(txn, identityKey(id), &disk)
	})
	if err != nil {
		return domain.Identity{}, err
	}
	return toIdentity(disk)
}

func fromIdentity(identity domain.Identity) diskIdentity {
	return diskIdentity{
		ID:        identity.ID.String(),
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Active:    identity.Active,
		CreatedAt: identity.CreatedAt.UnixNano(),
	}
}

func toIdentity(disk diskIdentity) (domain.Identity, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		ID:        id,
		FirstName: disk.FirstName,
		LastName:  disk.LastName,
		Active:    disk.Active,
		CreatedAt: time.Unix(0, disk.CreatedAt).UTC(),
	}, nil
}
