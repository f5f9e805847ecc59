package repositories

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	sessionPrefix      = "session:id:"
	sessionOwnerPrefix = "session:owner:"
)

// SessionRepository is the presence store. One Session exists per identity,
// created on first authorization and never deleted.
type SessionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewSessionRepository(db *badger.DB, log *slog.Logger) SessionRepository {
	return SessionRepository{db: db, log: log}
}

type diskSession struct {
	ID        string
	OwnerID   string
	Online    bool
	CreatedAt int64
	Version   uint64
}

func sessionKey(id uuid.UUID) []byte {
	return []byte(sessionPrefix + id.String())
}

func sessionOwnerKey(ownerID uuid.UUID) []byte {
	return []byte(sessionOwnerPrefix + ownerID.String())
}

// GetOrCreate returns the Session of identity, creating it offline on first call.
// Two transactions racing on the same identity conflict on the owner key: the
// loser is retried and reads the Session committed by the winner.
func (r SessionRepository) GetOrCreate(ctx context.Context, identity domain.Identity) (domain.Session, bool, error) {
	var (
		session domain.Session
		created bool
	)
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		created = false
		existing, err := sessionByOwner(txn, identity.ID)
		if err == nil {
			session = existing
			return nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return err
		}

		session = domain.Session{
			ID:        uuid.New(),
			OwnerID:   identity.ID,
			Online:    false,
			CreatedAt: time.Now().UTC(),
			Version:   1,
		}
		if err = txn.Set(sessionOwnerKey(identity.ID), []byte(session.ID.String())); err != nil {
			return err
		}
		created = true
		return setValue(txn, sessionKey(session.ID), fromSession(session))
	})
	if err != nil {
		return domain.Session{}, false, err
	}
	if created {
		r.log.Debug("Session created", "session_id", session.ID, "user_id", identity.ID)
	}
	return session, created, nil
}

// SetOnline writes the online flag. The write is unconditional; the version is
// bumped inside the same transaction so concurrent writers are serialized by
// badger conflict detection instead of silently overwriting each other.
func (r SessionRepository) SetOnline(ctx context.Context, sessionID uuid.UUID, online bool) (domain.Session, error) {
	var session domain.Session
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		var disk diskSession
		if err := getValue(txn, sessionKey(sessionID), &disk); err != nil {
			return err
		}
		current, err := toSession(disk)
		if err != nil {
			return err
		}
		current.Online = online
		current.Version++
		session = current
		return setValue(txn, sessionKey(sessionID), fromSession(current))
	})
	if err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (r SessionRepository) Get(ctx context.Context, sessionID uuid.UUID) (domain.Session, error) {
	var session domain.Session
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		var disk diskSession
		if err := getValue(txn, sessionKey(sessionID), &disk); err != nil {
			return err
		}
		var err error
		session, err = toSession(disk)
		return err
	})
	return session, err
}

func (r SessionRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (domain.Session, error) {
	var session domain.Session
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		var err error
		session, err = sessionByOwner(txn, ownerID)
		return err
	})
	return session, err
}

// ListByOwners returns the sessions of the given identities. Identities that
// never authenticated have no session and are skipped.
func (r SessionRepository) ListByOwners(ctx context.Context, ownerIDs []uuid.UUID) ([]domain.Session, error) {
	var sessions []domain.Session
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		for _, ownerID := range ownerIDs {
			session, err := sessionByOwner(txn, ownerID)
			if errors.Is(err, errors.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			sessions = append(sessions, session)
		}
		return nil
	})
	return sessions, err
}

func sessionByOwner(txn *badger.Txn, ownerID uuid.UUID) (domain.Session, error) {
	item, err := txn.Get(sessionOwnerKey(ownerID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Session{}, fmt.Errorf("%w: no session for %s", errors.ErrNotFound, ownerID)
	}
	if err != nil {
		return domain.Session{}, err
	}
	var sessionID uuid.UUID
	if err = item.Value(func(val []byte) error {
		sessionID, err = uuid.ParseBytes(val)
		return err
	}); err != nil {
		return domain.Session{}, err
	}
	var disk diskSession
	if err = getValue(txn, sessionKey(sessionID), &disk); err != nil {
		return domain.Session{}, err
	}
	return toSession(disk)
}

func fromSession(session domain.Session) diskSession {
	return diskSession{
		ID:        session.ID.String(),
		OwnerID:   session.OwnerID.String(),
		Online:    session.Online,
		CreatedAt: session.CreatedAt.UnixNano(),
		Version:   session.Version,
	}
}

func toSession(disk diskSession) (domain.Session, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Session{}, err
	}
	ownerID, err := uuid.Parse(disk.OwnerID)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		ID:        id,
		OwnerID:   ownerID,
		Online:    disk.Online,
		CreatedAt: time.Unix(0, disk.CreatedAt).UTC(),
		Version:   disk.Version,
	}, nil
}
