package services

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"context"
	"fmt"
	"log/slog"
)

// PresenceService ties the online flag of a Session to the live connections of its owner.
// A Session stays online while at least one connection is subscribed to its group.
type PresenceService struct {
	log      *slog.Logger
	sessions contract.ISessionRepository
	registry contract.IRegistry
	locks    *keyedMutex
}

func NewPresenceService(log *slog.Logger, sessions contract.ISessionRepository, registry contract.IRegistry) *PresenceService {
	return &PresenceService{log: log, sessions: sessions, registry: registry, locks: newKeyedMutex()}
}

// Join gets or creates the Session of identity, subscribes sink to its group and flips it online.
func (p *PresenceService) Join(ctx context.Context, identity domain.Identity, sink contract.EventSink) (domain.Session, error) {
	session, created, err := p.sessions.GetOrCreate(ctx, identity)
	if err != nil {
		return domain.Session{}, fmt.Errorf("session of %s: %w", identity.ID, err)
	}
	if created {
		p.log.Debug("Session created", "session_id", session.ID, "user_id", identity.ID)
	}

	unlock := p.locks.Lock(session.ID)
	defer unlock()

	p.registry.Subscribe(session.Group(), sink)
	online, err := p.sessions.SetOnline(ctx, session.ID, true)
	if err != nil {
		p.registry.Unsubscribe(session.Group(), sink)
		return domain.Session{}, fmt.Errorf("session %s online: %w", session.ID, err)
	}
	p.log.Debug("Session online", "session_id", session.ID, "connections", p.registry.Count(session.Group()))
	return online, nil
}

// Leave unsubscribes sink and flips the Session offline when it was the last connection.
// The write uses a fresh context so a canceled connection still reaches the store.
func (p *PresenceService) Leave(ctx context.Context, session domain.Session, sink contract.EventSink) error {
	unlock := p.locks.Lock(session.ID)
	defer unlock()

	remaining := p.registry.Unsubscribe(session.Group(), sink)
	if remaining > 0 {
		p.log.Debug("Session still connected", "session_id", session.ID, "connections", remaining)
		return nil
	}
	if _, err := p.sessions.SetOnline(context.WithoutCancel(ctx), session.ID, false); err != nil {
		return fmt.Errorf("session %s offline: %w", session.ID, err)
	}
	p.log.Debug("Session offline", "session_id", session.ID)
	return nil
}
