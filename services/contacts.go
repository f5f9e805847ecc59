package services

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/resolver"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Criteria keys understood by ContactCollection.
const (
	CriterionID     = "id"
	CriterionMember = "member"
)

// ContactCollection exposes the conversations of one member as a resolver.Collection.
type ContactCollection struct {
	conversations contract.IConversationRepository
}

func NewContactCollection(conversations contract.IConversationRepository) ContactCollection {
	return ContactCollection{conversations: conversations}
}

// Select needs a member criterion, conversations are indexed by participant only.
func (c ContactCollection) Select(ctx context.Context, criteria resolver.Criteria) ([]domain.Conversation, error) {
	member, ok := criteria[CriterionMember].(uuid.UUID)
	if !ok {
		return nil, fmt.Errorf("%w: %s criterion is required", errors.ErrInvalidPayload, CriterionMember)
	}
	conversations, err := c.conversations.ListFor(ctx, member)
	if err != nil {
		return nil, err
	}
	return lo.Filter(conversations, func(conversation domain.Conversation, _ int) bool {
		return c.Matches(conversation, criteria)
	}), nil
}

func (c ContactCollection) Matches(conversation domain.Conversation, criteria resolver.Criteria) bool {
	for key, value := range criteria {
		id, ok := value.(uuid.UUID)
		if !ok {
			return false
		}
		switch key {
		case CriterionID:
			if conversation.ID != id {
				return false
			}
		case CriterionMember:
			if !conversation.HasParticipant(id) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// ContactProjection renders a conversation as seen by the caller:
// {id, display_name, online} where name and presence are the peer's.
type ContactProjection struct {
	identities contract.IIdentityRepository
	sessions   contract.ISessionRepository
}

func NewContactProjection(identities contract.IIdentityRepository, sessions contract.ISessionRepository) ContactProjection {
	return ContactProjection{identities: identities, sessions: sessions}
}

func (p ContactProjection) Project(ctx context.Context, caller resolver.Caller, conversation domain.Conversation) (map[string]any, error) {
	owner, ok := caller.Identity()
	if !ok {
		return nil, errors.ErrNotAuthorized
	}
	peerID, ok := conversation.Peer(owner.ID)
	if !ok {
		return nil, errors.NewValidationError(CriterionID, "not a conversation of the current identity")
	}
	peer, err := p.identities.Get(ctx, peerID)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, errors.NewValidationError("display_name", "contact not found")
	}
	if err != nil {
		return nil, err
	}

	online := false
	session, err := p.sessions.FindByOwner(ctx, peerID)
	switch {
	case err == nil:
		online = session.Online
	case !errors.Is(err, errors.ErrNotFound):
		return nil, err
	}

	return map[string]any{
		"id":           conversation.ID.String(),
		"display_name": peer.DisplayName(),
		"online":       online,
	}, nil
}

// currentIdentity binds a criterion to the identity of the connection at call time.
func currentIdentity(caller resolver.Caller, _ resolver.Payload) (any, error) {
	identity, ok := caller.Identity()
	if !ok {
		return nil, errors.ErrNotAuthorized
	}
	return identity.ID, nil
}

// payloadUUID binds a criterion to a uuid field of the payload.
func payloadUUID(key string) resolver.BoundFunc {
	return func(_ resolver.Caller, payload resolver.Payload) (any, error) {
		raw, ok := payload.String(key)
		if !ok {
			return nil, errors.NewValidationError(key, "this field is required")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.NewValidationError(key, "must be a valid uuid")
		}
		return id, nil
	}
}
