package services

import (
	"chat-hub/auth"
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/moderation"
	"chat-hub/resolver"
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Envelope types registered next to authorization and message.
const (
	TypeGetContacts      = "get_contacts"
	TypeGetContact       = "get_contact"
	TypeGetHistory       = "get_history"
	TypeOpenConversation = "open_conversation"
)

// Conn is the connection a resolver table is built for.
// Authenticate runs the authorization transition of the connection.
type Conn interface {
	resolver.Caller
	Authenticate(ctx context.Context, token string) (any, error)
}

type SendRequest struct {
	To      string `json:"to" validate:"required,uuid"`
	Content string `json:"content" validate:"required"`
}

type HistoryRequest struct {
	ID     string  `json:"id" validate:"required,uuid"`
	Cursor *string `json:"cursor"`
}

type OpenRequest struct {
	With string `json:"with" validate:"required,uuid"`
}

// ChatService holds the handlers behind the envelope types of an authenticated connection.
type ChatService struct {
	log              *slog.Logger
	identities       contract.IIdentityRepository
	conversations    contract.IConversationRepository
	broadcaster      contract.IBroadcaster
	moderator        *moderation.Moderator
	contacts         ContactCollection
	projection       ContactProjection
	maxContentLength int
}

// NewChatService accepts a nil moderator, content is then stored as sent.
func NewChatService(log *slog.Logger,
	identities contract.IIdentityRepository,
	sessions contract.ISessionRepository,
	conversations contract.IConversationRepository,
	broadcaster contract.IBroadcaster,
	moderator *moderation.Moderator,
	maxContentLength int) *ChatService {
	return &ChatService{
		log:              log,
		identities:       identities,
		conversations:    conversations,
		broadcaster:      broadcaster,
		moderator:        moderator,
		contacts:         NewContactCollection(conversations),
		projection:       NewContactProjection(identities, sessions),
		maxContentLength: maxContentLength,
	}
}

// Resolvers builds the dispatch table of one connection.
func (s *ChatService) Resolvers(conn Conn) resolver.Table {
	member := resolver.Query{CriterionMember: resolver.Bound(currentIdentity)}

	return resolver.Table{
		domain.TypeAuthorization: resolver.NewMethodResolver(func(ctx context.Context, _ resolver.Caller, payload resolver.Payload) (any, error) {
			token, _ := payload.String("token")
			return conn.Authenticate(ctx, token)
		}),
		TypeGetContacts: resolver.NewQueryResolver[domain.Conversation](s.contacts, s.projection,
			resolver.WithFilter(member),
			resolver.AsList("contacts"),
		),
		TypeGetContact: resolver.NewQueryResolver[domain.Conversation](s.contacts, s.projection,
			resolver.WithFilter(member),
			resolver.WithGet(resolver.Query{CriterionID: resolver.Bound(payloadUUID(CriterionID))}),
		),
		domain.TypeMessage: resolver.NewMethodResolver(func(ctx context.Context, caller resolver.Caller, payload resolver.Payload) (any, error) {
			identity, err := identityOf(caller)
			if err != nil {
				return nil, err
			}
			var req SendRequest
			if err := payload.Decode(&req); err != nil {
				return nil, err
			}
			// The sender gets its own copy through the broadcast, nothing is echoed
			_, err = s.Send(ctx, identity, req)
			return nil, err
		}),
		TypeGetHistory: resolver.NewMethodResolver(func(ctx context.Context, caller resolver.Caller, payload resolver.Payload) (any, error) {
			identity, err := identityOf(caller)
			if err != nil {
				return nil, err
			}
			var req HistoryRequest
			if err := payload.Decode(&req); err != nil {
				return nil, err
			}
			return s.History(ctx, identity, req)
		}),
		TypeOpenConversation: resolver.NewMethodResolver(func(ctx context.Context, caller resolver.Caller, payload resolver.Payload) (any, error) {
			identity, err := identityOf(caller)
			if err != nil {
				return nil, err
			}
			var req OpenRequest
			if err := payload.Decode(&req); err != nil {
				return nil, err
			}
			conversation, err := s.Open(ctx, identity, req)
			if err != nil {
				return nil, err
			}
			return s.projection.Project(ctx, caller, conversation)
		}),
	}
}

// Send stores the content in the conversation and fans it out once committed.
func (s *ChatService) Send(ctx context.Context, sender domain.Identity, req SendRequest) (domain.HistoryRecord, error) {
	if err := auth.Validate(req); err != nil {
		return domain.HistoryRecord{}, err
	}
	if s.maxContentLength > 0 && utf8.RuneCountInString(req.Content) > s.maxContentLength {
		return domain.HistoryRecord{}, errors.NewValidationError("content",
			fmt.Sprintf("must be at most %d characters", s.maxContentLength))
	}
	conversation, err := s.participantConversation(ctx, sender, req.To, "to")
	if err != nil {
		return domain.HistoryRecord{}, err
	}

	content := req.Content
	if s.moderator != nil {
		verdict := s.moderator.Moderate(content)
		content = verdict.Content
		if len(verdict.Words) > 0 {
			s.log.Info("Message censored",
				"user_id", sender.ID,
				"conversation_id", conversation.ID,
				"lang", verdict.Language,
				"words", len(verdict.Words))
		}
	}

	record, err := s.conversations.Append(ctx, conversation, sender.ID, content)
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	delivered := s.broadcaster.Fanout(ctx, conversation, record)
	s.log.Debug("Message stored", "record_id", record.ID, "conversation_id", conversation.ID, "delivered", delivered)
	return record, nil
}

// History returns one page of the conversation, most recent first, and marks
// the records sent by the peer as received.
func (s *ChatService) History(ctx context.Context, owner domain.Identity, req HistoryRequest) (map[string]any, error) {
	if err := auth.Validate(req); err != nil {
		return nil, err
	}
	conversation, err := s.participantConversation(ctx, owner, req.ID, "id")
	if err != nil {
		return nil, err
	}
	records, next, err := s.conversations.History(ctx, conversation.ID, req.Cursor)
	if err != nil {
		return nil, err
	}

	unread := lo.Filter(records, func(record domain.HistoryRecord, _ int) bool {
		return record.ReceivedAt == nil && record.DirectionFor(owner.ID) == domain.DirectionReceived
	})
	if len(unread) > 0 {
		marked, err := s.conversations.MarkReceived(ctx, unread, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		byID := lo.KeyBy(marked, func(record domain.HistoryRecord) uuid.UUID { return record.ID })
		records = lo.Map(records, func(record domain.HistoryRecord, _ int) domain.HistoryRecord {
			if updated, ok := byID[record.ID]; ok {
				return updated
			}
			return record
		})
	}

	messages := lo.Map(records, func(record domain.HistoryRecord, _ int) map[string]any {
		var receivedAt any
		if record.ReceivedAt != nil {
			receivedAt = record.ReceivedAt.Format(time.RFC3339Nano)
		}
		return map[string]any{
			"id":          record.ID.String(),
			"direction":   string(record.DirectionFor(owner.ID)),
			"content":     record.Content,
			"time":        record.CreatedAt.Format(time.RFC3339Nano),
			"received_at": receivedAt,
		}
	})
	var cursor any
	if next != nil {
		cursor = *next
	}
	return map[string]any{"messages": messages, "cursor": cursor}, nil
}

// Open gets or creates the conversation between owner and another active identity.
func (s *ChatService) Open(ctx context.Context, owner domain.Identity, req OpenRequest) (domain.Conversation, error) {
	if err := auth.Validate(req); err != nil {
		return domain.Conversation{}, err
	}
	peerID := uuid.MustParse(req.With)
	if peerID == owner.ID {
		return domain.Conversation{}, errors.NewValidationError("with", "cannot open a conversation with yourself")
	}
	peer, err := s.identities.Get(ctx, peerID)
	if errors.Is(err, errors.ErrNotFound) || (err == nil && !peer.Active) {
		return domain.Conversation{}, errors.NewValidationError("with", "not found")
	}
	if err != nil {
		return domain.Conversation{}, err
	}

	conversation, created, err := s.conversations.GetOrCreate(ctx, []uuid.UUID{owner.ID, peer.ID})
	if err != nil {
		return domain.Conversation{}, err
	}
	if created {
		s.log.Info("Conversation created", "conversation_id", conversation.ID, "user_id", owner.ID)
	}
	return conversation, nil
}

// participantConversation loads the conversation behind a validated uuid field.
// A conversation the identity is not part of is reported as not found.
func (s *ChatService) participantConversation(ctx context.Context, identity domain.Identity, rawID, field string) (domain.Conversation, error) {
	conversation, err := s.conversations.Get(ctx, uuid.MustParse(rawID))
	if errors.Is(err, errors.ErrNotFound) {
		return domain.Conversation{}, errors.NewValidationError(field, "conversation not found")
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	if !conversation.HasParticipant(identity.ID) {
		s.log.Warn("Access to a foreign conversation", "user_id", identity.ID, "conversation_id", conversation.ID)
		return domain.Conversation{}, errors.NewValidationError(field, "conversation not found")
	}
	return conversation, nil
}

func identityOf(caller resolver.Caller) (domain.Identity, error) {
	identity, ok := caller.Identity()
	if !ok {
		return domain.Identity{}, errors.ErrNotAuthorized
	}
	return identity, nil
}
