//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself, the supervisor restarts it.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives the events published to a group it subscribed to.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the publish/subscribe directory of live connections keyed by group name.
type IRegistry interface {
	Subscribe(group domain.GroupName, sink EventSink)
	// Unsubscribe returns the number of sinks left in the group.
	Unsubscribe(group domain.GroupName, sink EventSink) int
	SinksFor(group domain.GroupName) []EventSink
	Count(group domain.GroupName) int
	Groups() int
}

type IIdentityRepository interface {
	Create(ctx context.Context, identity domain.Identity) error
	Get(ctx context.Context, id uuid.UUID) (domain.Identity, error)
}

type ITokenRepository interface {
	Store(ctx context.Context, tokenID string, userID uuid.UUID) error
	Owner(ctx context.Context, tokenID string) (uuid.UUID, error)
	Revoke(ctx context.Context, tokenID string) error
}

// ISessionRepository is the presence store.
type ISessionRepository interface {
	GetOrCreate(ctx context.Context, identity domain.Identity) (domain.Session, bool, error)
	SetOnline(ctx context.Context, sessionID uuid.UUID, online bool) (domain.Session, error)
	Get(ctx context.Context, sessionID uuid.UUID) (domain.Session, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (domain.Session, error)
	ListByOwners(ctx context.Context, ownerIDs []uuid.UUID) ([]domain.Session, error)
}

// IConversationRepository is the conversation store and its append-only history.
type IConversationRepository interface {
	GetOrCreate(ctx context.Context, participants []uuid.UUID) (domain.Conversation, bool, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Conversation, error)
	ListFor(ctx context.Context, identityID uuid.UUID) ([]domain.Conversation, error)
	Append(ctx context.Context, conversation domain.Conversation, senderID uuid.UUID, content string) (domain.HistoryRecord, error)
	History(ctx context.Context, conversationID uuid.UUID, cursor *string) ([]domain.HistoryRecord, *string, error)
	MarkReceived(ctx context.Context, records []domain.HistoryRecord, at time.Time) ([]domain.HistoryRecord, error)
}

// ITokenLookup resolves a bearer token into the identity it was issued for.
type ITokenLookup interface {
	Lookup(ctx context.Context, token string) (domain.Identity, error)
}

// IPresence ties presence flags to the lifetime of connections.
type IPresence interface {
	Join(ctx context.Context, identity domain.Identity, sink EventSink) (domain.Session, error)
	Leave(ctx context.Context, session domain.Session, sink EventSink) error
}

// IBroadcaster fans a stored record out to every session of the conversation.
type IBroadcaster interface {
	Fanout(ctx context.Context, conversation domain.Conversation, record domain.HistoryRecord) int
}
