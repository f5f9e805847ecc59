package services

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/moderation"
	"chat-hub/observability"
	"chat-hub/repositories"
	"chat-hub/resolver"
	"chat-hub/runtime"
	"chat-hub/sink"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	identity      *domain.Identity
	authenticated []string
}

func (c *fakeConn) Identity() (domain.Identity, bool) {
	if c.identity == nil {
		return domain.Identity{}, false
	}
	return *c.identity, true
}

func (c *fakeConn) Authenticate(_ context.Context, token string) (any, error) {
	c.authenticated = append(c.authenticated, token)
	return map[string]any{"status": "success"}, nil
}

type chatFixture struct {
	service       *ChatService
	identities    repositories.IdentityRepository
	sessions      repositories.SessionRepository
	conversations repositories.ConversationRepository
	registry      *runtime.Registry
	alice, bob    domain.Identity
	conversation  domain.Conversation
}

func newChatFixture(t *testing.T, moderator *moderation.Moderator) chatFixture {
	t.Helper()
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	limit := 50
	f := chatFixture{
		identities:    repositories.NewIdentityRepository(db),
		sessions:      repositories.NewSessionRepository(db, log),
		conversations: repositories.NewConversationRepository(db, log, &limit),
		registry:      runtime.NewRegistry(),
		alice:         domain.Identity{ID: uuid.New(), FirstName: "Alice", LastName: "Liddell", Active: true},
		bob:           domain.Identity{ID: uuid.New(), FirstName: "Bob", LastName: "Morane", Active: true},
	}
	req.NoError(f.identities.Create(ctx, f.alice))
	req.NoError(f.identities.Create(ctx, f.bob))
	f.conversation, _, err = f.conversations.GetOrCreate(ctx, []uuid.UUID{f.alice.ID, f.bob.ID})
	req.NoError(err)

	broadcaster := NewBroadcaster(log, f.sessions, f.registry, observability.NewMetrics(), 50*time.Millisecond)
	f.service = NewChatService(log, f.identities, f.sessions, f.conversations, broadcaster, moderator, 20)
	return f
}

func payloadOf(t *testing.T, v any) resolver.Payload {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	payload, err := resolver.NewPayload(raw)
	require.NoError(t, err)
	return payload
}

func TestChatService_GetContacts_Bound_To_Caller(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newChatFixture(t, nil)

	// Given bob is online
	presence := NewPresenceService(slog.Default(), f.sessions, f.registry)
	_, err := presence.Join(ctx, f.bob, sink.NewConnectionSink(1))
	req.NoError(err)

	conn := &fakeConn{identity: &f.alice}
	table := f.service.Resolvers(conn)
	contacts, ok := table.Lookup(TypeGetContacts)
	req.True(ok)

	// When alice lists her contacts
	result, err := contacts.Resolve(ctx, conn, resolver.EmptyPayload())
	req.NoError(err)

	// Then she sees bob with his presence
	req.Equal(map[string]any{"contacts": []map[string]any{{
		"id":           f.conversation.ID.String(),
		"display_name": "Bob Morane",
		"online":       true,
	}}}, result)

	// When the same table is used by another identity the criteria follow the caller
	conn.identity = &f.bob
	result, err = contacts.Resolve(ctx, conn, payloadOf(t, map[string]any{"fields": []string{"display_name"}}))
	req.NoError(err)
	req.Equal(map[string]any{"contacts": []map[string]any{{"display_name": "Alice Liddell"}}}, result)
}

func TestChatService_GetContact(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newChatFixture(t, nil)
	conn := &fakeConn{identity: &f.alice}
	contact, _ := f.service.Resolvers(conn).Lookup(TypeGetContact)

	result, err := contact.Resolve(ctx, conn, payloadOf(t, map[string]any{"id": f.conversation.ID.String()}))
	req.NoError(err)
	req.Equal(map[string]any{
		"id":           f.conversation.ID.String(),
		"display_name": "Bob Morane",
		"online":       false,
	}, result)

	// Unknown conversation
	_, err = contact.Resolve(ctx, conn, payloadOf(t, map[string]any{"id": uuid.NewString()}))
	req.ErrorIs(err, errors.ErrNotFound)

	// Conversation of somebody else
	clara := domain.Identity{ID: uuid.New(), FirstName: "Clara", Active: true}
	req.NoError(f.identities.Create(ctx, clara))
	foreign, _, err := f.conversations.GetOrCreate(ctx, []uuid.UUID{f.bob.ID, clara.ID})
	req.NoError(err)
	_, err = contact.Resolve(ctx, conn, payloadOf(t, map[string]any{"id": foreign.ID.String()}))
	req.ErrorIs(err, errors.ErrNotFound)

	// Malformed id
	_, err = contact.Resolve(ctx, conn, payloadOf(t, map[string]any{"id": "nope"}))
	var validationError *errors.ValidationError
	req.True(errors.As(err, &validationError))
	req.Equal("must be a valid uuid", validationError.Fields["id"])
}

func TestChatService_Authorization_Delegates_To_Connection(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t, nil)
	conn := &fakeConn{}
	authorization, ok := f.service.Resolvers(conn).Lookup(domain.TypeAuthorization)
	req.True(ok)

	result, err := authorization.Resolve(context.Background(), conn, payloadOf(t, map[string]any{"token": "abc"}))
	req.NoError(err)
	req.Equal(map[string]any{"status": "success"}, result)
	req.Equal([]string{"abc"}, conn.authenticated)
}

func TestChatService_Message_Stores_Then_Fans_Out(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newChatFixture(t, nil)
	presence := NewPresenceService(slog.Default(), f.sessions, f.registry)
	aliceSink, bobSink := sink.NewConnectionSink(4), sink.NewConnectionSink(4)
	_, err := presence.Join(ctx, f.alice, aliceSink)
	req.NoError(err)
	_, err = presence.Join(ctx, f.bob, bobSink)
	req.NoError(err)

	conn := &fakeConn{identity: &f.alice}
	message, _ := f.service.Resolvers(conn).Lookup(domain.TypeMessage)

	// When alice sends a message
	result, err := message.Resolve(ctx, conn, payloadOf(t, map[string]any{
		"to":      f.conversation.ID.String(),
		"content": "hi",
	}))

	// Then nothing is echoed and both sides are notified
	req.NoError(err)
	req.Nil(result)
	sent := (<-aliceSink.Events()).(event.MessageDelivered)
	received := (<-bobSink.Events()).(event.MessageDelivered)
	req.Equal(domain.DirectionSend, sent.Direction)
	req.Equal(domain.DirectionReceived, received.Direction)
	req.Equal("hi", received.Content)

	// And the record is in the history
	records, _, err := f.conversations.History(ctx, f.conversation.ID, nil)
	req.NoError(err)
	req.Len(records, 1)
	req.Equal(received.RecordID, records[0].ID)
}

func TestChatService_Message_Validation(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t, nil)
	conn := &fakeConn{identity: &f.alice}
	message, _ := f.service.Resolvers(conn).Lookup(domain.TypeMessage)

	tests := []struct {
		name  string
		data  map[string]any
		field string
	}{
		{"missing content", map[string]any{"to": f.conversation.ID.String()}, "content"},
		{"invalid conversation id", map[string]any{"to": "abc", "content": "hi"}, "to"},
		{"unknown conversation", map[string]any{"to": uuid.NewString(), "content": "hi"}, "to"},
		{"content too long", map[string]any{"to": f.conversation.ID.String(), "content": "this message is way too long"}, "content"},
		{"content not a string", map[string]any{"to": f.conversation.ID.String(), "content": 12}, "data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			_, err := message.Resolve(ctx, conn, payloadOf(t, tt.data))
			var validationError *errors.ValidationError
			req.True(errors.As(err, &validationError), "error=%v", err)
			req.Contains(validationError.Fields, tt.field)
		})
	}

	// Given the same table dispatched for an anonymous caller
	req := require.New(t)
	_, err := message.Resolve(ctx, &fakeConn{}, payloadOf(t, map[string]any{"to": f.conversation.ID.String(), "content": "hi"}))

	// Then the identity of the dispatching caller is used and nothing is stored
	req.ErrorIs(err, errors.ErrNotAuthorized)
	records, _, err := f.conversations.History(ctx, f.conversation.ID, nil)
	req.NoError(err)
	req.Empty(records)
}

func TestChatService_Message_Moderated(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', slog.Default())
	req.NoError(err)
	f := newChatFixture(t, moderator)

	record, err := f.service.Send(ctx, f.alice, SendRequest{To: f.conversation.ID.String(), Content: "I love badger"})
	req.NoError(err)
	req.Equal("I love ******", record.Content)
}

func TestChatService_Message_Moderated_By_Content_Language(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	moderator, err := moderation.NewDictionaryModerator(&moderation.Dictionary{
		Words:      []string{"con", "crap"},
		ByLanguage: map[string][]string{"fr": {"con"}, "en": {"crap"}},
	}, '*', slog.Default())
	req.NoError(err)
	f := newChatFixture(t, moderator)
	f.service.maxContentLength = 0

	// When english content hides a french word inside english ones
	content := "We will continue reading the contract tomorrow morning because this crap is not finished yet"
	record, err := f.service.Send(ctx, f.alice, SendRequest{To: f.conversation.ID.String(), Content: content})

	// Then only the english dictionary is applied
	req.NoError(err)
	req.Equal("We will continue reading the contract tomorrow morning because this **** is not finished yet", record.Content)
}

func TestChatService_History_Marks_Received(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newChatFixture(t, nil)
	_, err := f.service.Send(ctx, f.alice, SendRequest{To: f.conversation.ID.String(), Content: "hello"})
	req.NoError(err)
	_, err = f.service.Send(ctx, f.bob, SendRequest{To: f.conversation.ID.String(), Content: "hi alice"})
	req.NoError(err)

	// When bob reads the history
	page, err := f.service.History(ctx, f.bob, HistoryRequest{ID: f.conversation.ID.String()})
	req.NoError(err)

	messages := page["messages"].([]map[string]any)
	req.Len(messages, 2)
	req.Nil(page["cursor"])
	req.Equal("hi alice", messages[0]["content"])
	req.Equal("send", messages[0]["direction"])
	req.Nil(messages[0]["received_at"])
	req.Equal("hello", messages[1]["content"])
	req.Equal("received", messages[1]["direction"])
	req.NotNil(messages[1]["received_at"])

	// Then alice's record is stamped in the store
	records, _, err := f.conversations.History(ctx, f.conversation.ID, nil)
	req.NoError(err)
	req.Nil(records[0].ReceivedAt)
	req.NotNil(records[1].ReceivedAt)
}

func TestChatService_Open_Conversation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newChatFixture(t, nil)
	clara := domain.Identity{ID: uuid.New(), FirstName: "Clara", LastName: "Oswald", Active: true}
	ghost := domain.Identity{ID: uuid.New(), FirstName: "Ghost", Active: false}
	req.NoError(f.identities.Create(ctx, clara))
	req.NoError(f.identities.Create(ctx, ghost))

	conn := &fakeConn{identity: &f.alice}
	open, _ := f.service.Resolvers(conn).Lookup(TypeOpenConversation)

	result, err := open.Resolve(ctx, conn, payloadOf(t, map[string]any{"with": clara.ID.String()}))
	req.NoError(err)
	contact := result.(map[string]any)
	req.Equal("Clara Oswald", contact["display_name"])

	// Opening again returns the same conversation
	again, err := open.Resolve(ctx, conn, payloadOf(t, map[string]any{"with": clara.ID.String()}))
	req.NoError(err)
	req.Equal(contact["id"], again.(map[string]any)["id"])

	// The existing pair is reused too
	existing, err := f.service.Open(ctx, f.alice, OpenRequest{With: f.bob.ID.String()})
	req.NoError(err)
	req.Equal(f.conversation.ID, existing.ID)

	for _, with := range []string{f.alice.ID.String(), ghost.ID.String(), uuid.NewString()} {
		_, err = f.service.Open(ctx, f.alice, OpenRequest{With: with})
		req.ErrorIs(err, errors.ErrInvalidPayload)
	}
}
