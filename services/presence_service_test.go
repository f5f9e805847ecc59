package services

import (
	"chat-hub/domain"
	"chat-hub/mocks"
	"chat-hub/runtime"
	"chat-hub/sink"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPresenceService_Join_And_Leave(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	sessions := mocks.NewMockISessionRepository(ctrl)
	registry := runtime.NewRegistry()
	presence := NewPresenceService(logs.GetLoggerFromLevel(slog.LevelDebug), sessions, registry)

	identity := domain.Identity{ID: uuid.New(), Active: true}
	session := domain.Session{ID: uuid.New(), OwnerID: identity.ID, Version: 1}
	first := sink.NewConnectionSink(1)
	second := sink.NewConnectionSink(1)

	// Given two connections of the same identity
	sessions.EXPECT().GetOrCreate(gomock.Any(), identity).Return(session, false, nil).Times(2)
	sessions.EXPECT().SetOnline(gomock.Any(), session.ID, true).
		Return(domain.Session{ID: session.ID, OwnerID: identity.ID, Online: true, Version: 2}, nil).Times(2)

	joined, err := presence.Join(ctx, identity, first)
	req.NoError(err)
	req.True(joined.Online)
	_, err = presence.Join(ctx, identity, second)
	req.NoError(err)
	req.Equal(2, registry.Count(session.Group()))

	// When the first one leaves the session stays online
	req.NoError(presence.Leave(ctx, joined, first))
	req.Equal(1, registry.Count(session.Group()))

	// When the last one leaves the session goes offline
	sessions.EXPECT().SetOnline(gomock.Any(), session.ID, false).
		Return(domain.Session{ID: session.ID, OwnerID: identity.ID, Online: false, Version: 3}, nil).Times(1)
	req.NoError(presence.Leave(ctx, joined, second))
	req.Zero(registry.Count(session.Group()))
}

func TestPresenceService_Join_Failure_Unsubscribes(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	sessions := mocks.NewMockISessionRepository(ctrl)
	registry := runtime.NewRegistry()
	presence := NewPresenceService(slog.Default(), sessions, registry)

	identity := domain.Identity{ID: uuid.New(), Active: true}
	session := domain.Session{ID: uuid.New(), OwnerID: identity.ID, Version: 1}

	sessions.EXPECT().GetOrCreate(gomock.Any(), identity).Return(session, true, nil)
	sessions.EXPECT().SetOnline(gomock.Any(), session.ID, true).Return(domain.Session{}, fmt.Errorf("disk full"))

	_, err := presence.Join(ctx, identity, sink.NewConnectionSink(1))
	req.Error(err)

	// Then no membership is left behind
	req.Zero(registry.Groups())
}

func TestPresenceService_Leave_Canceled_Context(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	sessions := mocks.NewMockISessionRepository(ctrl)
	registry := runtime.NewRegistry()
	presence := NewPresenceService(slog.Default(), sessions, registry)
	session := domain.Session{ID: uuid.New(), OwnerID: uuid.New(), Online: true}
	connection := sink.NewConnectionSink(1)
	registry.Subscribe(session.Group(), connection)

	// Given the connection context is already gone
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sessions.EXPECT().SetOnline(gomock.Any(), session.ID, false).
		DoAndReturn(func(ctx context.Context, id uuid.UUID, online bool) (domain.Session, error) {
			// Then the store still receives a live context
			req.NoError(ctx.Err())
			return domain.Session{ID: id, Online: online}, nil
		})

	req.NoError(presence.Leave(ctx, session, connection))
}

func TestKeyedMutex_Releases_Entries(t *testing.T) {
	req := require.New(t)
	locks := newKeyedMutex()
	key := uuid.New()

	unlock := locks.Lock(key)
	req.Len(locks.locks, 1)
	unlock()
	req.Empty(locks.locks)
}
