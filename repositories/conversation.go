package repositories

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	conversationPrefix       = "conv:id:"
	conversationPairPrefix   = "conv:pair:"
	conversationMemberPrefix = "conv:member:"
)

// ConversationRepository stores two-party conversations and their history.
//
// Keys:
//
//	conv:id:{id}                  -> conversation
//	conv:pair:{low}:{high}        -> conversation id, at most one per unordered pair
//	conv:member:{identity}:{id}   -> empty, lists the conversations of an identity
//	hist:{id}:{timestamp}:{uuid}  -> history record
type ConversationRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

// NewConversationRepository pages history by limitMessages, a nil or non positive limit means unlimited.
func NewConversationRepository(db *badger.DB, log *slog.Logger, limitMessages *int) ConversationRepository {
	if limitMessages != nil && *limitMessages <= 0 {
		limitMessages = nil
	}
	return ConversationRepository{db: db, log: log, limitMessages: limitMessages}
}

type diskConversation struct {
	ID           string
	Key          string
	Participants []string
	CreatedAt    int64
}

func conversationKey(id uuid.UUID) []byte {
	return []byte(conversationPrefix + id.String())
}

func conversationPairKey(pair [2]uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", conversationPairPrefix, pair[0], pair[1]))
}

func conversationMemberKey(identityID, conversationID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", conversationMemberPrefix, identityID, conversationID))
}

// GetOrCreate returns the conversation between exactly two distinct identities,
// creating it lazily. The pair key is read inside the transaction, so two
// concurrent creations of the same pair conflict and converge on one conversation.
func (r ConversationRepository) GetOrCreate(ctx context.Context, participants []uuid.UUID) (domain.Conversation, bool, error) {
	participants = lo.Uniq(participants)
	if len(participants) != 2 {
		return domain.Conversation{}, false, errors.ErrInvalidParticipants
	}
	pair := domain.SortedPair(participants[0], participants[1])

	var (
		conversation domain.Conversation
		created      bool
	)
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		created = false
		item, err := txn.Get(conversationPairKey(pair))
		switch {
		case err == nil:
			var id uuid.UUID
			if err = item.Value(func(val []byte) error {
				id, err = uuid.ParseBytes(val)
				return err
			}); err != nil {
				return err
			}
			conversation, err = conversationByID(txn, id)
			return err
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		conversation = domain.Conversation{
			ID:           uuid.New(),
			Key:          uuid.New(),
			Participants: pair,
			CreatedAt:    time.Now().UTC(),
		}
		if err = setValue(txn, conversationKey(conversation.ID), fromConversation(conversation)); err != nil {
			return err
		}
		if err = txn.Set(conversationPairKey(pair), []byte(conversation.ID.String())); err != nil {
			return err
		}
		for _, member := range pair {
			if err = txn.Set(conversationMemberKey(member, conversation.ID), nil); err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return domain.Conversation{}, false, err
	}
	if created {
		r.log.Debug("Conversation created", "conversation_id", conversation.ID)
	}
	return conversation, created, nil
}

func (r ConversationRepository) Get(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	var conversation domain.Conversation
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		var err error
		conversation, err = conversationByID(txn, id)
		return err
	})
	return conversation, err
}

// ListFor scans the member index of identityID.
func (r ConversationRepository) ListFor(ctx context.Context, identityID uuid.UUID) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		prefix := fmt.Sprintf("%s%s:", conversationMemberPrefix, identityID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = []byte(prefix)
		it := txn.NewIterator(options)
		defer it.Close()

		var ids []uuid.UUID
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			id, err := uuid.Parse(strings.TrimPrefix(string(it.Item().Key()), prefix))
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		for _, id := range ids {
			conversation, err := conversationByID(txn, id)
			if err != nil {
				return err
			}
			conversations = append(conversations, conversation)
		}
		return nil
	})
	return conversations, err
}

func conversationByID(txn *badger.Txn, id uuid.UUID) (domain.Conversation, error) {
	var disk diskConversation
	if err := getValue(txn, conversationKey(id), &disk); err != nil {
		return domain.Conversation{}, err
	}
	return toConversation(disk)
}

func fromConversation(c domain.Conversation) diskConversation {
	return diskConversation{
		ID:           c.ID.String(),
		Key:          c.Key.String(),
		Participants: []string{c.Participants[0].String(), c.Participants[1].String()},
		CreatedAt:    c.CreatedAt.UnixNano(),
	}
}

func toConversation(disk diskConversation) (domain.Conversation, error) {
	if len(disk.Participants) != 2 {
		return domain.Conversation{}, fmt.Errorf("conversation %s: %w", disk.ID, errors.ErrInvalidParticipants)
	}
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Conversation{}, err
	}
	key, err := uuid.Parse(disk.Key)
	if err != nil {
		return domain.Conversation{}, err
	}
	var pair [2]uuid.UUID
	for i, p := range disk.Participants {
		if pair[i], err = uuid.Parse(p); err != nil {
			return domain.Conversation{}, err
		}
	}
	return domain.Conversation{
		ID:           id,
		Key:          key,
		Participants: pair,
		CreatedAt:    time.Unix(0, disk.CreatedAt).UTC(),
	}, nil
}
