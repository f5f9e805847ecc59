package repositories

import (
	"chat-hub/domain"
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const historyPrefix = "hist:"

type diskRecord struct {
	ID             string
	ConversationID string
	SenderID       *string
	Content        string
	CreatedAt      int64
	ReceivedAt     *int64
}

// historyKey is formatted as "hist:{conversation_id}:{timestamp_padded}:{uuid}":
//  1. the 19-digit zero padding keeps records sorted chronologically.
//  2. the uuid separates two records created at the same nanosecond.
func historyKey(record domain.HistoryRecord) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s",
		historyPrefix,
		record.ConversationID,
		record.CreatedAt.UnixNano(),
		record.ID,
	))
}

// Append stores a new record in the conversation history.
func (r ConversationRepository) Append(ctx context.Context, conversation domain.Conversation, senderID uuid.UUID, content string) (domain.HistoryRecord, error) {
	record := domain.HistoryRecord{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		SenderID:       lo.ToPtr(senderID),
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		return setValue(txn, historyKey(record), fromRecord(record))
	})
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	return record, nil
}

// History returns records of a conversation, most recent first, using a reverse
// prefix scan. It stops once limitMessages records are collected and returns
// the cursor of the next page, nil when the history is exhausted.
func (r ConversationRepository) History(ctx context.Context, conversationID uuid.UUID, cursor *string) ([]domain.HistoryRecord, *string, error) {
	var rawRecords [][]byte
	var lastKey string
	full := false
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("%s%s:", historyPrefix, conversationID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Greatest possible timestamp, the scan goes backwards from there
			seekKey = append(prefix, []byte("9999999999999999999;")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.limitMessages != nil && len(rawRecords) == *r.limitMessages {
				r.log.Debug(fmt.Sprintf("Maximum of %d records reached", *r.limitMessages))
				full = true
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				rawRecords = append(rawRecords, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	records := make([]domain.HistoryRecord, 0, len(rawRecords))
	for _, raw := range rawRecords {
		var disk diskRecord
		if err = cbor.Unmarshal(raw, &disk); err != nil {
			return nil, nil, err
		}
		record, err := toRecord(disk)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, record)
	}
	if !full {
		return records, nil, nil
	}
	return records, &lastKey, nil
}

// MarkReceived stamps received_at on the records that do not carry it yet and
// returns the records as stored.
func (r ConversationRepository) MarkReceived(ctx context.Context, records []domain.HistoryRecord, at time.Time) ([]domain.HistoryRecord, error) {
	out := make([]domain.HistoryRecord, len(records))
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		for i, record := range records {
			out[i] = record
			if record.ReceivedAt != nil {
				continue
			}
			var disk diskRecord
			if err := getValue(txn, historyKey(record), &disk); err != nil {
				return err
			}
			if disk.ReceivedAt == nil {
				disk.ReceivedAt = lo.ToPtr(at.UTC().UnixNano())
				if err := setValue(txn, historyKey(record), disk); err != nil {
					return err
				}
			}
			stored, err := toRecord(disk)
			if err != nil {
				return err
			}
			out[i] = stored
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func fromRecord(record domain.HistoryRecord) diskRecord {
	disk := diskRecord{
		ID:             record.ID.String(),
		ConversationID: record.ConversationID.String(),
		Content:        record.Content,
		CreatedAt:      record.CreatedAt.UnixNano(),
	}
	if record.SenderID != nil {
		disk.SenderID = lo.ToPtr(record.SenderID.String())
	}
	if record.ReceivedAt != nil {
		disk.ReceivedAt = lo.ToPtr(record.ReceivedAt.UnixNano())
	}
	return disk
}

func toRecord(disk diskRecord) (domain.HistoryRecord, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	conversationID, err := uuid.Parse(disk.ConversationID)
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	record := domain.HistoryRecord{
		ID:             id,
		ConversationID: conversationID,
		Content:        disk.Content,
		CreatedAt:      time.Unix(0, disk.CreatedAt).UTC(),
	}
	if disk.SenderID != nil {
		senderID, err := uuid.Parse(*disk.SenderID)
		if err != nil {
			return domain.HistoryRecord{}, err
		}
		record.SenderID = &senderID
	}
	if disk.ReceivedAt != nil {
		record.ReceivedAt = lo.ToPtr(time.Unix(0, *disk.ReceivedAt).UTC())
	}
	return record, nil
}
