package repositories

import (
	"chat-hub/errors"
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

// maxTxnRetries bounds the retries of a transaction aborted by a concurrent writer.
const maxTxnRetries = 16

// update runs fn in a read-write transaction, retrying when badger reports a
// conflict with a transaction committed in the meantime.
func update(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := db.Update(fn)
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
	return fmt.Errorf("transaction retried %d times: %w", maxTxnRetries, badger.ErrConflict)
}

func view(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.View(fn)
}

// getValue decodes the value stored at key into v.
// A missing key is reported as errors.ErrNotFound.
func getValue(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", errors.ErrNotFound, key)
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, v)
	})
}

func setValue(txn *badger.Txn, key []byte, v any) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(key, data)
}
