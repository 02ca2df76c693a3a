// internal/storage/badger.go
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key prefix for everything this package writes, so the directory can be
// shared with other state later.
const badgerKeyPrefix = "luxy:"

// badgerStore implements Store on top of BadgerDB for persistence across
// restarts.
type badgerStore struct {
	db *badger.DB
}

// NewBadger opens (or creates) a BadgerDB directory at dir.
func NewBadger(dir string) (Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open state directory: %w", err)
	}
	return &badgerStore{db: db}, nil
}

// NewBadgerInMemory opens a BadgerDB instance that never touches disk.
func NewBadgerInMemory() (Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory state: %w", err)
	}
	return &badgerStore{db: db}, nil
}

func (b *badgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *badgerStore) Put(ctx context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(badgerKeyPrefix+key), value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	})
}

func (b *badgerStore) Delete(ctx context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(badgerKeyPrefix + key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	})
}

// Close flushes and closes the database
func (b *badgerStore) Close() error {
	return b.db.Close()
}
