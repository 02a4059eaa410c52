package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/perceptio/backend/internal/domain/participant"
)

const userKeyPrefix = "user:"

// BadgerUserStore keeps aggregates as JSON values in BadgerDB.
type BadgerUserStore struct {
	db *badger.DB
	mu sync.Mutex
}

var _ UserStore = (*BadgerUserStore)(nil)

// OpenBadger opens a database at dir. An empty dir opens an in-memory
// database.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

func NewBadgerUserStore(db *badger.DB) *BadgerUserStore {
	return &BadgerUserStore{db: db}
}

func userKey(pseudo string) []byte {
	return []byte(userKeyPrefix + pseudo)
}

func readUser(txn *badger.Txn, pseudo string) (*participant.Aggregate, error) {
	item, err := txn.Get(userKey(pseudo))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	var a participant.Aggregate
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &a)
	}); err != nil {
		return nil, fmt.Errorf("decode user %q: %w", pseudo, err)
	}
	return &a, nil
}

func (s *BadgerUserStore) GetUser(ctx context.Context, pseudo string) (*participant.Aggregate, error) {
	var a *participant.Aggregate
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		a, err = readUser(txn, pseudo)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *BadgerUserStore) UpdateUser(ctx context.Context, pseudo string, fn UpdateFunc) (*participant.Aggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out *participant.Aggregate
	err := s.db.Update(func(txn *badger.Txn) error {
		a, err := readUser(txn, pseudo)
		if errors.Is(err, ErrNotFound) {
			a = participant.New(pseudo)
			a.Pseudo = pseudo
		} else if err != nil {
			return err
		}

		if err := fn(a); err != nil {
			return err
		}

		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		if err := txn.Set(userKey(pseudo), data); err != nil {
			return fmt.Errorf("set user: %w", err)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListUsers returns every aggregate in key order.
func (s *BadgerUserStore) ListUsers(ctx context.Context) ([]*participant.Aggregate, error) {
	users := []*participant.Aggregate{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var a participant.Aggregate
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &a)
			}); err != nil {
				return fmt.Errorf("decode user: %w", err)
			}
			users = append(users, &a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}
