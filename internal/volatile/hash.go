package volatile

import (
	"context"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// hashFieldKey composes the storage key for one field of a hash.
func hashFieldKey(key, field string) string {
	return "h:" + key + ":" + field
}

func hashPrefix(key string) string {
	return "h:" + key + ":"
}

// HSet sets field=value within the hash at key.
func (s *Store) HSet(ctx context.Context, key, field string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(hashFieldKey(key, field)), value)
	})
	return wrapUnavailable(err)
}

// HGet retrieves field from the hash at key.
func (s *Store) HGet(ctx context.Context, key, field string) ([]byte, error) {
	return s.Get(ctx, hashFieldKey(key, field))
}

// HGetAll returns every field/value pair in the hash at key.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	result := make(map[string][]byte)
	prefix := hashPrefix(key)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			field := strings.TrimPrefix(string(item.Key()), prefix)
			if err := item.Value(func(val []byte) error {
				result[field] = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	return result, nil
}

// HDel removes field from the hash at key.
func (s *Store) HDel(ctx context.Context, key, field string) error {
	return s.Delete(ctx, hashFieldKey(key, field))
}
