// Package volatile is the VolatileStore: an ephemeral, fast-access
// key-value layer backed by an embedded BadgerDB instance. Keys are
// namespaced by prefix ("upload_session:", "file:", "ratelimit:",
// "abuse:", "blacklist:"). When the underlying store is unreachable,
// callers must apply the spec's availability-degraded semantics
// themselves: rate limiters and the abuse gate fail open, metadata cache
// reads return miss, session operations surface SERVICE_UNAVAILABLE. This
// package reports ErrUnavailable so callers can make that decision.
package volatile

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/vaultfs/vaultfs/internal/cerrors"
)

// Store wraps an embedded BadgerDB database.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) the Badger database rooted at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.CodeServiceUnavailable, "failed to open volatile store", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func wrapUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return cerrors.Wrap(cerrors.CodeServiceUnavailable, "volatile store unavailable", err)
}

// Get retrieves the raw value at key. Returns cerrors.CodeNotFound if
// absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return cerrors.New(cerrors.CodeNotFound, "key not found")
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		if cerrors.CodeOf(err) == cerrors.CodeNotFound {
			return nil, err
		}
		return nil, wrapUnavailable(err)
	}
	return value, nil
}

// GetJSON retrieves key and unmarshals it into dst.
func (s *Store) GetJSON(ctx context.Context, key string, dst any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Set writes value at key with an optional TTL (zero means no expiry).
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	return wrapUnavailable(err)
}

// SetJSON marshals value and writes it at key with an optional TTL.
func (s *Store) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, data, ttl)
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return wrapUnavailable(err)
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, wrapUnavailable(err)
	}
	return found, nil
}

// Expire sets a new TTL on an existing key by rewriting its value.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return cerrors.New(cerrors.CodeNotFound, "key not found")
			}
			return err
		}
		var value []byte
		if err := item.Value(func(val []byte) error {
			value = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
}

// TTL returns the remaining time-to-live for key, or zero if the key has
// no expiry.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	var ttl time.Duration
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return cerrors.New(cerrors.CodeNotFound, "key not found")
			}
			return err
		}
		expiresAt := item.ExpiresAt()
		if expiresAt == 0 {
			ttl = 0
			return nil
		}
		remaining := time.Unix(int64(expiresAt), 0).Sub(time.Now())
		if remaining < 0 {
			remaining = 0
		}
		ttl = remaining
		return nil
	})
	if err != nil {
		if cerrors.CodeOf(err) == cerrors.CodeNotFound {
			return 0, err
		}
		return 0, wrapUnavailable(err)
	}
	return ttl, nil
}

// Incr increments the integer at key by one, creating it at 1 if absent.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.IncrBy(ctx, key, 1)
}

// IncrBy increments the integer at key by delta, keeping any expiry the key
// already has.
func (s *Store) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	var result int64
	err := s.db.Update(func(txn *badger.Txn) error {
		var current int64
		var expiresAt uint64
		item, err := txn.Get([]byte(key))
		switch {
		case err == badger.ErrKeyNotFound:
			current = 0
		case err != nil:
			return err
		default:
			expiresAt = item.ExpiresAt()
			if decodeErr := item.Value(func(val []byte) error {
				current = decodeInt64(val)
				return nil
			}); decodeErr != nil {
				return decodeErr
			}
		}
		result = current + delta
		entry := badger.NewEntry([]byte(key), encodeInt64(result))
		entry.ExpiresAt = expiresAt
		return txn.SetEntry(entry)
	})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return result, nil
}

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeInt64(buf []byte) int64 {
	if len(buf) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(buf))
}

// ScanDelete deletes every key matching prefix, returning the count
// removed. Used for pattern-based bulk invalidation.
func (s *Store) ScanDelete(ctx context.Context, prefix string) (int, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			keys = append(keys, append([]byte(nil), it.Item().Key()...))
		}
		return nil
	})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return len(keys), nil
}

// ScanKeys returns every key matching prefix.
func (s *Store) ScanKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			keys = append(keys, string(it.Item().Key()))
		}
		return nil
	})
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	return keys, nil
}
