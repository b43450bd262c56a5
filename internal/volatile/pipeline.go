package volatile

import (
	"context"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// Op is one operation queued onto a Pipeline.
type Op func(txn *badger.Txn) error

// Pipeline batches several writes into a single Badger transaction, so
// related updates (e.g. recording a chunk and bumping a bitmap) either all
// land or none do.
type Pipeline struct {
	ops []Op
}

// NewPipeline returns an empty Pipeline.
func (s *Store) NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Set queues a Set operation.
func (p *Pipeline) Set(key string, value []byte, ttl time.Duration) *Pipeline {
	p.ops = append(p.ops, func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	return p
}

// Delete queues a Delete operation.
func (p *Pipeline) Delete(key string) *Pipeline {
	p.ops = append(p.ops, func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return p
}

// IncrBy queues an increment-by-delta operation.
func (p *Pipeline) IncrBy(key string, delta int64) *Pipeline {
	p.ops = append(p.ops, func(txn *badger.Txn) error {
		var current int64
		item, err := txn.Get([]byte(key))
		switch {
		case err == badger.ErrKeyNotFound:
			current = 0
		case err != nil:
			return err
		default:
			if decodeErr := item.Value(func(val []byte) error {
				current = decodeInt64(val)
				return nil
			}); decodeErr != nil {
				return decodeErr
			}
		}
		return txn.SetEntry(badger.NewEntry([]byte(key), encodeInt64(current+delta)))
	})
	return p
}

// Exec runs every queued operation in a single transaction.
func (s *Store) Exec(ctx context.Context, p *Pipeline) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, op := range p.ops {
			if err := op(txn); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapUnavailable(err)
}
