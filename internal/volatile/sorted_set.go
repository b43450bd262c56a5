package volatile

import (
	"context"
	"encoding/binary"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// Sorted sets back the sliding-window rate limiter: members are
// "<unixMillis>:<random>" request entries, scores are their unix-millisecond
// timestamp, and ZRemRangeByScore trims everything outside the current
// window before ZCard counts what's left.
//
// Entries are keyed "zs:<key>:<16-hex-digit zero-padded score>:<member>" so
// a prefix scan over "zs:<key>:" visits members in score order; a parallel
// "zi:<key>:<member>" index maps a member back to its score for removal.

func sortedSetPrefix(key string) string {
	return "zs:" + key + ":"
}

func sortedSetEntryKey(key string, score int64, member string) string {
	return sortedSetPrefix(key) + encodeScore(score) + ":" + member
}

func sortedSetIndexKey(key, member string) string {
	return "zi:" + key + ":" + member
}

func encodeScore(score int64) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(score))
	return hexEncode(buf)
}

const hexDigits = "0123456789abcdef"

func hexEncode(buf []byte) string {
	out := make([]byte, len(buf)*2)
	for i, b := range buf {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0x0f]
	}
	return string(out)
}

// ZAdd adds member with score to the sorted set at key, replacing any
// existing score for that member.
func (s *Store) ZAdd(ctx context.Context, key string, score int64, member string) error {
	indexKey := []byte(sortedSetIndexKey(key, member))
	err := s.db.Update(func(txn *badger.Txn) error {
		if item, err := txn.Get(indexKey); err == nil {
			var oldScore int64
			if err := item.Value(func(val []byte) error {
				oldScore = decodeInt64(val)
				return nil
			}); err != nil {
				return err
			}
			if oldScore != score {
				if err := txn.Delete([]byte(sortedSetEntryKey(key, oldScore, member))); err != nil {
					return err
				}
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Set([]byte(sortedSetEntryKey(key, score, member)), []byte(member)); err != nil {
			return err
		}
		return txn.Set(indexKey, encodeInt64(score))
	})
	return wrapUnavailable(err)
}

// ZRemRangeByScore removes every member with score in [min, max].
func (s *Store) ZRemRangeByScore(ctx context.Context, key string, min, max int64) (int, error) {
	prefix := sortedSetPrefix(key)
	var toRemove []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			rest := strings.TrimPrefix(string(item.Key()), prefix)
			scoreHex, member, ok := strings.Cut(rest, ":")
			if !ok {
				continue
			}
			score := decodeScore(scoreHex)
			if score >= min && score <= max {
				toRemove = append(toRemove, member)
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	if len(toRemove) == 0 {
		return 0, nil
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, member := range toRemove {
			item, err := txn.Get([]byte(sortedSetIndexKey(key, member)))
			if err != nil {
				continue
			}
			var score int64
			_ = item.Value(func(val []byte) error {
				score = decodeInt64(val)
				return nil
			})
			if err := txn.Delete([]byte(sortedSetEntryKey(key, score, member))); err != nil {
				return err
			}
			if err := txn.Delete([]byte(sortedSetIndexKey(key, member))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return len(toRemove), nil
}

func decodeScore(hex string) int64 {
	if len(hex) != 16 {
		return 0
	}
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		hi := hexVal(hex[i*2])
		lo := hexVal(hex[i*2+1])
		buf[i] = hi<<4 | lo
	}
	return decodeInt64(buf)
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}

// ZCard returns the number of members in the sorted set at key.
func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	prefix := sortedSetPrefix(key)
	keys, err := s.ScanKeys(ctx, prefix)
	if err != nil {
		return 0, err
	}
	return int64(len(keys)), nil
}

// ZRange returns members in score order for indices [start, stop]
// (inclusive, 0-based; negative indices are not supported).
func (s *Store) ZRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	prefix := sortedSetPrefix(key)
	var members []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		idx := 0
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if idx > stop {
				break
			}
			if idx >= start {
				item := it.Item()
				if err := item.Value(func(val []byte) error {
					members = append(members, string(val))
					return nil
				}); err != nil {
					return err
				}
			}
			idx++
		}
		return nil
	})
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	return members, nil
}
