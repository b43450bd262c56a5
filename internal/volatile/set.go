package volatile

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"
)

func setMemberKey(key, member string) string {
	return "s:" + key + ":" + member
}

func setPrefix(key string) string {
	return "s:" + key + ":"
}

// SAdd adds member to the set at key.
func (s *Store) SAdd(ctx context.Context, key, member string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(setMemberKey(key, member)), []byte{1})
	})
	return wrapUnavailable(err)
}

// SIsMember reports whether member belongs to the set at key.
func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return s.Exists(ctx, setMemberKey(key, member))
}

// SMembers returns every member of the set at key.
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	prefix := setPrefix(key)
	keys, err := s.ScanKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	members := make([]string, len(keys))
	for i, k := range keys {
		members[i] = k[len(prefix):]
	}
	return members, nil
}

// SRem removes member from the set at key.
func (s *Store) SRem(ctx context.Context, key, member string) error {
	return s.Delete(ctx, setMemberKey(key, member))
}
