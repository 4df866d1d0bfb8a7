package storage

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/patriciadb/patriciadb/pkg/util/slice"
)

// CachedStore is a read-through LRU cache on top of another Store. Trie
// nodes are content-addressed and never overwritten with different data,
// so cached entries can't go stale, only disappear on Delete.
type CachedStore struct {
	ps    Store
	cache *lru.Cache
}

// NewCachedStore wraps the provided store into a caching layer holding up
// to capacity entries.
func NewCachedStore(ps Store, capacity int) (*CachedStore, error) {
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &CachedStore{ps: ps, cache: cache}, nil
}

// Get implements the Store interface.
func (s *CachedStore) Get(key []byte) ([]byte, error) {
	if val, ok := s.cache.Get(string(key)); ok {
		return val.([]byte), nil
	}
	val, err := s.ps.Get(key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(string(key), val)
	return val, nil
}

// Put implements the Store interface.
func (s *CachedStore) Put(key, value []byte) error {
	if err := s.ps.Put(key, value); err != nil {
		return err
	}
	s.cache.Add(string(key), slice.Copy(value))
	return nil
}

// Delete implements the Store interface.
func (s *CachedStore) Delete(key []byte) error {
	s.cache.Remove(string(key))
	return s.ps.Delete(key)
}

// Seek implements the Store interface. It always hits the underlying store.
func (s *CachedStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.ps.Seek(rng, f)
}

// Close implements the Store interface.
func (s *CachedStore) Close() error {
	s.cache.Purge()
	return s.ps.Close()
}
