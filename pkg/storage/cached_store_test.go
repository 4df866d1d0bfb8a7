package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// countingStore tracks how many times the underlying store is hit.
type countingStore struct {
	Store
	gets int
}

func (s *countingStore) Get(key []byte) ([]byte, error) {
	s.gets++
	return s.Store.Get(key)
}

func TestCachedStore_ReadThrough(t *testing.T) {
	ps := &countingStore{Store: NewMemoryStore()}
	s, err := NewCachedStore(ps, 10)
	require.NoError(t, err)

	require.NoError(t, ps.Put([]byte("foo"), []byte("bar")))

	for i := 0; i < 3; i++ {
		v, err := s.Get([]byte("foo"))
		require.NoError(t, err)
		require.Equal(t, []byte("bar"), v)
	}
	require.Equal(t, 1, ps.gets)
}

func TestCachedStore_PutPopulatesCache(t *testing.T) {
	ps := &countingStore{Store: NewMemoryStore()}
	s, err := NewCachedStore(ps, 10)
	require.NoError(t, err)

	require.NoError(t, s.Put([]byte("foo"), []byte("bar")))
	v, err := s.Get([]byte("foo"))
	require.NoError(t, err)
	require.Equal(t, []byte("bar"), v)
	require.Equal(t, 0, ps.gets)

	// The underlying store has the data too.
	v, err = ps.Get([]byte("foo"))
	require.NoError(t, err)
	require.Equal(t, []byte("bar"), v)
}

func TestCachedStore_Delete(t *testing.T) {
	s, err := NewCachedStore(NewMemoryStore(), 10)
	require.NoError(t, err)

	require.NoError(t, s.Put([]byte("foo"), []byte("bar")))
	require.NoError(t, s.Delete([]byte("foo")))
	_, err = s.Get([]byte("foo"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestCachedStore_Eviction(t *testing.T) {
	ps := &countingStore{Store: NewMemoryStore()}
	s, err := NewCachedStore(ps, 1)
	require.NoError(t, err)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	require.NoError(t, s.Put([]byte("b"), []byte("2")))

	// "a" was evicted by "b", so it goes to the underlying store.
	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)
	require.Equal(t, 1, ps.gets)
}

func TestCachedStore_Miss(t *testing.T) {
	s, err := NewCachedStore(NewMemoryStore(), 10)
	require.NoError(t, err)
	_, err = s.Get([]byte("absent"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}
