package storage

import (
	"errors"
	"fmt"

	"github.com/patriciadb/patriciadb/pkg/storage/dbconfig"
)

// KeyPrefix constants.
const (
	// DataTrie is used for trie node entries identified by node hash.
	DataTrie KeyPrefix = 0x03
	// DataTrieAux is used to store additional trie data like named root
	// mappings.
	DataTrieAux KeyPrefix = 0x04
)

// ErrKeyNotFound is an error returned by Store implementations
// when a certain key is not found.
var ErrKeyNotFound = errors.New("key not found")

type (
	// Store is the underlying KV backend for trie nodes. Nodes are
	// content-addressed, so the same key is always stored with the same
	// value and Put is effectively idempotent.
	Store interface {
		Get([]byte) ([]byte, error)
		Put(key, value []byte) error
		Delete(key []byte) error
		// Seek continues iteration until false is returned from f.
		// Key and value slices should not be modified. Seek guarantees
		// that key-value items are sorted by key in ascending way.
		Seek(rng SeekRange, f func(k, v []byte) bool)
		Close() error
	}

	// KeyPrefix is a constant byte added as a prefix for each key
	// stored.
	KeyPrefix uint8

	// SeekRange represents options for Store.Seek operation.
	SeekRange struct {
		// Prefix denotes the Seek's lookup key.
		Prefix []byte
		// Start denotes value appended to the Prefix to start Seek from.
		// Seeking starting from some key includes this key to the result;
		// if no matching key was found then the next suitable key is
		// picked up. Start may be empty.
		Start []byte
	}
)

// Bytes returns the bytes representation of KeyPrefix.
func (k KeyPrefix) Bytes() []byte {
	return []byte{byte(k)}
}

// AppendPrefix prefixes the given key bytes with the prefix byte.
func AppendPrefix(k KeyPrefix, b []byte) []byte {
	dest := make([]byte, len(b)+1)
	dest[0] = byte(k)
	copy(dest[1:], b)
	return dest
}

// NewStore creates storage with preselected in configuration database type.
func NewStore(cfg dbconfig.DBConfiguration) (Store, error) {
	var store Store
	var err error
	switch cfg.Type {
	case dbconfig.LevelDB:
		store, err = NewLevelDBStore(cfg.LevelDBOptions)
	case dbconfig.InMemoryDB:
		store = NewMemoryStore()
	case dbconfig.BoltDB:
		store, err = NewBoltDBStore(cfg.BoltDBOptions)
	default:
		return nil, fmt.Errorf("unknown storage: %s", cfg.Type)
	}
	return store, err
}
