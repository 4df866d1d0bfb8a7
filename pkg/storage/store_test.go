package storage

import (
	"path/filepath"
	"testing"

	"github.com/patriciadb/patriciadb/pkg/storage/dbconfig"
	"github.com/stretchr/testify/require"
)

type dbSetup struct {
	name   string
	create func(t *testing.T) Store
}

func newLevelDBForTesting(t *testing.T) Store {
	s, err := NewLevelDBStore(dbconfig.LevelDBOptions{
		DataDirectoryPath: t.TempDir(),
	})
	require.NoError(t, err)
	return s
}

func newBoltDBForTesting(t *testing.T) Store {
	s, err := NewBoltDBStore(dbconfig.BoltDBOptions{
		FilePath: filepath.Join(t.TempDir(), "test_bolt_db"),
	})
	require.NoError(t, err)
	return s
}

func TestAllDBs(t *testing.T) {
	setups := []dbSetup{
		{"MemoryStore", func(t *testing.T) Store { return NewMemoryStore() }},
		{"LevelDBStore", newLevelDBForTesting},
		{"BoltDBStore", newBoltDBForTesting},
	}
	for _, setup := range setups {
		t.Run(setup.name, func(t *testing.T) {
			s := setup.create(t)
			t.Cleanup(func() { s.Close() })

			t.Run("PutGetDelete", func(t *testing.T) {
				key := []byte("dbkey")
				value := []byte("dbvalue")

				_, err := s.Get(key)
				require.ErrorIs(t, err, ErrKeyNotFound)

				require.NoError(t, s.Put(key, value))
				res, err := s.Get(key)
				require.NoError(t, err)
				require.Equal(t, value, res)

				require.NoError(t, s.Delete(key))
				_, err = s.Get(key)
				require.ErrorIs(t, err, ErrKeyNotFound)
			})

			t.Run("SeekOrder", func(t *testing.T) {
				keys := []string{"s1", "s0", "s3", "s2", "t0"}
				for _, k := range keys {
					require.NoError(t, s.Put([]byte(k), []byte("v")))
				}
				var got []string
				s.Seek(SeekRange{Prefix: []byte("s")}, func(k, v []byte) bool {
					got = append(got, string(k))
					return true
				})
				require.Equal(t, []string{"s0", "s1", "s2", "s3"}, got)

				got = got[:0]
				s.Seek(SeekRange{Prefix: []byte("s"), Start: []byte("2")}, func(k, v []byte) bool {
					got = append(got, string(k))
					return true
				})
				require.Equal(t, []string{"s2", "s3"}, got)
			})
		})
	}
}
