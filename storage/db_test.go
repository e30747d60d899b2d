package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBBasicOperations(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	_, err := db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Put([]byte("a"), []byte("1")))
	value, err := db.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), value)

	require.NoError(t, db.Put([]byte("a"), []byte("2")))
	value, err = db.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), value)

	require.NoError(t, db.Delete([]byte("a")))
	_, err = db.Get([]byte("a"))
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, db.Delete([]byte("a")))
}

func TestMemDBIteratePrefix(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("pool/market/a"), []byte("1")))
	require.NoError(t, db.Put([]byte("pool/market/b"), []byte("2")))
	require.NoError(t, db.Put([]byte("pool/config/a"), []byte("3")))
	require.NoError(t, db.Put([]byte("other/a"), []byte("4")))

	var keys []string
	err := db.IteratePrefix([]byte("pool/market/"), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"pool/market/a", "pool/market/b"}, keys)
}

func TestMemDBIterateStopsOnError(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("k/1"), []byte("1")))
	require.NoError(t, db.Put([]byte("k/2"), []byte("2")))

	boom := errors.New("boom")
	visits := 0
	err := db.IteratePrefix([]byte("k/"), func(key, value []byte) error {
		visits++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, visits)
}

func TestLevelDBRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")
	db, err := NewLevelDB(path)
	require.NoError(t, err)

	require.NoError(t, db.Put([]byte("pool/market/a"), []byte("1")))
	require.NoError(t, db.Put([]byte("pool/market/b"), []byte("2")))

	value, err := db.Get([]byte("pool/market/a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), value)

	var keys []string
	require.NoError(t, db.IteratePrefix([]byte("pool/market/"), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	}))
	require.Equal(t, []string{"pool/market/a", "pool/market/b"}, keys)

	require.NoError(t, db.Delete([]byte("pool/market/a")))
	_, err = db.Get([]byte("pool/market/a"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Close())
}
