package lstore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/cKV/lib/db"
	"github.com/ValentinKolb/cKV/lib/db/engines/pebbledb"
	"github.com/ValentinKolb/cKV/lib/store"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memFactory() (db.KVDB, error) {
	return pebbledb.NewPebbleDB(pebbledb.Options{InMemory: true})
}

func newLoadedStore(t *testing.T) store.IStore {
	t.Helper()
	s, err := NewLocalStore(memFactory)
	require.NoError(t, err)
	require.NoError(t, s.Load())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetGetDelete(t *testing.T) {
	s := newLoadedStore(t)

	require.NoError(t, s.Set("k", "42"))
	value, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", value)

	exists, err := s.Exists("k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete("k"))
	_, ok, err = s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok, "absent key is reported as not found")

	// absent-key delete is a no-op
	require.NoError(t, s.Delete("k"))

	exists, err = s.Exists("k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestKeysAndClear(t *testing.T) {
	s := newLoadedStore(t)

	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, s.Set(k, "'"+k+"'"))
	}
	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Equal(t, 3, s.Size())

	require.NoError(t, s.Clear())
	keys, err = s.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
	_, ok, err := s.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearWithEmptyKeyReachesTable(t *testing.T) {
	dir := t.TempDir()
	factory := func() (db.KVDB, error) {
		return pebbledb.NewPebbleDB(pebbledb.Options{Dir: dir})
	}

	s, err := NewLocalStore(factory)
	require.NoError(t, err)
	require.NoError(t, s.Load())
	require.NoError(t, s.Set("", "1"))
	require.NoError(t, s.Set("k", "2"))
	require.NoError(t, s.Clear())

	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Size())
	require.NoError(t, s.Close())

	// the table is empty as well, a reload brings nothing back
	s, err = NewLocalStore(factory)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.Size())
	_, ok, err = s.Get("")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadRestoresMirror(t *testing.T) {
	dir := t.TempDir()
	factory := func() (db.KVDB, error) {
		return pebbledb.NewPebbleDB(pebbledb.Options{Dir: dir})
	}

	s, err := NewLocalStore(factory)
	require.NoError(t, err)
	require.NoError(t, s.Load())
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "[1, 2]"))
	require.NoError(t, s.Close())

	s, err = NewLocalStore(factory)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Exists("a")
	assert.Error(t, err, "exists needs a loaded store")

	require.NoError(t, s.Load())
	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	value, ok, err := s.Get("b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[1, 2]", value)
}

// failingDB rejects all writes
type failingDB struct {
	db.KVDB
}

var errDiskFull = errors.New("disk full")

func (f failingDB) Set(string, []byte) error { return errDiskFull }
func (f failingDB) Delete(string) error      { return errDiskFull }

func TestFailedWriteLeavesMirrorUnchanged(t *testing.T) {
	inner, err := memFactory()
	require.NoError(t, err)
	require.NoError(t, inner.Set("kept", []byte("1")))

	s, err := NewLocalStore(func() (db.KVDB, error) { return failingDB{inner}, nil })
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Load())

	err = s.Set("new", "2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errDiskFull))
	var storeErr *store.Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, store.RetCInternalError, storeErr.Code)

	exists, err := s.Exists("new")
	require.NoError(t, err)
	assert.False(t, exists)

	require.Error(t, s.Delete("kept"))
	exists, err = s.Exists("kept")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFactoryError(t *testing.T) {
	_, err := NewLocalStore(func() (db.KVDB, error) { return nil, errDiskFull })
	assert.True(t, errors.Is(err, errDiskFull))
}

func TestConcurrentWritersKeepMirrorConsistent(t *testing.T) {
	s := newLoadedStore(t)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := fmt.Sprintf("key-%d", i%10)
				if (i+w)%3 == 0 {
					assert.NoError(t, s.Delete(key))
				} else {
					assert.NoError(t, s.Set(key, fmt.Sprintf("%d", w)))
				}
			}
		}(w)
	}
	wg.Wait()

	// every key in the mirror has a value in the table and vice versa
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("key-%d", i)
		exists, err := s.Exists(key)
		require.NoError(t, err)
		_, ok, err := s.Get(key)
		require.NoError(t, err)
		assert.Equal(t, ok, exists, key)
	}
}
