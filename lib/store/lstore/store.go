package lstore

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/cKV/lib/db"
	"github.com/ValentinKolb/cKV/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("store")

type storeImpl struct {
	db     db.KVDB
	mirror *xsync.MapOf[string, string]
	// writeMu serializes mutations so that mirror and table change together
	writeMu sync.Mutex
	loaded  atomic.Bool
}

// NewLocalStore creates a new local store instance on top of the database created by factory.
// Load must be called before the store is used.
func NewLocalStore(factory store.DBFactory) (store.IStore, error) {
	database, err := factory()
	if err != nil {
		return nil, store.WrapError(err, "failed to open database")
	}

	required := db.FeatureSet | db.FeatureGet | db.FeatureDelete | db.FeatureClear | db.FeatureIterate
	if !database.SupportsFeature(required) {
		_ = database.Close()
		return nil, store.NewError(store.RetCUnsupportedOperation, "database does not support all required operations")
	}

	return &storeImpl{
		db:     database,
		mirror: xsync.NewMapOf[string, string](),
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Load() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mirror.Clear()
	err := s.db.Iterate(func(key string, value []byte) bool {
		s.mirror.Store(key, string(value))
		return true
	})
	if err != nil {
		s.mirror.Clear()
		return store.WrapError(err, "failed to load entries")
	}

	s.loaded.Store(true)
	Logger.Infof("Loaded %d entries from the database", s.mirror.Size())
	return nil
}

func (s *storeImpl) Get(key string) (string, bool, error) {
	value, ok, err := s.db.Get(key)
	if err != nil {
		return "", false, store.WrapError(err, "failed to read entry")
	}
	return string(value), ok, nil
}

func (s *storeImpl) Set(key string, value string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.db.Set(key, []byte(value)); err != nil {
		return store.WrapError(err, "failed to write entry")
	}
	s.mirror.Store(key, value)
	return nil
}

func (s *storeImpl) Delete(key string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.db.Delete(key); err != nil {
		return store.WrapError(err, "failed to delete entry")
	}
	s.mirror.Delete(key)
	return nil
}

func (s *storeImpl) Clear() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.db.Clear(); err != nil {
		return store.WrapError(err, "failed to clear entries")
	}
	s.mirror.Clear()
	return nil
}

func (s *storeImpl) Exists(key string) (bool, error) {
	if !s.loaded.Load() {
		return false, store.NewError(store.RetCInvalidOperation, "store is not loaded")
	}
	_, ok := s.mirror.Load(key)
	return ok, nil
}

func (s *storeImpl) Keys() ([]string, error) {
	if !s.loaded.Load() {
		return nil, store.NewError(store.RetCInvalidOperation, "store is not loaded")
	}
	keys := make([]string, 0, s.mirror.Size())
	s.mirror.Range(func(key string, _ string) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)
	return keys, nil
}

func (s *storeImpl) Size() int {
	return s.mirror.Size()
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}

func (s *storeImpl) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.db.Close(); err != nil {
		return store.WrapError(err, "failed to close database")
	}
	return nil
}
