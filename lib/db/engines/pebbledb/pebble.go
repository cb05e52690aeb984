package pebbledb

import (
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/cKV/lib/db"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("db")

// Options configures the pebble engine
type Options struct {
	// Dir is the data directory, it is created if it does not exist
	Dir string
	// InMemory runs the engine on an in-memory file system, Dir is only used as a name
	InMemory bool
	// NoSync skips syncing the write-ahead log on every write (benchmarks only)
	NoSync bool
}

// pebbleDB implements db.KVDB on top of a pebble instance
type pebbleDB struct {
	db       *pebble.DB
	opts     Options
	writeOpt *pebble.WriteOptions
	closed   atomic.Bool
}

// NewPebbleDB opens (or creates) a pebble database
func NewPebbleDB(opts Options) (db.KVDB, error) {
	if opts.Dir == "" {
		if !opts.InMemory {
			return nil, errors.New("no data directory provided")
		}
		opts.Dir = "mem"
	}

	pebbleOpts := &pebble.Options{
		Logger: pebbleLogger{},
	}
	if opts.InMemory {
		pebbleOpts.FS = vfs.NewMem()
	}

	pdb, err := pebble.Open(opts.Dir, pebbleOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open pebble database in %s", opts.Dir)
	}

	writeOpt := pebble.Sync
	if opts.NoSync {
		writeOpt = pebble.NoSync
	}

	Logger.Infof("Opened pebble database (dir=%s, in-memory=%t, sync=%t)", opts.Dir, opts.InMemory, !opts.NoSync)
	return &pebbleDB{
		db:       pdb,
		opts:     opts,
		writeOpt: writeOpt,
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVDB)
// --------------------------------------------------------------------------

func (p *pebbleDB) Set(key string, value []byte) error {
	if p.closed.Load() {
		return db.ErrClosed
	}
	if err := p.db.Set([]byte(key), value, p.writeOpt); err != nil {
		return errors.Wrapf(err, "failed to set key %q", key)
	}
	return nil
}

func (p *pebbleDB) Delete(key string) error {
	if p.closed.Load() {
		return db.ErrClosed
	}
	if err := p.db.Delete([]byte(key), p.writeOpt); err != nil {
		return errors.Wrapf(err, "failed to delete key %q", key)
	}
	return nil
}

func (p *pebbleDB) Clear() error {
	if p.closed.Load() {
		return db.ErrClosed
	}
	iter, err := p.db.NewIter(nil)
	if err != nil {
		return errors.Wrap(err, "failed to create iterator")
	}

	// the empty key is a valid key, track emptiness separately from the bounds
	nonEmpty := iter.First()
	var last []byte
	if nonEmpty && iter.Last() {
		last = append([]byte{}, iter.Key()...)
	}
	if err := iter.Close(); err != nil {
		return errors.Wrap(err, "failed to close iterator")
	}

	if !nonEmpty {
		return nil
	}

	// the end of a range is exclusive, the smallest key after last is last + 0x00
	end := append(last, 0)
	if err := p.db.DeleteRange([]byte{}, end, p.writeOpt); err != nil {
		return errors.Wrap(err, "failed to clear database")
	}
	return nil
}

func (p *pebbleDB) Get(key string) ([]byte, bool, error) {
	if p.closed.Load() {
		return nil, false, db.ErrClosed
	}
	value, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to get key %q", key)
	}
	defer closer.Close()

	// the slice returned by pebble is only valid until closer is closed
	result := make([]byte, len(value))
	copy(result, value)
	return result, true, nil
}

func (p *pebbleDB) Has(key string) (bool, error) {
	if p.closed.Load() {
		return false, db.ErrClosed
	}
	_, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to look up key %q", key)
	}
	_ = closer.Close()
	return true, nil
}

func (p *pebbleDB) Iterate(fn func(key string, value []byte) bool) error {
	if p.closed.Load() {
		return db.ErrClosed
	}
	iter, err := p.db.NewIter(nil)
	if err != nil {
		return errors.Wrap(err, "failed to create iterator")
	}

	for valid := iter.First(); valid; valid = iter.Next() {
		if !fn(string(iter.Key()), iter.Value()) {
			break
		}
	}

	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return errors.Wrap(err, "failed to iterate")
	}
	return iter.Close()
}

func (p *pebbleDB) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureSet | db.FeatureGet | db.FeatureDelete | db.FeatureHas |
		db.FeatureClear | db.FeatureIterate
	if !p.opts.InMemory {
		supported |= db.FeatureDurable
	}
	return feature&supported == feature
}

func (p *pebbleDB) GetInfo() db.DatabaseInfo {
	var features []db.Feature
	for f := db.FeatureSet; f <= db.FeatureDurable; f <<= 1 {
		if p.SupportsFeature(f) {
			features = append(features, f)
		}
	}

	return db.DatabaseInfo{
		SizeBytes:         p.db.Metrics().DiskSpaceUsage(),
		DbType:            db.ImplPebble,
		SupportedFeatures: features,
		Metadata: map[string]any{
			"dir":       p.opts.Dir,
			"in_memory": p.opts.InMemory,
			"sync":      !p.opts.NoSync,
		},
	}
}

func (p *pebbleDB) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return db.ErrClosed
	}
	if err := p.db.Close(); err != nil {
		return errors.Wrap(err, "failed to close pebble database")
	}
	Logger.Infof("Closed pebble database (dir=%s)", p.opts.Dir)
	return nil
}

// --------------------------------------------------------------------------
// Logging
// --------------------------------------------------------------------------

// pebbleLogger routes the messages of pebble to the "db" logger
type pebbleLogger struct{}

func (pebbleLogger) Info(args ...interface{}) {
	Logger.Debugf("%s", fmt.Sprint(args...))
}

func (pebbleLogger) Infof(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func (pebbleLogger) Error(args ...interface{}) {
	Logger.Errorf("%s", fmt.Sprint(args...))
}

func (pebbleLogger) Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}

func (pebbleLogger) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	Logger.Errorf("%s", msg)
	panic(msg)
}
