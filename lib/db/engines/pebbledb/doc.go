// Package pebbledb implements the db.KVDB interface on top of Pebble
// (github.com/cockroachdb/pebble), the LSM storage engine of CockroachDB.
//
// Every write is synced to the write-ahead log before it returns, so an entry that was
// acknowledged survives a crash of the process. Clear removes all entries with a single
// range deletion.
//
// With Options.InMemory the engine runs on pebble's in-memory file system. Nothing is
// written to disk and FeatureDurable is not reported, which is useful for tests and
// benchmarks.
//
// Log messages of pebble are routed to the "db" logger. Informational messages
// (flushes, compactions) are logged at debug level.
package pebbledb
