// Package db provides a standardized interface for the durable table behind a cKV
// store. It defines the KVDB interface that allows for consistent interaction with
// storage backends while abstracting implementation details.
//
// The package focuses on:
//   - A unified interface for key-value operations with explicit error returns
//   - Feature discovery through capability flags
//   - Standardized metadata reporting
//
// Key Components:
//
//   - KVDB Interface: The core interface that all database implementations must satisfy.
//     It provides methods for writes (Set, Delete, Clear), queries (Get, Has) and
//     ordered iteration over all entries (Iterate), which a store uses to rebuild its
//     in-memory mirror on start.
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method.
//
//   - Implementation Identifiers: The Implementation type provides string constants
//     for different database backends (currently "pebble").
//
//   - Database Information: The DatabaseInfo structure reports the estimated size on
//     disk, the implementation type and implementation-specific metadata.
//
// Related Packages:
//
// The engines/pebbledb package (github.com/ValentinKolb/cKV/lib/db/engines/pebbledb)
// implements KVDB on top of CockroachDB's Pebble, an LSM key-value engine. Every write
// is synced to the write-ahead log before it returns. For tests the engine can run on an
// in-memory file system.
//
// The testing package (github.com/ValentinKolb/cKV/lib/db/testing) provides
// standardized tests and benchmarks for database implementations that satisfy the db.KVDB interface.
//   - RunKVDBTests: Runs a standardized test suite to validate implementations
//   - RunKVDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
