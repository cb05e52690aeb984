// Package store provides the persistence collaborator of the cKV store service: a
// key to value-text mapping kept in an in-memory mirror and a durable table.
// It serves as an abstraction layer over the lower-level db.KVDB implementations,
// adding the mirror and standardized error reporting.
//
// Key Components:
//
//   - IStore Interface: Load, Get, Set, Delete, Clear, Exists plus Keys, Size,
//     GetDBInfo and Close. Every mutation is written to the durable table before
//     it returns and is then applied to the mirror.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     (RetCode), descriptive messages and the wrapped cause.
//
//   - DBFactory: A function type that abstracts the creation of the underlying
//     db.KVDB instance.
//
// Implementations:
//
//	- Local Store (lstore): the single-node implementation used by the server.
//	  Available in the "github.com/ValentinKolb/cKV/lib/store/lstore" package.
package store
