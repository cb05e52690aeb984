// Package lstore implements the local, single-node store based on the store.IStore
// interface. It keeps all entries in an in-memory mirror (an xsync.MapOf) and in a
// durable db.KVDB table.
//
// Implementation Details:
//
//   - Write Through: Set, Delete and Clear first change the durable table and only
//     apply the change to the mirror when the table accepted it. A failed write leaves
//     both unchanged.
//
//   - Single Writer: Mutations are serialized by one mutex, so the mirror always
//     mirrors the table even when many connections are served concurrently.
//
//   - Reads: Get reads the durable table. Exists, Keys and Size are answered from the
//     mirror without taking the writer lock.
//
//   - Load: The mirror is rebuilt by iterating over the table. Exists and Keys fail
//     until the store was loaded.
//
// Usage Example:
//
//	factory := func() (db.KVDB, error) {
//		return pebbledb.NewPebbleDB(pebbledb.Options{Dir: "./data"})
//	}
//	s, err := lstore.NewLocalStore(factory)
//	if err != nil { ... }
//	if err := s.Load(); err != nil { ... }
//
//	err = s.Set("answer", "42")
//	value, ok, err := s.Get("answer")
package lstore
