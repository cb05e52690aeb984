// Package server implements the RPC server of the cKV store. It provides the router that
// maps request paths to handlers, the adapter exposing a store.IStore as routes and the
// server that wires store, router and transport together.
//
// Key Components:
//
//   - Router: Binds (method, path) pairs to handlers and dispatches parsed requests.
//     The first exact match wins. Requests without binding get a 404 with the body
//     "Path: <path> not found", a malformed query string a 400. Handler errors, panics
//     and handlers with an unsupported signature result in a 500.
//
//   - IRPCServerAdapter: Interface for services that register their routes on a Router.
//
//   - NewIStoreServerAdapter: Exposes a store.IStore over the store routes:
//
//     GET  /get?key=K           200 encoded value text, 404 for a missing key
//     GET  /set?key=K&value=V   V is the escaped encoded value text, 200 "OK"
//     POST /set?key=K           the body is the encoded value text, 200 "OK"
//     GET  /delete?key=K        200 "OK", deleting an absent key is a no-op
//     GET  /exists?key=K        200 "True" or "False"
//     GET  /keys                200 encoded list of all keys, sorted
//     GET  /clear               200 "OK"
//
//     Missing parameters result in a 404, values the serializer cannot decode in a 400.
//     Note that /set, /delete and /clear mutate the store although they are GET requests.
//
//   - NewRPCServer: Creates the server. Serve opens the pebble backed store, registers the
//     store routes plus /health, /metrics (Prometheus text format) and /add and serves
//     until the context is cancelled.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Endpoint:      "0.0.0.0:8080",
//	  DataDir:       "./data",
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewLiteralSerializer(serializer.NewRegistry()),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	The router is safe for concurrent dispatch once all routes are registered.
//	Serve must be called only once.
package server
