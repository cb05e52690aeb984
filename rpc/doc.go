// Package rpc provides the request/response layer of the cKV key-value store. It is
// the communication layer between the store client and the store server.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Request and Response model, configuration structures and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP). All of them speak the same HTTP/1.1 subset with one
//     exchange per connection.
//
//   - serializer: Encoding of values as literal text (plain values and registered
//     structured types) and the escaping of that text for query strings.
//
//   - client: The store client, calling the store routes of a remote server.
//
//   - server: The router, the store routes and the server wiring store, router
//     and transport together.
package rpc
