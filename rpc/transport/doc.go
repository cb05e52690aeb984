// Package transport defines the interfaces and abstractions for the request/response
// exchanges of cKV. It provides a common contract that all transport implementations
// must fulfill, enabling protocol-agnostic communication.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Enabling multiple transport implementations (TCP, Unix sockets, HTTP)
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations. One
//     instance performs one connect -> exchange -> close cycle.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receive requests and hand them to the registered handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
//   - ClientFactory: Creates fresh client transports, one per logical operation.
package transport
