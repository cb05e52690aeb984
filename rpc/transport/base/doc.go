// Package base provides the foundation for the socket based transport layers of cKV,
// implementing the request/response exchange independent of the specific network
// protocol (TCP, Unix sockets). Protocol specific packages only contribute a connector.
//
// Wire format:
//
//	The transports speak a subset of HTTP/1.1. A request is a start line
//	"<METHOD> <target> HTTP/1.1", header lines "Name: value", a blank line and a body
//	of Content-Length bytes. Header names keep the case they were sent with.
//	Every connection carries exactly one exchange and is closed afterwards
//	(Connection: close), so plain HTTP clients like curl can talk to the server.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - clientTransport: Dials the endpoint (retrying failed dials with exponential
//     backoff and jitter), writes one request and reads the complete response.
//     Requests are never repeated once written.
//
//   - serverTransport: Accepts connections and hands each one to a worker. The number
//     of concurrent workers is bounded by a weighted semaphore (MaxWorkers). Malformed
//     requests are answered with 400, peers that disconnect early are logged at debug
//     level and otherwise ignored.
//
// Shutdown:
//
//	Listen returns after its context is cancelled. The listener is closed first,
//	then all in-flight exchanges are awaited.
package base
