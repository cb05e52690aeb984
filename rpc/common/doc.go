// Package common provides core data structures and utilities shared across
// the cKV system. It defines the request/response model, configuration
// structures and the logging setup used by other packages.
//
// The package focuses on:
//   - Request and Response model for HTTP-style exchanges
//   - Configuration structures for client and server components
//   - Custom logging implementation on top of Dragonboat's logger facade
//
// Key Components:
//
//   - Request: One inbound exchange. The transport fills in method, raw target,
//     headers and body, the router adds the parsed path and query parameters.
//
//   - Response: Status code, headers and body produced by a handler. Helper
//     constructors (OK, NotFound, BadRequest, ...) create text/plain responses.
//
//   - ServerConfig: Configuration for the server (endpoint, storage, worker pool,
//     timeouts, logging).
//
//   - ClientConfig: Configuration for client components, controlling the endpoint,
//     timeouts and connection retries.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's
//     logging facade while providing consistent formatting across the application.
package common
