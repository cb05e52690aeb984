// Package http implements a transport of cKV on top of net/http. It is an alternative
// to the tcp transport for deployments behind HTTP infrastructure (proxies, load
// balancers) and drives the same handler contract.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport with an http.Client that
//     does not reuse connections. The endpoint may be given with or without scheme.
//
//   - httpServerTransport: Implements IRPCServerTransport with an http.Server and a
//     catch-all route. Routing is left to the registered handler. Request headers are
//     canonicalized by net/http, response headers are written with the case the
//     handler used.
//
// With log level "debug" every request is logged by a middleware together with its
// status code and duration.
package http
