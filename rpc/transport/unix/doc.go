// Package unix implements the transport of cKV on top of Unix domain sockets, for
// clients running on the same machine as the server.
//
// The endpoint is the path of the socket file. An existing file at that path is
// removed when the server starts listening.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners
package unix
