// Package tcp implements the TCP socket based transport of cKV. It provides concrete
// implementations of the base package's connector interfaces, the exchange itself
// (HTTP/1.1 subset, one exchange per connection) is implemented by the base package.
//
// The endpoint is a "host:port" address. Because the wire format is plain HTTP, a
// server started with this transport can be queried with curl:
//
//	curl 'http://localhost:8080/get?key=foo'
package tcp
