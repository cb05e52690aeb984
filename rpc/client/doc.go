// Package client implements the RPC client of the cKV store service.
//
// NewRPCStore returns an IRPCStore that encodes values with a serializer.IValueSerializer,
// escapes them with serializer.Escape and sends them in the query string of the store
// routes. Values whose encoded text contains '&', '#' or '%', or that are too long for
// a request line, are sent in the body of a POST /set instead. Note that /set, /delete
// and /clear are GET requests although they change the store.
//
// Every operation runs on its own connection: a transport is created with the given
// factory, connected, used for one exchange and closed. This costs a connection setup
// per call but keeps the client free of shared connection state.
//
// Keys are sent unescaped. They must be valid UTF-8 and must not contain '&', '=', '?',
// '#', '%', white space or control characters (ErrInvalidKey). An absent key is reported
// by Get with ok == false, other unexpected responses are returned as *StatusError.
// GetText returns the stored text of a value without decoding it.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoint:      "localhost:8080",
//	  TimeoutSecond: 5,
//	  RetryCount:    3,
//	}
//
//	registry := serializer.NewRegistry()
//	_ = serializer.Register[Point](registry, "Point")
//
//	s := client.NewRPCStore(config, tcp.NewTCPClientTransport, serializer.NewLiteralSerializer(registry))
//
//	err := s.Set(ctx, "origin", Point{X: 0, Y: 0})
//	value, ok, err := s.Get(ctx, "origin")
//
// The duration of each operation is recorded in the go-metrics registry returned by
// Metrics, one timer per operation named ckv.client.<op>.
package client
