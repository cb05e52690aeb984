package client

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/serializer"
	"github.com/ValentinKolb/cKV/rpc/server"
	"github.com/ValentinKolb/cKV/rpc/transport"
	"github.com/ValentinKolb/cKV/rpc/transport/http"
	"github.com/ValentinKolb/cKV/rpc/transport/tcp"
	"github.com/ValentinKolb/cKV/rpc/transport/unix"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	A int    `ckv:"a"`
	B string `ckv:"b"`
}

func newRegistry(t *testing.T) *serializer.Registry {
	t.Helper()
	r := serializer.NewRegistry()
	require.NoError(t, serializer.Register[pair](r, "T"))
	return r
}

// freeAddress returns a local tcp address that was free a moment ago
func freeAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

type transportSetup struct {
	name     string
	server   func() transport.IRPCServerTransport
	client   transport.ClientFactory
	endpoint func(t *testing.T) string
}

var transports = []transportSetup{
	{"tcp", tcp.NewTCPServerTransport, tcp.NewTCPClientTransport, freeAddress},
	{"unix", unix.NewUnixServerTransport, unix.NewUnixClientTransport, func(t *testing.T) string {
		return filepath.Join(t.TempDir(), "ckv.sock")
	}},
	{"http", http.NewHttpServerTransport, http.NewHttpClientTransport, freeAddress},
}

// startStore starts a server with an in-memory store and returns a connected client store
func startStore(t *testing.T, setup transportSetup) IRPCStore {
	t.Helper()
	store, _ := startStoreConfig(t, setup)
	return store
}

// startStoreConfig is startStore that also returns the client config of the server
func startStoreConfig(t *testing.T, setup transportSetup) (IRPCStore, common.ClientConfig) {
	t.Helper()

	registry := newRegistry(t)
	endpoint := setup.endpoint(t)

	s := server.NewRPCServer(common.ServerConfig{
		Endpoint:      endpoint,
		Transport:     setup.name,
		InMemory:      true,
		MaxWorkers:    4,
		TimeoutSecond: 2,
		LogLevel:      "error",
	}, setup.server(), serializer.NewLiteralSerializer(registry))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	config := common.ClientConfig{
		Endpoint:      endpoint,
		Transport:     setup.name,
		TimeoutSecond: 2,
		RetryCount:    3,
	}
	store := NewRPCStore(config, setup.client, serializer.NewLiteralSerializer(registry))

	require.Eventually(t, func() bool {
		_, err := store.Keys(context.Background())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond, "server did not start")

	return store, config
}

func TestStoreRoundTrip(t *testing.T) {
	for _, setup := range transports {
		t.Run(setup.name, func(t *testing.T) {
			s := startStore(t, setup)
			ctx := context.Background()

			values := map[string]any{
				"int":    int64(42),
				"string": "hello world",
				"query":  "a&b=c?d#e%f",
				"dict":   map[string]any{"a": int64(1)},
				"list":   []any{int64(1), "two", 3.5, nil, true},
				"tuple":  serializer.Tuple{"x", int64(2)},
				"bytes":  []byte("raw\x00"),
				"struct": pair{A: 1, B: "x"},
			}

			for key, value := range values {
				require.NoError(t, s.Set(ctx, key, value), key)
			}
			for key, value := range values {
				got, ok, err := s.Get(ctx, key)
				require.NoError(t, err, key)
				assert.True(t, ok, key)
				assert.Equal(t, value, got, key)
			}

			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"bytes", "dict", "int", "list", "query", "string", "struct", "tuple"}, keys)
		})
	}
}

func TestStoreGetText(t *testing.T) {
	s, config := startStoreConfig(t, transports[0])
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "pair", pair{A: 1, B: "x"}))
	text, ok, err := s.GetText(ctx, "pair")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `T({'a': 1, 'b': 'x'})`, text)

	_, ok, err = s.GetText(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	// a client without the type can not decode the value but still read its text
	plain := NewRPCStore(config, transports[0].client, serializer.NewLiteralSerializer(nil))
	_, _, err = plain.Get(ctx, "pair")
	var unknown *serializer.UnknownTypeError
	require.True(t, errors.As(err, &unknown), "%v", err)
	assert.Equal(t, "T", unknown.TypeName)

	text, ok, err = plain.GetText(ctx, "pair")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `T({'a': 1, 'b': 'x'})`, text)
}

func TestStoreDelete(t *testing.T) {
	for _, setup := range transports {
		t.Run(setup.name, func(t *testing.T) {
			s := startStore(t, setup)
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "k", int64(42)))
			exists, err := s.Exists(ctx, "k")
			require.NoError(t, err)
			assert.True(t, exists)

			require.NoError(t, s.Delete(ctx, "k"))
			require.NoError(t, s.Delete(ctx, "k"), "deleting an absent key is a no-op")

			value, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, value)

			exists, err = s.Exists(ctx, "k")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestStoreClear(t *testing.T) {
	s := startStore(t, transports[0])
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("k%d", i), i))
	}
	require.NoError(t, s.Clear(ctx))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStoreLargeValue(t *testing.T) {
	s := startStore(t, transports[0])
	ctx := context.Background()

	large := strings.Repeat("value ", 10_000)
	require.NoError(t, s.Set(ctx, "large", large))

	got, ok, err := s.Get(ctx, "large")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, large, got)
}

func TestStoreInvalidKey(t *testing.T) {
	s := NewRPCStore(common.ClientConfig{Endpoint: "127.0.0.1:1"}, tcp.NewTCPClientTransport, serializer.NewLiteralSerializer(nil))
	ctx := context.Background()

	for _, key := range []string{"a&b", "a=b", "a?b", "a#b", "a%20", "a b", "a\nb", "a\x00", "a\xff"} {
		err := s.Set(ctx, key, 1)
		assert.True(t, errors.Is(err, ErrInvalidKey), key)
		_, _, err = s.Get(ctx, key)
		assert.True(t, errors.Is(err, ErrInvalidKey), key)
		assert.True(t, errors.Is(s.Delete(ctx, key), ErrInvalidKey), key)
		_, err = s.Exists(ctx, key)
		assert.True(t, errors.Is(err, ErrInvalidKey), key)
	}
}

func TestStoreUnsupportedValue(t *testing.T) {
	s := NewRPCStore(common.ClientConfig{Endpoint: "127.0.0.1:1"}, tcp.NewTCPClientTransport, serializer.NewLiteralSerializer(nil))

	err := s.Set(context.Background(), "k", make(chan int))
	assert.True(t, errors.Is(err, serializer.ErrUnsupportedType))
}

func TestStoreConnectionRefused(t *testing.T) {
	s := NewRPCStore(common.ClientConfig{
		Endpoint:      freeAddress(t),
		TimeoutSecond: 1,
	}, tcp.NewTCPClientTransport, serializer.NewLiteralSerializer(nil))

	_, _, err := s.Get(context.Background(), "k")
	assert.Error(t, err)

	assert.Equal(t, int64(1), s.Metrics().Get("ckv.client.get.errors").(interface{ Count() int64 }).Count())
}

func TestStoreStatusError(t *testing.T) {
	// a server without the store routes answers every request with 404
	endpoint := freeAddress(t)
	srv := tcp.NewTCPServerTransport()
	router := server.NewRouter()
	router.Register(common.MethodGet, "/keys", func() *common.Response { return common.BadRequest("nope") })
	srv.RegisterHandler(router.Dispatch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Listen(ctx, common.ServerConfig{Endpoint: endpoint, TimeoutSecond: 2}) }()

	s := NewRPCStore(common.ClientConfig{Endpoint: endpoint, TimeoutSecond: 2, RetryCount: 5},
		tcp.NewTCPClientTransport, serializer.NewLiteralSerializer(nil))

	_, err := s.Keys(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, common.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "/keys", statusErr.Path)
	assert.Equal(t, "nope", statusErr.Message)

	err = s.Delete(context.Background(), "k")
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, common.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "Path: /delete not found", statusErr.Message)
}

func TestStoreConcurrentClients(t *testing.T) {
	s := startStore(t, transports[0])
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				key := fmt.Sprintf("w%d-%d", w, i)
				if !assert.NoError(t, s.Set(ctx, key, int64(i))) {
					return
				}
				got, ok, err := s.Get(ctx, key)
				assert.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, int64(i), got)
			}
		}(w)
	}
	wg.Wait()

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 80)

	timer := s.Metrics().Get("ckv.client.set")
	require.NotNil(t, timer)
	assert.Equal(t, int64(80), timer.(interface{ Count() int64 }).Count())
}
