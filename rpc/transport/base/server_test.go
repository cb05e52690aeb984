package base

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConnector listens on a random local port and reports the address
type testConnector struct {
	addr chan string
}

func (c *testConnector) GetName() string { return "test" }

func (c *testConnector) Listen(common.ServerConfig) (net.Listener, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	c.addr <- ln.Addr().String()
	return ln, nil
}

func (c *testConnector) Connect(ctx context.Context, endpoint string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", endpoint)
}

// startServer starts a server with the given handler and returns its address and a stop function
func startServer(t *testing.T, handler func(ctx context.Context, req *common.Request) *common.Response) (string, func()) {
	t.Helper()

	connector := &testConnector{addr: make(chan string, 1)}
	server := NewBaseServerTransport(connector)
	server.RegisterHandler(handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Listen(ctx, common.ServerConfig{MaxWorkers: 4, TimeoutSecond: 2})
	}()

	var addr string
	select {
	case addr = <-connector.addr:
	case err := <-done:
		cancel()
		t.Fatalf("server did not start: %v", err)
	}

	return addr, func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	}
}

func echoHandler(_ context.Context, req *common.Request) *common.Response {
	return common.OK(string(req.Method) + " " + req.Target + " " + string(req.Body))
}

func TestServerClientExchange(t *testing.T) {
	addr, stop := startServer(t, echoHandler)
	defer stop()

	client := NewBaseClientTransport(&testConnector{})
	require.NoError(t, client.Connect(context.Background(), common.ClientConfig{Endpoint: addr, TimeoutSecond: 2, RetryCount: 3}))

	resp, err := client.Get(context.Background(), "/get?key=a")
	require.NoError(t, err)
	assert.Equal(t, common.StatusOK, resp.StatusCode)
	assert.Equal(t, "GET /get?key=a ", resp.Text())
	conn, _ := resp.GetHeader(common.HeaderConnection)
	assert.Equal(t, "close", conn)

	// a second exchange on the same transport dials again
	resp, err = client.Post(context.Background(), "/set?key=a", []byte("'v'"))
	require.NoError(t, err)
	assert.Equal(t, "POST /set?key=a 'v'", resp.Text())

	require.NoError(t, client.Close())
	assert.Error(t, client.Close())

	_, err = client.Get(context.Background(), "/get?key=a")
	assert.Error(t, err)
}

func TestServerMalformedRequest(t *testing.T) {
	addr, stop := startServer(t, echoHandler)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("this is not http\r\n\r\n"))
	require.NoError(t, err)

	resp, err := readResponse(bufio.NewReader(conn), 0)
	require.NoError(t, err)
	assert.Equal(t, common.StatusBadRequest, resp.StatusCode)
}

func TestServerPanicAndNilResponse(t *testing.T) {
	addr, stop := startServer(t, func(_ context.Context, req *common.Request) *common.Response {
		if req.Target == "/panic" {
			panic("boom")
		}
		return nil
	})
	defer stop()

	for _, target := range []string{"/panic", "/nil"} {
		client := NewBaseClientTransport(&testConnector{})
		require.NoError(t, client.Connect(context.Background(), common.ClientConfig{Endpoint: addr, TimeoutSecond: 2}))
		resp, err := client.Get(context.Background(), target)
		require.NoError(t, err)
		assert.Equal(t, common.StatusInternalServerError, resp.StatusCode, target)
		_ = client.Close()
	}
}

func TestServerSurvivesPeerAbort(t *testing.T) {
	addr, stop := startServer(t, func(_ context.Context, req *common.Request) *common.Response {
		time.Sleep(50 * time.Millisecond)
		return common.OK("late")
	})
	defer stop()

	// send a request and disconnect before the response is written
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	_, err = conn.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// connect and close without sending anything
	conn, err = net.Dial("tcp", addr)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	client := NewBaseClientTransport(&testConnector{})
	require.NoError(t, client.Connect(context.Background(), common.ClientConfig{Endpoint: addr, TimeoutSecond: 2}))
	resp, err := client.Get(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, "late", resp.Text())
}

func TestServerWaitsForInFlightExchanges(t *testing.T) {
	var finished atomic.Bool
	started := make(chan struct{})
	addr, stop := startServer(t, func(_ context.Context, req *common.Request) *common.Response {
		close(started)
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return common.OK("done")
	})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)

	<-started
	stop()
	assert.True(t, finished.Load())

	body, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Contains(t, string(body), "done")
}

func TestClientConnectRetries(t *testing.T) {
	// reserve a port that nobody listens on
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := NewBaseClientTransport(&testConnector{})
	start := time.Now()
	err = client.Connect(context.Background(), common.ClientConfig{Endpoint: addr, TimeoutSecond: 1, RetryCount: 3})
	assert.Error(t, err)
	// 50ms + 100ms backoff (+-10%)
	assert.GreaterOrEqual(t, time.Since(start), 130*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = client.Connect(ctx, common.ClientConfig{Endpoint: addr, TimeoutSecond: 1, RetryCount: 10})
	assert.Error(t, err)

	assert.Error(t, client.Connect(context.Background(), common.ClientConfig{}))
}
