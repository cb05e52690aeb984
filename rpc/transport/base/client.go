package base

import (
	"bufio"
	"context"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/transport"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(ctx context.Context, endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig
	conn      net.Conn
	closed    bool
	mu        sync.Mutex
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(ctx context.Context, config common.ClientConfig) error {
	if config.Endpoint == "" {
		return errors.New("no endpoint provided")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.config = config
	t.closed = false
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	t.conn = conn
	Logger.Debugf("Connected to %s using %s transport", config.Endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Get(ctx context.Context, target string) (*common.Response, error) {
	return t.exchange(ctx, common.MethodGet, target, nil)
}

func (t *clientTransport) Post(ctx context.Context, target string, body []byte) (*common.Response, error) {
	return t.exchange(ctx, common.MethodPost, target, body)
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return net.ErrClosed
	}
	t.closed = true
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dial connects to the endpoint. Only failed dials are retried, with exponential backoff.
func (t *clientTransport) dial(ctx context.Context) (net.Conn, error) {
	// We always try at least once, and up to maxRetries times
	maxRetries := t.config.RetryCount
	if maxRetries < 1 {
		maxRetries = 1
	}

	// Initial backoff duration in milliseconds
	backoffMs := 50

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		conn, err := t.connector.Connect(ctx, t.config.Endpoint, t.config.Timeout())
		if err == nil {
			return conn, nil
		}

		lastErr = err
		Logger.Debugf("Connect attempt %d/%d to %s failed: %v", i+1, maxRetries, t.config.Endpoint, err)

		if i < maxRetries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			select {
			case <-ctx.Done():
				return nil, errors.Wrapf(ctx.Err(), "failed to connect to %s", t.config.Endpoint)
			case <-time.After(time.Duration(jitter) * time.Millisecond):
			}
			backoffMs *= 2
		}
	}

	// All attempts failed
	return nil, errors.Wrapf(lastErr, "failed to connect to %s after %d attempts", t.config.Endpoint, maxRetries)
}

// exchange writes one request and reads the complete response. The server closes the
// connection after every exchange, so a following exchange dials again.
func (t *clientTransport) exchange(ctx context.Context, method common.Method, target string, body []byte) (*common.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, net.ErrClosed
	}

	conn := t.conn
	t.conn = nil
	if conn == nil {
		if t.config.Endpoint == "" {
			return nil, errors.New("transport is not connected")
		}
		var err error
		if conn, err = t.connector.Connect(ctx, t.config.Endpoint, t.config.Timeout()); err != nil {
			return nil, errors.Wrapf(err, "failed to connect to %s", t.config.Endpoint)
		}
	}
	defer conn.Close()

	// deadline from the context or the configured timeout, whichever comes first
	deadline, ok := ctx.Deadline()
	if timeout := t.config.Timeout(); timeout > 0 {
		if d := time.Now().Add(timeout); !ok || d.Before(deadline) {
			deadline, ok = d, true
		}
	}
	if ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, errors.Wrap(err, "failed to set deadline")
		}
	}

	// abort blocking reads and writes when the context is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := writeRequest(conn, method, target, t.config.Endpoint, body); err != nil {
		return nil, t.wrapCtx(ctx, errors.Wrapf(err, "failed to send %s %s", method, target))
	}

	resp, err := readResponse(bufio.NewReaderSize(conn, maxLineBytes), 0)
	if err != nil {
		return nil, t.wrapCtx(ctx, errors.Wrapf(err, "failed to read response for %s %s", method, target))
	}
	return resp, nil
}

func (t *clientTransport) wrapCtx(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.WithSecondaryError(ctxErr, err)
	}
	return err
}
