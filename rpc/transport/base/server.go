package base

import (
	"bufio"
	"context"
	"io"
	"net"
	"runtime"
	"time"

	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/transport"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	config    common.ServerConfig
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport. Connections are handled by
// a pool of at most config.MaxWorkers concurrent workers.
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	if t.handler == nil {
		return errors.New("no handler registered")
	}

	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = common.DefaultMaxBodyBytes
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return errors.Wrap(err, "failed to create listener")
	}

	// closing the listener unblocks Accept
	stop := context.AfterFunc(ctx, func() {
		_ = listener.Close()
	})
	defer stop()

	Logger.Infof("Starting %s server on %s with %d workers",
		t.connector.GetName(), listener.Addr(), config.MaxWorkers)

	workers := semaphore.NewWeighted(int64(config.MaxWorkers))
	g := new(errgroup.Group)

	// Accept connections
	for {
		if err := workers.Acquire(ctx, 1); err != nil {
			break
		}

		conn, err := listener.Accept()
		if err != nil {
			workers.Release(1)
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			Logger.Errorf("Accept error: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		// Handle the connection in a worker
		g.Go(func() error {
			defer workers.Release(1)
			t.handleConnection(ctx, conn)
			return nil
		})
	}

	_ = listener.Close()

	// Wait for all workers to finish, in-flight exchanges are completed
	_ = g.Wait()
	Logger.Infof("Stopped %s server on %s", t.connector.GetName(), config.Endpoint)
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection serves exactly one exchange and closes the connection
func (t *serverTransport) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	id := uuid.NewString()
	start := time.Now()

	if timeout := t.config.Timeout(); timeout > 0 {
		if err := conn.SetDeadline(start.Add(timeout)); err != nil {
			Logger.Errorf("[%s] Failed to set deadline: %v", id, err)
			return
		}
	}

	req, err := readRequest(bufio.NewReaderSize(conn, maxLineBytes), t.config.MaxBodyBytes)
	var resp *common.Response
	switch {
	case err == nil:
		req.ID = id
		resp = t.handle(ctx, req)
	case errors.Is(err, io.EOF), isPeerAbort(err), isTimeout(err):
		Logger.Debugf("[%s] Connection closed without request: %v", id, err)
		return
	case errors.Is(err, errMalformedMessage), errors.Is(err, errBodyTooLarge), errors.Is(err, io.ErrUnexpectedEOF):
		Logger.Warningf("[%s] Malformed request: %v", id, err)
		resp = common.BadRequest("Bad Request")
	default:
		Logger.Errorf("[%s] Error reading request: %v", id, err)
		return
	}

	resp.SetHeader(common.HeaderConnection, "close")

	if err := writeResponse(conn, resp); err != nil {
		if isPeerAbort(err) {
			Logger.Debugf("[%s] Peer closed connection before response was written: %v", id, err)
		} else {
			Logger.Errorf("[%s] Failed to write response: %v", id, err)
		}
		return
	}

	if req != nil {
		Logger.Debugf("[%s] %s %s -> %d took %s", id, req.Method, req.Target, resp.StatusCode, time.Since(start))
	}
}

// handle calls the registered handler. A nil response or a panic results in a 500.
func (t *serverTransport) handle(ctx context.Context, req *common.Request) (resp *common.Response) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("[%s] Handler panicked: %v", req.ID, r)
			resp = common.InternalError("Internal Server Error")
		}
	}()

	resp = t.handler(ctx, req)
	if resp == nil {
		Logger.Errorf("[%s] Handler returned no response for %s", req.ID, req.Target)
		resp = common.InternalError("Internal Server Error")
	}
	return resp
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
