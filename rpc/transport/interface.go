package transport

import (
	"context"

	"github.com/ValentinKolb/cKV/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer once per exchange
// It takes the request as built by the transport and returns the response to send
type ServerHandleFunc func(ctx context.Context, req *common.Request) *common.Response

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and serves requests until the context is cancelled
	// In-flight exchanges are completed before Listen returns
	Listen(ctx context.Context, config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
// One instance is valid for exactly one Connect -> (Get|Post)* -> Close cycle
type IRPCClientTransport interface {
	// Connect establishes the connection to the configured endpoint
	Connect(ctx context.Context, config common.ClientConfig) error
	// Get sends a GET request for target (path plus query string) and returns the response
	Get(ctx context.Context, target string) (*common.Response, error)
	// Post sends a POST request with the given body and returns the response
	Post(ctx context.Context, target string, body []byte) (*common.Response, error)
	// Close closes the transport connection
	Close() error
}

// ClientFactory creates a new, unconnected client transport
type ClientFactory func() IRPCClientTransport
