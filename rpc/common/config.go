package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMaxBodyBytes  = 16 * 1024 * 1024 // 16 MB
	DefaultTimeoutSecond = 5
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for a cKV server.
type ServerConfig struct {
	// Address to listen on (host:port for tcp and http, socket path for unix)
	Endpoint string
	// Transport is one of "tcp", "unix" or "http"
	Transport string

	// Storage
	DataDir string
	// InMemory keeps the durable table in memory only (for tests and benchmarks)
	InMemory bool

	// Connection handling
	MaxWorkers    int
	MaxBodyBytes  int64
	TimeoutSecond int64

	// Logging configuration
	LogLevel string
}

// Timeout returns the per connection read/write timeout (0 = no timeout)
func (c *ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Transport", c.Transport)
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Workers", strconv.Itoa(c.MaxWorkers))
	addField("Max Body Size", fmt.Sprintf("%d bytes", c.MaxBodyBytes))

	// Storage
	addSection("Storage")
	if c.InMemory {
		addField("Data Directory", "(in memory)")
	} else {
		addField("Data Directory", c.DataDir)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoint      string
	Transport     string
	TimeoutSecond int
	// RetryCount is the number of connection attempts, requests themselves are never repeated
	RetryCount int
}

// Timeout returns the timeout for connecting and for one exchange (0 = no timeout)
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Transport", c.Transport)
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))

	return sb.String()
}
