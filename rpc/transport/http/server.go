package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/transport"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

// shutdownTimeout bounds how long in-flight requests are awaited on shutdown
const shutdownTimeout = 10 * time.Second

func NewHttpServerTransport() transport.IRPCServerTransport {
	return &httpServerTransport{}
}

type httpServerTransport struct {
	handler transport.ServerHandleFunc
	config  common.ServerConfig
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *httpServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *httpServerTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	if t.handler == nil {
		return errors.New("no handler registered")
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = common.DefaultMaxBodyBytes
	}
	t.config = config

	// Create a new HTTP server, all paths are handled by the router
	mux := http.NewServeMux()
	if t.config.LogLevel == "debug" {
		mux.HandleFunc("/", loggerMiddleware(t.handleRequest))
	} else {
		mux.HandleFunc("/", t.handleRequest)
	}

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  config.Timeout(),
		WriteTimeout: config.Timeout(),
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	// one exchange per connection
	server.SetKeepAlivesEnabled(false)

	listener, err := net.Listen("tcp", config.Endpoint)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", config.Endpoint)
	}

	Logger.Infof("Starting HTTP server on %s", listener.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shut down http server")
	}
	<-errCh
	Logger.Infof("Stopped HTTP server on %s", config.Endpoint)
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleRequest converts the net/http request, calls the handler and writes the response
func (t *httpServerTransport) handleRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, t.config.MaxBodyBytes))
	defer r.Body.Close()
	if err != nil {
		writeResponse(w, common.BadRequest("Bad Request"))
		return
	}

	header := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		if len(values) > 0 {
			header[name] = values[0]
		}
	}

	req := common.NewRequest(common.Method(r.Method), r.RequestURI, header, body)
	req.ID = uuid.NewString()

	resp := t.handler(r.Context(), req)
	if resp == nil {
		Logger.Errorf("[%s] Handler returned no response for %s", req.ID, req.Target)
		resp = common.InternalError("Internal Server Error")
	}
	resp.SetHeader(common.HeaderConnection, "close")

	writeResponse(w, resp)
}

// writeResponse writes the headers as given (no canonicalization), the status and the body
func writeResponse(w http.ResponseWriter, resp *common.Response) {
	for name, value := range resp.Header {
		w.Header()[name] = []string{value}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		Logger.Debugf("Failed to write response: %v", err)
	}
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter is a custom ResponseWriter that captures status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware is a middleware that logs HTTP requests
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create custom response writer to capture status code
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		// Process request
		next.ServeHTTP(rw, r)

		// Log the request
		duration := time.Since(start)
		Logger.Debugf("%s %s => %d took %s", r.Method, r.URL.RequestURI(), rw.statusCode, duration)
	}
}
