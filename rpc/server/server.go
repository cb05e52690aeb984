package server

import (
	"bytes"
	"context"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/ValentinKolb/cKV/lib/db"
	"github.com/ValentinKolb/cKV/lib/db/engines/pebbledb"
	"github.com/ValentinKolb/cKV/lib/store"
	"github.com/ValentinKolb/cKV/lib/store/lstore"
	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/serializer"
	"github.com/ValentinKolb/cKV/rpc/transport"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

const (
	PathHealth  = "/health"
	PathMetrics = "/metrics"
	PathAdd     = "/add"
)

// NewRPCServer creates a new RPC server
// It takes a config, transport and the value serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewLiteralSerializer(registry),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	valueSerializer serializer.IValueSerializer,
) *rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	router := NewRouter()
	router.metrics = newServerMetrics()

	return &rpcServer{
		config:     config,
		transport:  transport,
		serializer: valueSerializer,
		router:     router,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IValueSerializer
	router     *Router
	store      store.IStore
}

// Router returns the router of the server. Additional routes must be registered
// before Serve is called.
func (s *rpcServer) Router() *Router {
	return s.router
}

// dbFactory opens the durable table configured for the server
func (s *rpcServer) dbFactory() (db.KVDB, error) {
	return pebbledb.NewPebbleDB(pebbledb.Options{
		Dir:      s.config.DataDir,
		InMemory: s.config.InMemory,
	})
}

func (s *rpcServer) init() error {

	// Init logger
	common.InitLoggers(s.config.LogLevel)

	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	// Open and load the store
	st, err := lstore.NewLocalStore(s.dbFactory)
	if err != nil {
		return errors.Wrap(err, "failed to create store")
	}
	if err := st.Load(); err != nil {
		_ = st.Close()
		return errors.Wrap(err, "failed to load store")
	}
	s.store = st

	// Register the routes
	NewIStoreServerAdapter(st, s.serializer).Register(s.router)
	s.router.Register(common.MethodGet, PathHealth, func() *common.Response {
		return common.OK("OK")
	})
	s.router.Register(common.MethodGet, PathMetrics, s.handleMetrics)
	s.router.Register(common.MethodGet, PathAdd, handleAdd)

	s.router.metrics.gauge("ckv_store_keys", func() float64 {
		return float64(st.Size())
	})

	Logger.Infof("cKV setup completed successfully")

	// Configure the transport layer
	s.transport.RegisterHandler(s.router.Dispatch)

	return nil
}

// Serve starts the RPC server
// This function will also open the store and start the transport layer. It blocks
// until ctx is cancelled or the transport fails and closes the store before it returns.
func (s *rpcServer) Serve(ctx context.Context) error {
	if err := s.init(); err != nil {
		return err
	}

	err := s.transport.Listen(ctx, s.config)

	if closeErr := s.store.Close(); closeErr != nil {
		Logger.Errorf("failed to close store: %v", closeErr)
	}
	return err
}

// --------------------------------------------------------------------------
// Service routes
// --------------------------------------------------------------------------

func (s *rpcServer) handleMetrics(_ *common.Request) *common.Response {
	var buf bytes.Buffer
	s.router.metrics.write(&buf)
	return common.NewResponse(common.StatusOK, map[string]string{
		common.HeaderContentType: "text/plain; version=0.0.4",
	}, buf.Bytes())
}

// handleAdd returns the sum of the integer parameters a and b
func handleAdd(_ context.Context, req *common.Request) (*common.Response, error) {
	a, okA := req.Param("a")
	b, okB := req.Param("b")
	if !okA || !okB {
		return common.BadRequest("Please provide a and b"), nil
	}

	x, err := strconv.Atoi(a)
	if err != nil {
		return nil, errors.Wrapf(err, "parameter a")
	}
	y, err := strconv.Atoi(b)
	if err != nil {
		return nil, errors.Wrapf(err, "parameter b")
	}
	return common.OK(strconv.Itoa(x + y)), nil
}
