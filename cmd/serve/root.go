package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/cKV/cmd/util"
	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the cKV server",
		Long:    `Start the cKV server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is CKV_<flag> (e.g. CKV_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the server will listen (host:port for tcp and http, socket path for unix, e.g. /tmp/ckv.sock)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("DataDir is the directory of the durable table"))

	key = "in-memory"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Keep the table in memory only, all entries are lost when the server stops"))

	key = "max-workers"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The maximum number of connections handled at the same time (0 = number of CPUs, 1 = one connection after the other)"))

	key = "max-body-bytes"
	ServeCmd.PersistentFlags().Int64(key, common.DefaultMaxBodyBytes, cmdUtil.WrapString("The maximum size of a request body in bytes"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, common.DefaultTimeoutSecond, cmdUtil.WrapString("Read and write timeout of a connection in seconds (0 = no timeout)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport = viper.GetString("transport")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.InMemory = viper.GetBool("in-memory")
	serveCmdConfig.MaxWorkers = viper.GetInt("max-workers")
	serveCmdConfig.MaxBodyBytes = viper.GetInt64("max-body-bytes")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if !common.ValidLogLevel(serveCmdConfig.LogLevel) {
		return fmt.Errorf("invalid log level %s (expected one of: debug, info, warn, error)", serveCmdConfig.LogLevel)
	}
	if serveCmdConfig.MaxWorkers < 0 {
		return fmt.Errorf("max-workers must not be negative")
	}
	if serveCmdConfig.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}
	if !serveCmdConfig.InMemory && serveCmdConfig.DataDir == "" {
		return fmt.Errorf("data-dir is required unless in-memory is set")
	}

	return nil
}

// run starts the cKV server and serves until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {

	// Parse the transport
	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		cmdUtil.GetSerializer(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serv.Serve(ctx)
}
