package kv

import (
	"github.com/ValentinKolb/cKV/cmd/util"
	"github.com/ValentinKolb/cKV/rpc/client"
	"github.com/ValentinKolb/cKV/rpc/serializer"
	"github.com/spf13/cobra"
)

var (
	rpcStore        client.IRPCStore
	valueSerializer serializer.IValueSerializer

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations",
		PersistentPreRunE: setupKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(existsCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(clearCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the RPC store client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get the transport factory
	factory, err := util.GetClientTransport()
	if err != nil {
		return err
	}

	// Create the KV store client
	valueSerializer = util.GetSerializer()
	rpcStore = client.NewRPCStore(
		util.GetClientConfig(),
		factory,
		valueSerializer,
	)

	return nil
}
