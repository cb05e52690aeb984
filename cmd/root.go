package cmd

import (
	"fmt"

	"github.com/ValentinKolb/cKV/cmd/kv"
	"github.com/ValentinKolb/cKV/cmd/serve"
	"github.com/ValentinKolb/cKV/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "ckv",
		Short: "minimal remote key-value store",
		Long: fmt.Sprintf(`cKV (v%s)

A minimal remote key-value store written in Go. Values are stored as literal
text and served over a small HTTP/1.1 subset, one request per connection.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cKV v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix, http)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
// It returns the exit code of the program.
func Execute() int {
	if err := RootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}
