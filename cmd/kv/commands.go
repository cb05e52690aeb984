package kv

import (
	"fmt"

	"github.com/ValentinKolb/cKV/rpc/client"
	"github.com/ValentinKolb/cKV/rpc/serializer"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long: `Sets the value for a key. The value is read as a literal: 42 is stored as an
integer, 'text' or "text" as a string, [1, 2] as a list. Anything that is no valid
literal is stored as a string.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, err := valueSerializer.Decode(args[1])
			if err != nil {
				return fmt.Errorf("invalid value: %w", err)
			}
			if err := rpcStore.Set(cmd.Context(), key, value); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, ok, err := rpcStore.Get(cmd.Context(), key)
			var unknown *serializer.UnknownTypeError
			if errors.As(err, &unknown) {
				// structured values of types this tool does not know are printed as stored
				text, ok, err := rpcStore.GetText(cmd.Context(), key)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: %w", key, client.ErrNotFound)
				}
				fmt.Printf("key=%s, value=%s (%s)\n", key, text, unknown.TypeName)
				return nil
			}
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: %w", key, client.ErrNotFound)
			}
			text, err := valueSerializer.Encode(value)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, value=%s (%T)\n", key, text, value)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := rpcStore.Delete(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			found, err := rpcStore.Exists(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", key, found)
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Lists all keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := rpcStore.Keys(cmd.Context())
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Deletes all key value pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rpcStore.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("clear successfully")
			return nil
		},
	}
)
