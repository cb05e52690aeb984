// Package cmd implements the command-line interface for the cKV key-value store.
// It provides a hierarchical command structure with operations for running the
// server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value store operations (get, set, del, exists, keys, clear, perf)
//   - serve: Commands for starting and configuring the cKV server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set as environment variables with the prefix CKV_, for
// example CKV_ENDPOINT=/tmp/ckv.sock. Variables in .env and .env.local are loaded
// on startup.
//
// See ckv -help for a list of all commands.
package cmd
