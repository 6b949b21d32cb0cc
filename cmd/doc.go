// Package cmd implements the command-line interface of TrieDB. It provides a
// hierarchical command structure for running the server and for talking to it
// as a client.
//
// The package is organized into several subpackages:
//
//   - serve: starts and configures the TrieDB server
//   - kv: client commands (set, get, exists, pexists, pget, pgetl, wpget, flush, echo, raw, perf)
//   - util: shared flag and configuration helpers (internal use)
//
// See triedb -help for a list of all commands.
package cmd
