package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/triedb/cmd/kv"
	"github.com/ValentinKolb/triedb/cmd/serve"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "triedb",
		Short: "in-memory prefix key-value store",
		Long: fmt.Sprintf(`TrieDB (v%s)

An in-memory key-value store organized as a prefix trie, written in Go.
Besides exact lookups it answers prefix queries: all keys that are prefixes
of a word, the longest such key, and all keys starting with a prefix.
Clients speak a RESP-style protocol over tcp, unix sockets or http.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of TrieDB",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("TrieDB v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
