package kv

import (
	"github.com/ValentinKolb/triedb/cmd/util"
	"github.com/ValentinKolb/triedb/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcClient *client.Client

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform operations against a TrieDB server",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
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
	KeyValueCommands.AddCommand(existsCmd)
	KeyValueCommands.AddCommand(pexistsCmd)
	KeyValueCommands.AddCommand(pgetCmd)
	KeyValueCommands.AddCommand(pgetlCmd)
	KeyValueCommands.AddCommand(wpgetCmd)
	KeyValueCommands.AddCommand(flushCmd)
	KeyValueCommands.AddCommand(echoCmd)
	KeyValueCommands.AddCommand(rawCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient connects the RPC client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	rpcClient, err = client.Dial(*util.GetClientConfig())
	return err
}

func closeKVClient(_ *cobra.Command, _ []string) error {
	if rpcClient == nil {
		return nil
	}
	return rpcClient.Close()
}
